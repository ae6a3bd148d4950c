package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Config is the pool daemon's on-disk configuration.
type Config struct {
	Service    string `toml:"Service"`
	Env        string `toml:"Env"`
	HTTPListen string `toml:"HTTPListen"`

	LogFile       string `toml:"LogFile,omitempty"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB,omitempty"`
	LogMaxBackups int    `toml:"LogMaxBackups,omitempty"`
	LogMaxAgeDays int    `toml:"LogMaxAgeDays,omitempty"`

	Accounts Accounts `toml:"accounts"`
	MCR      MCR      `toml:"mcr"`
	Pauses   Pauses   `toml:"pauses"`
}

// Accounts names the privileged addresses the engines are wired with.
type Accounts struct {
	Governance     string `toml:"Governance"`
	Pool           string `toml:"Pool"`
	SwapOperator   string `toml:"SwapOperator"`
	SwapController string `toml:"SwapController"`
	WrappedNative  string `toml:"WrappedNative"`
	Vault          string `toml:"Vault,omitempty"`
	VaultShare     string `toml:"VaultShare,omitempty"`
	Relayer        string `toml:"Relayer,omitempty"`
}

// MCR carries the capital-requirement ratchet parameters.
type MCR struct {
	MaxDailyIncreaseBps int64  `toml:"MaxDailyIncreaseBps"`
	MaxUpdateStepBps    int64  `toml:"MaxUpdateStepBps"`
	MinUpdateSeconds    int64  `toml:"MinUpdateSeconds"`
	InitialMCRWei       string `toml:"InitialMCRWei,omitempty"`
}

// InitialWei parses the seed requirement. The boolean is false when no seed
// is configured.
func (m MCR) InitialWei() (*big.Int, bool) {
	trimmed := strings.TrimSpace(m.InitialMCRWei)
	if trimmed == "" {
		return nil, false
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() <= 0 {
		return nil, false
	}
	return value, true
}

// Pauses flags modules that start paused.
type Pauses struct {
	Treasury bool `toml:"Treasury"`
	Swap     bool `toml:"Swap"`
}

// Load reads the configuration at path. A missing file falls back to the
// defaults, which fail validation because no account addresses are set, so
// the daemon reports the absent file instead of a late wiring error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w (no config file at %s)", err, path)
		}
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Service:    "poold",
		Env:        "dev",
		HTTPListen: ":8645",
		MCR: MCR{
			MaxDailyIncreaseBps: 500,
			MaxUpdateStepBps:    100,
			MinUpdateSeconds:    3600,
		},
	}
}

// Normalise trims whitespace and fills gaps left by a sparse file.
func (c *Config) Normalise() {
	if c == nil {
		return
	}
	c.Service = strings.TrimSpace(c.Service)
	if c.Service == "" {
		c.Service = "poold"
	}
	c.Env = strings.TrimSpace(c.Env)
	c.HTTPListen = strings.TrimSpace(c.HTTPListen)
	if c.HTTPListen == "" {
		c.HTTPListen = ":8645"
	}
	defaults := Default()
	if c.MCR.MaxDailyIncreaseBps == 0 {
		c.MCR.MaxDailyIncreaseBps = defaults.MCR.MaxDailyIncreaseBps
	}
	if c.MCR.MaxUpdateStepBps == 0 {
		c.MCR.MaxUpdateStepBps = defaults.MCR.MaxUpdateStepBps
	}
	if c.MCR.MinUpdateSeconds == 0 {
		c.MCR.MinUpdateSeconds = defaults.MCR.MinUpdateSeconds
	}
}

// Validate rejects configurations the engines would refuse at wiring time.
func (c *Config) Validate() error {
	if c.MCR.MaxDailyIncreaseBps <= 0 {
		return fmt.Errorf("config: mcr.MaxDailyIncreaseBps must be positive")
	}
	if c.MCR.MaxUpdateStepBps <= 0 {
		return fmt.Errorf("config: mcr.MaxUpdateStepBps must be positive")
	}
	if c.MCR.MinUpdateSeconds < 0 {
		return fmt.Errorf("config: mcr.MinUpdateSeconds must not be negative")
	}
	if trimmed := strings.TrimSpace(c.MCR.InitialMCRWei); trimmed != "" {
		if _, ok := new(big.Int).SetString(trimmed, 10); !ok {
			return fmt.Errorf("config: mcr.InitialMCRWei: invalid integer %q", trimmed)
		}
	}
	required := map[string]string{
		"accounts.Governance":     c.Accounts.Governance,
		"accounts.Pool":           c.Accounts.Pool,
		"accounts.SwapOperator":   c.Accounts.SwapOperator,
		"accounts.SwapController": c.Accounts.SwapController,
		"accounts.WrappedNative":  c.Accounts.WrappedNative,
	}
	for field, value := range required {
		if _, err := parseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	for field, value := range map[string]string{
		"accounts.Vault":      c.Accounts.Vault,
		"accounts.VaultShare": c.Accounts.VaultShare,
		"accounts.Relayer":    c.Accounts.Relayer,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := parseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	return nil
}

// Address parses a required account field. Call Validate first.
func Address(value string) ethcommon.Address {
	parsed, err := parseAddress(value)
	if err != nil {
		return ethcommon.Address{}
	}
	return parsed
}

func parseAddress(value string) (ethcommon.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ethcommon.Address{}, fmt.Errorf("address not set")
	}
	if !ethcommon.IsHexAddress(trimmed) {
		return ethcommon.Address{}, fmt.Errorf("invalid address %q", trimmed)
	}
	return ethcommon.HexToAddress(trimmed), nil
}
