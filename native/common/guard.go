package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// Pause module identifiers consulted by the pool engines. ModuleTreasury is
// the global pause covering every state-mutating treasury entrypoint;
// ModuleSwap additionally covers the swap custody path so rebalancing can be
// halted without freezing buys, sells, and payouts.
const (
	ModuleTreasury = "treasury"
	ModuleSwap     = "swap"
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
