package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coverpool/config"
	"coverpool/core/events"
	"coverpool/core/types"
	nativecommon "coverpool/native/common"
	"coverpool/native/mcr"
	"coverpool/native/swaporder"
	"coverpool/native/treasury"
	"coverpool/observability"
	"coverpool/observability/metrics"
	poolstate "coverpool/state/pool"
)

// node bundles the wired engines behind the daemon's HTTP surface.
type node struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *poolstate.Store
	ledger   *poolstate.TokenLedger
	pool     *treasury.Engine
	capital  *mcr.Engine
	swap     *swaporder.Engine
	govAddr  ethcommon.Address
	poolAddr ethcommon.Address
}

type pauseTable map[string]bool

func (p pauseTable) IsPaused(module string) bool { return p[module] }

// logEmitter surfaces engine events as structured log lines.
type logEmitter struct{ logger *slog.Logger }

func (l logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	if provider, ok := evt.(interface{ Event() *types.Event }); ok {
		if record := provider.Event(); record != nil {
			args := make([]any, 0, len(record.Attributes)*2)
			for key, value := range record.Attributes {
				args = append(args, key, value)
			}
			l.logger.Info(record.Type, args...)
			return
		}
	}
	l.logger.Info(evt.EventType())
}

func wire(cfg *config.Config, logger *slog.Logger) (*node, error) {
	params := mcr.Params{
		MaxDailyIncrementBps: uint64(cfg.MCR.MaxDailyIncreaseBps),
		MaxAdjustmentBps:     uint64(cfg.MCR.MaxUpdateStepBps),
		MinUpdateTime:        cfg.MCR.MinUpdateSeconds,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	store := poolstate.NewStore()
	if initial, ok := cfg.MCR.InitialWei(); ok {
		seed := &mcr.State{Stored: initial, Desired: new(big.Int).Set(initial)}
		if err := store.MCRPut(seed); err != nil {
			return nil, err
		}
	}
	wrappedNative := config.Address(cfg.Accounts.WrappedNative)
	ledger := poolstate.NewTokenLedger(wrappedNative)

	pauses := pauseTable{
		nativecommon.ModuleTreasury: cfg.Pauses.Treasury,
		nativecommon.ModuleSwap:     cfg.Pauses.Swap,
	}
	emitter := observability.NewMeteredEmitter(logEmitter{logger: logger})

	capital := mcr.NewEngine(params)
	capital.SetState(store)
	capital.SetEmitter(emitter)
	capital.SetPauses(pauses)

	govAddr := config.Address(cfg.Accounts.Governance)
	poolAddr := config.Address(cfg.Accounts.Pool)
	operatorAddr := config.Address(cfg.Accounts.SwapOperator)
	controllerAddr := config.Address(cfg.Accounts.SwapController)

	pool := treasury.NewEngine()
	pool.SetState(store)
	pool.SetBackend(ledger)
	pool.SetPriceFeed(ledger)
	pool.SetMinter(ledger.Minter())
	pool.SetMCR(capital)
	pool.SetEmitter(emitter)
	pool.SetPauses(pauses)
	pool.SetPoolAddress(poolAddr)
	pool.SetGovernance(govAddr)
	pool.SetSwapOperator(operatorAddr)

	swap := swaporder.NewEngine(pool)
	swap.SetState(store)
	swap.SetBackend(ledger)
	swap.SetEmitter(emitter)
	swap.SetPauses(pauses)
	swap.SetSelf(operatorAddr)
	swap.SetController(controllerAddr)
	swap.SetOperator(operatorAddr)
	swap.SetWrappedNative(wrappedNative)
	if relayer := cfg.Accounts.Relayer; relayer != "" {
		swap.SetRelayer(config.Address(relayer))
	}

	if err := pool.AddAsset(govAddr, treasury.NativeAsset, true, nil, nil, nil); err != nil {
		return nil, err
	}

	return &node{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		ledger:   ledger,
		pool:     pool,
		capital:  capital,
		swap:     swap,
		govAddr:  govAddr,
		poolAddr: poolAddr,
	}, nil
}

func (n *node) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/pool", n.handlePoolStatus)
	r.Get("/v1/pool/assets", n.handlePoolAssets)
	return r
}

type poolStatus struct {
	PoolValueWei    string `json:"poolValueWei"`
	MCRWei          string `json:"mcrWei"`
	CapitalRatioBps string `json:"capitalRatioBps"`
	SpotPriceWei    string `json:"spotPriceWei"`
	Phase           string `json:"swapPhase"`
	CustodyAsset    string `json:"custodyAsset,omitempty"`
	CustodyWei      string `json:"custodyWei,omitempty"`
}

func (n *node) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	value, err := n.pool.PoolValueInEth()
	if err != nil {
		n.fail(w, "pool value", err)
		return
	}
	mcrEth, err := n.pool.MCREth()
	if err != nil {
		n.fail(w, "mcr", err)
		return
	}
	ratio := big.NewInt(0)
	spot := big.NewInt(0)
	if mcrEth.Sign() > 0 {
		if ratio, err = n.pool.CapitalRatioBps(); err != nil {
			n.fail(w, "capital ratio", err)
			return
		}
		if spot, err = n.pool.SpotPrice(); err != nil {
			n.fail(w, "spot price", err)
			return
		}
	}
	phase, err := n.swap.Phase()
	if err != nil {
		n.fail(w, "swap phase", err)
		return
	}
	status := poolStatus{
		PoolValueWei:    value.String(),
		MCRWei:          mcrEth.String(),
		CapitalRatioBps: ratio.String(),
		SpotPriceWei:    spot.String(),
		Phase:           phaseName(phase),
	}
	custody, err := n.pool.Custody()
	if err != nil {
		n.fail(w, "custody", err)
		return
	}
	if !custody.Empty() {
		status.CustodyAsset = custody.Asset.Hex()
		status.CustodyWei = custody.Amount.String()
	}
	writeJSON(w, status)
}

type assetStatus struct {
	Address      string `json:"address"`
	IsCoverAsset bool   `json:"isCoverAsset"`
	IsAbandoned  bool   `json:"isAbandoned"`
	BalanceWei   string `json:"balanceWei"`
}

func (n *node) handlePoolAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := n.store.AssetList()
	if err != nil {
		n.fail(w, "asset list", err)
		return
	}
	out := make([]assetStatus, 0, len(assets))
	for _, asset := range assets {
		balance, err := n.ledger.BalanceOf(asset.Address, n.poolAddr)
		if err != nil {
			n.fail(w, "asset balance", err)
			return
		}
		out = append(out, assetStatus{
			Address:      asset.Address.Hex(),
			IsCoverAsset: asset.IsCoverAsset,
			IsAbandoned:  asset.IsAbandoned,
			BalanceWei:   balance.String(),
		})
	}
	writeJSON(w, out)
}

func (n *node) fail(w http.ResponseWriter, what string, err error) {
	n.logger.Error("request failed", "component", what, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func phaseName(phase swaporder.Phase) string {
	switch phase {
	case swaporder.PhaseRequestPending:
		return "request_pending"
	case swaporder.PhaseOrderInProgress:
		return "order_in_progress"
	default:
		return "idle"
	}
}

// collectMetrics refreshes the capital gauges until ctx is cancelled.
func (n *node) collectMetrics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n.refreshGauges()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (n *node) refreshGauges() {
	registry := metrics.Pool()
	if value, err := n.pool.PoolValueInEth(); err == nil {
		registry.SetPoolValueEth(weiToEther(value))
	}
	if mcrEth, err := n.pool.MCREth(); err == nil {
		registry.SetMCREth(weiToEther(mcrEth))
	}
	if ratio, err := n.pool.CapitalRatioBps(); err == nil {
		asFloat, _ := new(big.Float).SetInt(ratio).Float64()
		registry.SetCapitalRatioBps(asFloat)
	}
}

var etherUnit = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

func weiToEther(wei *big.Int) float64 {
	value := new(big.Float).SetInt(wei)
	value.Quo(value, etherUnit)
	out, _ := value.Float64()
	return out
}
