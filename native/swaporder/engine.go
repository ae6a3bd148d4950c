package swaporder

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/core/events"
	nativecommon "coverpool/native/common"
	"coverpool/native/treasury"
)

var (
	errNilState      = errors.New("swaporder: state not configured")
	errNilTreasury   = errors.New("swaporder: treasury engine not configured")
	errNilBackend    = errors.New("swaporder: token backend not configured")
	errNilSettlement = errors.New("swaporder: settlement protocol not configured")

	// ErrUnauthorized indicates the caller is not the registered swap
	// operator.
	ErrUnauthorized = errors.New("swaporder: caller not authorized")
	// ErrOnlyController indicates the caller is not the swap controller.
	ErrOnlyController = errors.New("swaporder: caller is not the controller")
	// ErrUnsupportedAsset indicates a request leg is unregistered or
	// abandoned.
	ErrUnsupportedAsset = errors.New("swaporder: asset not supported")
	// ErrSameAssetSwapRequest refuses a request exchanging an asset for
	// itself.
	ErrSameAssetSwapRequest = errors.New("swaporder: from and to asset are the same")
	// ErrSwapDeadlineExceeded indicates the request deadline has passed.
	ErrSwapDeadlineExceeded = errors.New("swaporder: swap deadline exceeded")
	// ErrOrderUIDMismatch indicates the caller-supplied UID disagrees with
	// the recomputed one.
	ErrOrderUIDMismatch = errors.New("swaporder: order uid mismatch")
	// ErrInvalidAsset indicates an order leg does not match the pending
	// request.
	ErrInvalidAsset = errors.New("swaporder: order asset does not match request")
	// ErrInvalidReceiver indicates the order pays out somewhere other than
	// the coordinator.
	ErrInvalidReceiver = errors.New("swaporder: order receiver is not the coordinator")
	// ErrBelowMinValidTo / ErrAboveMaxValidTo bound the order expiry
	// window.
	ErrBelowMinValidTo = errors.New("swaporder: order expiry below minimum window")
	ErrAboveMaxValidTo = errors.New("swaporder: order expiry above maximum window")
	// ErrUnsupportedTokenBalance refuses non-erc20 balance accounting.
	ErrUnsupportedTokenBalance = errors.New("swaporder: unsupported token balance kind")
	// ErrFeeNotZero refuses orders that would pay protocol fees from
	// treasury funds.
	ErrFeeNotZero = errors.New("swaporder: order fee must be zero")
	// ErrFromAmountMismatch / ErrToAmountTooLow guard exact-input orders.
	ErrFromAmountMismatch = errors.New("swaporder: sell amount does not match request")
	ErrToAmountTooLow     = errors.New("swaporder: buy amount below requested minimum")
	// ErrFromAmountTooHigh / ErrToAmountMismatch guard exact-output
	// orders.
	ErrFromAmountTooHigh = errors.New("swaporder: sell amount above requested maximum")
	ErrToAmountMismatch  = errors.New("swaporder: buy amount does not match request")
	// ErrVaultShareInOrder refuses routing vault shares through the order
	// protocol; they only move through the direct swap operations.
	ErrVaultShareInOrder = errors.New("swaporder: vault shares cannot be traded through orders")
	// ErrZeroBalance indicates there is nothing to recover.
	ErrZeroBalance = errors.New("swaporder: zero balance")
	// ErrUnsupportedSwapKind indicates a direct vault swap against a
	// request that is not exact-input.
	ErrUnsupportedSwapKind = errors.New("swaporder: request kind not supported for this operation")
)

// Order expiry must land inside [now+MinValidToPeriod, now+MaxValidToPeriod].
const (
	MinValidToPeriod int64 = 600
	MaxValidToPeriod int64 = 31 * 24 * 3600
)

type engineState interface {
	SlotGet() (*Slot, error)
	SlotPut(*Slot) error
}

// Settlement is the external order-book protocol the coordinator presigns
// orders against.
type Settlement interface {
	DomainSeparator() ([32]byte, error)
	SetPresignature(uid OrderUID, signed bool) error
	Presignature(uid OrderUID) (bool, error)
}

// TokenBackend extends the treasury backend with native wrapping, which the
// coordinator needs because the settlement protocol only trades tokens.
type TokenBackend interface {
	treasury.TokenBackend
	Wrap(owner ethcommon.Address, amount *big.Int) error
	Unwrap(owner ethcommon.Address, amount *big.Int) error
}

// Engine realizes treasury-approved swap requests as presigned settlement
// orders or direct vault-share swaps, and reconciles the result back into the
// treasury. It holds custody only between placement and closure, guarded by
// the single-slot invariant.
type Engine struct {
	state      engineState
	treasury   *treasury.Engine
	backend    TokenBackend
	settlement Settlement
	vault      VaultProtocol
	emitter    events.Emitter
	pauses     nativecommon.PauseView
	nowFn      func() int64

	self          ethcommon.Address
	controller    ethcommon.Address
	operator      ethcommon.Address
	wrappedNative ethcommon.Address
	vaultShare    ethcommon.Address
	vaultAddr     ethcommon.Address
	relayer       ethcommon.Address
}

// NewEngine constructs a coordinator bound to the supplied treasury engine.
func NewEngine(pool *treasury.Engine) *Engine {
	return &Engine{
		treasury: pool,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBackend configures the token transfer backend.
func (e *Engine) SetBackend(backend TokenBackend) { e.backend = backend }

// SetSettlement configures the external settlement protocol.
func (e *Engine) SetSettlement(s Settlement) { e.settlement = s }

// SetVault configures the vault-share protocol and its addresses.
func (e *Engine) SetVault(v VaultProtocol, vaultAddr, shareToken ethcommon.Address) {
	e.vault = v
	e.vaultAddr = vaultAddr
	e.vaultShare = shareToken
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the pause view consulted by mutating entrypoints.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetSelf registers the coordinator's own custody account. It must match the
// swap operator registered with the treasury.
func (e *Engine) SetSelf(addr ethcommon.Address) { e.self = addr }

// SetController registers the address allowed to place and close orders.
func (e *Engine) SetController(addr ethcommon.Address) { e.controller = addr }

// SetOperator registers the address allowed to create swap requests.
func (e *Engine) SetOperator(addr ethcommon.Address) { e.operator = addr }

// SetWrappedNative registers the wrapped form of the native asset.
func (e *Engine) SetWrappedNative(addr ethcommon.Address) { e.wrappedNative = addr }

// SetRelayer registers the settlement protocol's spender account.
func (e *Engine) SetRelayer(addr ethcommon.Address) { e.relayer = addr }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	switch {
	case e.state == nil:
		return errNilState
	case e.treasury == nil:
		return errNilTreasury
	case e.backend == nil:
		return errNilBackend
	default:
		return nil
	}
}

// wrapped maps the treasury's native sentinel to the wrapped token; every
// other asset passes through unchanged.
func (e *Engine) wrapped(asset ethcommon.Address) ethcommon.Address {
	if asset == treasury.NativeAsset {
		return e.wrappedNative
	}
	return asset
}

// Phase reports the coordinator's current lifecycle phase.
func (e *Engine) Phase() (Phase, error) {
	if e.state == nil {
		return PhaseIdle, errNilState
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return PhaseIdle, err
	}
	return slot.Phase, nil
}

// PendingRequest returns a copy of the pending swap request, if any.
func (e *Engine) PendingRequest() (*SwapRequest, error) {
	if e.state == nil {
		return nil, errNilState
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return nil, err
	}
	if slot.Phase != PhaseRequestPending {
		return nil, ErrNoSwapRequest
	}
	return slot.Request.Clone(), nil
}

// RequestAssetSwap records a new pending swap instruction. Operator only.
// A newer instruction always wins: any pending request is superseded.
func (e *Engine) RequestAssetSwap(caller ethcommon.Address, req *SwapRequest) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSwap); err != nil {
		return err
	}
	if e.operator == (ethcommon.Address{}) || caller != e.operator {
		return ErrUnauthorized
	}
	if err := e.ready(); err != nil {
		return err
	}
	if req == nil {
		return ErrNoSwapRequest
	}
	for _, leg := range []ethcommon.Address{req.FromAsset, req.ToAsset} {
		record, ok, err := e.treasury.AssetOf(leg)
		if err != nil {
			return err
		}
		if !ok || record.IsAbandoned {
			return fmt.Errorf("%w: %s", ErrUnsupportedAsset, leg.Hex())
		}
	}
	if e.wrapped(req.FromAsset) == e.wrapped(req.ToAsset) {
		return ErrSameAssetSwapRequest
	}
	now := e.now()
	if req.Deadline <= now {
		return fmt.Errorf("%w: deadline %d, now %d", ErrSwapDeadlineExceeded, req.Deadline, now)
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return err
	}
	superseded, err := slot.BeginRequest(req)
	if err != nil {
		return err
	}
	if err := e.state.SlotPut(slot); err != nil {
		return err
	}
	if superseded {
		e.emit(SwapRequestSuperseded{Request: req.Clone()})
	}
	e.emit(SwapRequested{Request: req.Clone()})
	return nil
}

// PlaceOrder validates an order against the pending request, pulls custody of
// the sell leg from the treasury, and presigns the order with the settlement
// protocol. Controller only.
func (e *Engine) PlaceOrder(caller ethcommon.Address, order *Order, uid OrderUID) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSwap); err != nil {
		return err
	}
	if e.controller == (ethcommon.Address{}) || caller != e.controller {
		return ErrOnlyController
	}
	if err := e.ready(); err != nil {
		return err
	}
	if e.settlement == nil {
		return errNilSettlement
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return err
	}
	if slot.Phase == PhaseOrderInProgress {
		return ErrOrderInProgress
	}
	if slot.Phase != PhaseRequestPending {
		return ErrNoSwapRequest
	}
	req := slot.Request

	domain, err := e.settlement.DomainSeparator()
	if err != nil {
		return err
	}
	if computed := ComputeOrderUID(order, domain); computed != uid {
		return fmt.Errorf("%w: computed %s, supplied %s", ErrOrderUIDMismatch, computed.Hex(), uid.Hex())
	}
	now := e.now()
	if err := e.validateOrder(order, req, now); err != nil {
		return err
	}

	if err := slot.BeginOrder(order, uid); err != nil {
		return err
	}

	sellAmount := new(big.Int).Set(order.SellAmount)
	if err := e.treasury.TransferAssetToSwapOperator(e.self, req.FromAsset, sellAmount); err != nil {
		return err
	}
	// Custody is held from here on. Any later failure returns the
	// delegated funds to the pool and releases the custody slot, so the
	// request stays pending and the placement can be retried.
	rollback := func() {
		_ = e.backend.Approve(order.SellToken, e.self, e.relayer, big.NewInt(0))
		_, _ = e.sweepToTreasury(order.SellToken, req.FromAsset)
		if req.FromAsset == treasury.NativeAsset {
			_, _ = e.sweepToTreasury(treasury.NativeAsset, treasury.NativeAsset)
		}
		_ = e.treasury.ClearSwapAssetAmount(e.self, req.FromAsset)
	}
	if req.FromAsset == treasury.NativeAsset {
		if err := e.backend.Wrap(e.self, sellAmount); err != nil {
			rollback()
			return err
		}
	}
	if err := e.backend.Approve(order.SellToken, e.self, e.relayer, sellAmount); err != nil {
		rollback()
		return err
	}
	if err := e.settlement.SetPresignature(uid, true); err != nil {
		rollback()
		return err
	}
	for _, leg := range []ethcommon.Address{req.FromAsset, req.ToAsset} {
		if err := e.treasury.SetLastSwapTime(e.self, leg, now); err != nil {
			_ = e.settlement.SetPresignature(uid, false)
			rollback()
			return err
		}
	}
	if err := e.state.SlotPut(slot); err != nil {
		_ = e.settlement.SetPresignature(uid, false)
		rollback()
		return err
	}
	e.emit(OrderPlaced{Order: order.Clone(), UID: uid})
	return nil
}

func (e *Engine) validateOrder(order *Order, req *SwapRequest, now int64) error {
	if req.Deadline <= now {
		return fmt.Errorf("%w: deadline %d, now %d", ErrSwapDeadlineExceeded, req.Deadline, now)
	}
	if order.SellToken != e.wrapped(req.FromAsset) || order.BuyToken != e.wrapped(req.ToAsset) {
		return fmt.Errorf("%w: sell %s buy %s", ErrInvalidAsset, order.SellToken.Hex(), order.BuyToken.Hex())
	}
	if e.vaultShare != (ethcommon.Address{}) && (order.SellToken == e.vaultShare || order.BuyToken == e.vaultShare) {
		return ErrVaultShareInOrder
	}
	if order.Receiver != e.self {
		return fmt.Errorf("%w: %s", ErrInvalidReceiver, order.Receiver.Hex())
	}
	if order.ValidTo < now+MinValidToPeriod {
		return fmt.Errorf("%w: validTo %d", ErrBelowMinValidTo, order.ValidTo)
	}
	if order.ValidTo > now+MaxValidToPeriod {
		return fmt.Errorf("%w: validTo %d", ErrAboveMaxValidTo, order.ValidTo)
	}
	if order.SellTokenBalance != BalanceKindERC20 || order.BuyTokenBalance != BalanceKindERC20 {
		return ErrUnsupportedTokenBalance
	}
	if order.FeeAmount != nil && order.FeeAmount.Sign() != 0 {
		return fmt.Errorf("%w: fee %s", ErrFeeNotZero, order.FeeAmount)
	}
	if order.SellAmount == nil || order.BuyAmount == nil {
		return ErrInvalidAsset
	}
	switch req.Kind {
	case ExactInput:
		if order.SellAmount.Cmp(req.FromAmount) != 0 {
			return fmt.Errorf("%w: order %s, request %s", ErrFromAmountMismatch, order.SellAmount, req.FromAmount)
		}
		if order.BuyAmount.Cmp(req.ToAmount) < 0 {
			return fmt.Errorf("%w: order %s, request %s", ErrToAmountTooLow, order.BuyAmount, req.ToAmount)
		}
	case ExactOutput:
		if order.SellAmount.Cmp(req.FromAmount) > 0 {
			return fmt.Errorf("%w: order %s, request %s", ErrFromAmountTooHigh, order.SellAmount, req.FromAmount)
		}
		if order.BuyAmount.Cmp(req.ToAmount) != 0 {
			return fmt.Errorf("%w: order %s, request %s", ErrToAmountMismatch, order.BuyAmount, req.ToAmount)
		}
	}
	return nil
}

// CloseOrder reconciles the outstanding order: whatever the coordinator now
// holds of the buy asset is the fill (possibly partial, possibly zero) and is
// returned to the treasury together with any unspent sell-side funds. Closing
// an unfilled order is therefore a cancel. Controller only.
func (e *Engine) CloseOrder(caller ethcommon.Address, order *Order) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSwap); err != nil {
		return err
	}
	if e.controller == (ethcommon.Address{}) || caller != e.controller {
		return ErrOnlyController
	}
	if err := e.ready(); err != nil {
		return err
	}
	if e.settlement == nil {
		return errNilSettlement
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return err
	}
	if slot.Phase != PhaseOrderInProgress {
		return ErrNoOrderInProgress
	}
	domain, err := e.settlement.DomainSeparator()
	if err != nil {
		return err
	}
	if computed := ComputeOrderUID(order, domain); computed != slot.UID {
		return fmt.Errorf("%w: computed %s, stored %s", ErrOrderUIDMismatch, computed.Hex(), slot.UID.Hex())
	}
	req := slot.Request
	uid := slot.UID

	// The order record is only cleared once every reconciliation step has
	// succeeded. A failure part way through leaves the order on file and
	// the close can be retried; the sweeps are no-ops on zero balances.
	if err := e.settlement.SetPresignature(uid, false); err != nil {
		return err
	}
	received, err := e.sweepToTreasury(order.BuyToken, req.ToAsset)
	if err != nil {
		return err
	}
	returned, err := e.sweepToTreasury(order.SellToken, req.FromAsset)
	if err != nil {
		return err
	}
	if err := e.backend.Approve(order.SellToken, e.self, e.relayer, big.NewInt(0)); err != nil {
		return err
	}
	if err := e.treasury.ClearSwapAssetAmount(e.self, req.FromAsset); err != nil {
		return err
	}
	if err := slot.CloseOrder(); err != nil {
		return err
	}
	if err := e.state.SlotPut(slot); err != nil {
		return err
	}
	e.emit(OrderClosed{UID: uid, Received: received, Returned: returned})
	return nil
}

// sweepToTreasury moves the coordinator's entire balance of token back to the
// pool account, unwrapping first when the pool tracks the leg as native.
func (e *Engine) sweepToTreasury(token, poolAsset ethcommon.Address) (*big.Int, error) {
	balance, err := e.backend.BalanceOf(token, e.self)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return balance, nil
	}
	if poolAsset == treasury.NativeAsset && token == e.wrappedNative {
		if err := e.backend.Unwrap(e.self, balance); err != nil {
			return nil, err
		}
		token = treasury.NativeAsset
	}
	if err := e.backend.Transfer(token, e.self, e.treasury.PoolAddress(), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// RecoverAsset is the controller's escape hatch for funds stuck in the
// coordinator outside any order. Vault shares and abandoned assets may only
// return to the treasury; anything else goes to the supplied receiver.
func (e *Engine) RecoverAsset(caller, asset, receiver ethcommon.Address) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSwap); err != nil {
		return err
	}
	if e.controller == (ethcommon.Address{}) || caller != e.controller {
		return ErrOnlyController
	}
	if err := e.ready(); err != nil {
		return err
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return err
	}
	if slot.Phase == PhaseOrderInProgress {
		return ErrOrderInProgress
	}
	balance, err := e.backend.BalanceOf(asset, e.self)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return ErrZeroBalance
	}
	if asset == e.wrappedNative {
		if err := e.backend.Unwrap(e.self, balance); err != nil {
			return err
		}
		asset = treasury.NativeAsset
	}
	destination := receiver
	record, registered, err := e.treasury.AssetOf(asset)
	if err != nil {
		return err
	}
	if asset == e.vaultShare || (registered && record.IsAbandoned) {
		destination = e.treasury.PoolAddress()
	}
	if err := e.backend.Transfer(asset, e.self, destination, balance); err != nil {
		return err
	}
	e.emit(AssetRecovered{Asset: asset, Destination: destination, Amount: balance})
	return nil
}
