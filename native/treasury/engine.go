package treasury

import (
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/core/events"
	nativecommon "coverpool/native/common"
	"coverpool/native/mcr"
	"coverpool/native/pricing"
)

var (
	errNilState   = errors.New("treasury: state not configured")
	errNilBackend = errors.New("treasury: token backend not configured")
	errNilFeed    = errors.New("treasury: price feed not configured")
	errNilMinter  = errors.New("treasury: token minter not configured")
	errNilMCR     = errors.New("treasury: capital requirement engine not configured")

	// ErrUnauthorized indicates the caller does not hold the role the
	// entrypoint requires.
	ErrUnauthorized = errors.New("treasury: caller not authorized")
	// ErrAssetExists indicates the asset is already registered.
	ErrAssetExists = errors.New("treasury: asset already registered")
	// ErrPriceFeedMissing indicates the price feed has no quote path for
	// the asset being registered.
	ErrPriceFeedMissing = errors.New("treasury: price feed has no quote for asset")
	// ErrUnknownAsset indicates the asset is not registered.
	ErrUnknownAsset = errors.New("treasury: asset not registered")
	// ErrNativeAssetFirst refuses token registration before the native
	// asset; list position zero always belongs to the native coin.
	ErrNativeAssetFirst = errors.New("treasury: native asset must be registered first")
	// ErrSwapBoundsInverted indicates min exceeds max in swap details.
	ErrSwapBoundsInverted = errors.New("treasury: swap minimum exceeds maximum")
	// ErrInvalidSlippageRatio indicates a slippage ratio above 1.0.
	ErrInvalidSlippageRatio = errors.New("treasury: max slippage ratio exceeds 1.0")
	// ErrMaxNotZero refuses a governance transfer of an asset that is
	// still actively managed (non-zero max swap amount).
	ErrMaxNotZero = errors.New("treasury: asset max amount is not zero")
	// ErrAssetInCustody indicates the custody slot is already occupied.
	ErrAssetInCustody = errors.New("treasury: asset already delegated to swap agent")
	// ErrNoCustodyEntry indicates no funds are delegated at present.
	ErrNoCustodyEntry = errors.New("treasury: no delegated swap amount found")
	// ErrCustodyAssetMismatch indicates the custody slot holds a
	// different asset than the one named.
	ErrCustodyAssetMismatch = errors.New("treasury: custody slot asset mismatch")
	// ErrZeroEthIn rejects zero-value token purchases.
	ErrZeroEthIn = errors.New("treasury: purchase amount is zero")
	// ErrMCRTooHigh refuses purchases above a 400% capital ratio.
	ErrMCRTooHigh = errors.New("treasury: capital ratio above purchase ceiling")
	// ErrBelowMinMCR refuses sales that would push the capital ratio
	// under 100%.
	ErrBelowMinMCR = errors.New("treasury: capital ratio would drop below minimum")
	// ErrSlippageExceeded indicates the computed amount fell short of the
	// caller's minimum.
	ErrSlippageExceeded = errors.New("treasury: output below caller minimum")
	// ErrInsufficientBalance indicates the caller or pool balance cannot
	// cover the requested amount.
	ErrInsufficientBalance = errors.New("treasury: insufficient balance")
)

// Capital ratio gates in four-decimal fixed point.
var (
	maxBuyRatioBps  = big.NewInt(40_000)
	minSellRatioBps = big.NewInt(10_000)
)

// State exposes the persisted pool records the engine operates on.
type State interface {
	AssetList() ([]Asset, error)
	AssetGet(addr ethcommon.Address) (Asset, bool, error)
	AssetPut(asset Asset) error
	SwapDetailsGet(addr ethcommon.Address) (*SwapDetails, bool, error)
	SwapDetailsPut(addr ethcommon.Address, details *SwapDetails) error
	CustodyGet() (*CustodySlot, error)
	CustodyPut(slot *CustodySlot) error
}

// TokenBackend abstracts balance movement for pool assets. The native coin is
// addressed through the NativeAsset sentinel; fungible tokens through their
// contract address.
type TokenBackend interface {
	BalanceOf(asset, holder ethcommon.Address) (*big.Int, error)
	Transfer(asset, from, to ethcommon.Address, amount *big.Int) error
	Approve(asset, owner, spender ethcommon.Address, amount *big.Int) error
}

// PriceFeed quotes registered assets against the native coin.
type PriceFeed interface {
	PriceInEth(asset ethcommon.Address, amount *big.Int) (*big.Int, error)
	EthToAsset(asset ethcommon.Address, ethAmount *big.Int) (*big.Int, error)
	HasQuote(asset ethcommon.Address) bool
}

// TokenMinter mints and burns the membership token priced by the pool.
type TokenMinter interface {
	Mint(to ethcommon.Address, amount *big.Int) error
	Burn(from ethcommon.Address, amount *big.Int) error
	BalanceOf(addr ethcommon.Address) (*big.Int, error)
	TotalSupply() (*big.Int, error)
}

// Engine is the capital pool: it registers assets, prices the membership
// token against pool value, pays claims, and delegates bounded custody to the
// swap agent.
type Engine struct {
	state   State
	backend TokenBackend
	feed    PriceFeed
	minter  TokenMinter
	mcr     *mcr.Engine
	emitter events.Emitter
	pauses  nativecommon.PauseView

	pool          ethcommon.Address
	governance    ethcommon.Address
	swapOperator  ethcommon.Address
	claimsSettler ethcommon.Address
}

// NewEngine constructs a treasury engine; collaborators are wired through the
// Set* methods before first use.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend.
func (e *Engine) SetState(state State) { e.state = state }

// SetBackend configures the token transfer backend.
func (e *Engine) SetBackend(backend TokenBackend) { e.backend = backend }

// SetPriceFeed configures the oracle collaborator.
func (e *Engine) SetPriceFeed(feed PriceFeed) { e.feed = feed }

// SetMinter configures the membership token mint/burn collaborator.
func (e *Engine) SetMinter(minter TokenMinter) { e.minter = minter }

// SetMCR configures the capital requirement engine consulted by pricing.
func (e *Engine) SetMCR(engine *mcr.Engine) { e.mcr = engine }

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

// SetPoolAddress registers the account holding pool funds.
func (e *Engine) SetPoolAddress(addr ethcommon.Address) { e.pool = addr }

// PoolAddress returns the account holding pool funds.
func (e *Engine) PoolAddress() ethcommon.Address { return e.pool }

// SetGovernance registers the governance role address.
func (e *Engine) SetGovernance(addr ethcommon.Address) { e.governance = addr }

// SetSwapOperator registers the swap agent allowed to take custody.
func (e *Engine) SetSwapOperator(addr ethcommon.Address) { e.swapOperator = addr }

// SwapOperator returns the registered swap agent address.
func (e *Engine) SwapOperator() ethcommon.Address { return e.swapOperator }

// SetClaimsSettler registers the claims settlement collaborator.
func (e *Engine) SetClaimsSettler(addr ethcommon.Address) { e.claimsSettler = addr }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) requireRole(caller, role ethcommon.Address) error {
	if role == (ethcommon.Address{}) || caller != role {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) ready() error {
	switch {
	case e.state == nil:
		return errNilState
	case e.backend == nil:
		return errNilBackend
	default:
		return nil
	}
}

// AddAsset registers a new pool asset together with its trade bounds.
// Governance only.
func (e *Engine) AddAsset(caller, asset ethcommon.Address, isCoverAsset bool, minAmount, maxAmount, maxSlippageRatio *big.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := e.requireRole(caller, e.governance); err != nil {
		return err
	}
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.AssetGet(asset); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset.Hex())
	}
	if asset != NativeAsset {
		if _, ok, err := e.state.AssetGet(NativeAsset); err != nil {
			return err
		} else if !ok {
			return ErrNativeAssetFirst
		}
		if e.feed == nil {
			return errNilFeed
		}
		if !e.feed.HasQuote(asset) {
			return fmt.Errorf("%w: %s", ErrPriceFeedMissing, asset.Hex())
		}
	}
	details, err := normalizedDetails(minAmount, maxAmount, maxSlippageRatio)
	if err != nil {
		return err
	}
	if err := e.state.AssetPut(Asset{Address: asset, IsCoverAsset: isCoverAsset}); err != nil {
		return err
	}
	if err := e.state.SwapDetailsPut(asset, details); err != nil {
		return err
	}
	e.emit(AssetAdded{Asset: asset, IsCoverAsset: isCoverAsset, MinAmount: details.MinAmount, MaxAmount: details.MaxAmount})
	return nil
}

// SetAssetDetails toggles the cover and abandonment flags of a registered
// asset. Governance only; the asset keeps its list position.
func (e *Engine) SetAssetDetails(caller, asset ethcommon.Address, isCoverAsset, isAbandoned bool) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := e.requireRole(caller, e.governance); err != nil {
		return err
	}
	if e.state == nil {
		return errNilState
	}
	record, ok, err := e.state.AssetGet(asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	record.IsCoverAsset = isCoverAsset
	record.IsAbandoned = isAbandoned
	if err := e.state.AssetPut(record); err != nil {
		return err
	}
	e.emit(AssetUpdated{Asset: asset, IsCoverAsset: isCoverAsset, IsAbandoned: isAbandoned})
	return nil
}

// SetSwapDetails replaces the trade bounds of a registered asset. Governance
// only; the last swap timestamp is preserved.
func (e *Engine) SetSwapDetails(caller, asset ethcommon.Address, minAmount, maxAmount, maxSlippageRatio *big.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := e.requireRole(caller, e.governance); err != nil {
		return err
	}
	if e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.AssetGet(asset); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	details, err := normalizedDetails(minAmount, maxAmount, maxSlippageRatio)
	if err != nil {
		return err
	}
	if prev, ok, err := e.state.SwapDetailsGet(asset); err != nil {
		return err
	} else if ok {
		details.LastSwapTime = prev.LastSwapTime
	}
	return e.state.SwapDetailsPut(asset, details)
}

// SetLastSwapTime stamps the asset's most recent swap. Swap agent only.
func (e *Engine) SetLastSwapTime(caller, asset ethcommon.Address, when int64) error {
	if err := e.requireRole(caller, e.swapOperator); err != nil {
		return err
	}
	if e.state == nil {
		return errNilState
	}
	details, ok, err := e.state.SwapDetailsGet(asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	next := details.Clone()
	next.LastSwapTime = when
	return e.state.SwapDetailsPut(asset, next)
}

// SwapDetailsOf returns the trade bounds recorded for an asset.
func (e *Engine) SwapDetailsOf(asset ethcommon.Address) (*SwapDetails, error) {
	if e.state == nil {
		return nil, errNilState
	}
	details, ok, err := e.state.SwapDetailsGet(asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	return details.Clone(), nil
}

// AssetOf returns the registered record for an asset address.
func (e *Engine) AssetOf(asset ethcommon.Address) (Asset, bool, error) {
	if e.state == nil {
		return Asset{}, false, errNilState
	}
	return e.state.AssetGet(asset)
}

// TransferAsset is the governance escape hatch moving pool funds to an
// arbitrary destination. Refused while the asset still has a non-zero max
// trade amount so actively managed assets cannot be drained silently.
func (e *Engine) TransferAsset(caller, asset, destination ethcommon.Address, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := e.requireRole(caller, e.governance); err != nil {
		return err
	}
	if err := e.ready(); err != nil {
		return err
	}
	if details, ok, err := e.state.SwapDetailsGet(asset); err != nil {
		return err
	} else if ok && details.MaxAmount != nil && details.MaxAmount.Sign() != 0 {
		return fmt.Errorf("%w: %s", ErrMaxNotZero, asset.Hex())
	}
	balance, err := e.backend.BalanceOf(asset, e.pool)
	if err != nil {
		return err
	}
	if amount == nil || amount.Cmp(balance) > 0 {
		amount = balance
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := e.backend.Transfer(asset, e.pool, destination, amount); err != nil {
		return err
	}
	e.emit(AssetTransferred{Asset: asset, Destination: destination, Amount: amount})
	return nil
}

// TransferAssetToSwapOperator delegates custody of a bounded amount to the
// registered swap agent and records it in the single custody slot. Swap agent
// only; refused while any delegation is outstanding.
func (e *Engine) TransferAssetToSwapOperator(caller, asset ethcommon.Address, amount *big.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSwap); err != nil {
		return err
	}
	if err := e.requireRole(caller, e.swapOperator); err != nil {
		return err
	}
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.AssetGet(asset); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
	}
	slot, err := e.state.CustodyGet()
	if err != nil {
		return err
	}
	if !slot.Empty() {
		return fmt.Errorf("%w: %s holds %s", ErrAssetInCustody, slot.Asset.Hex(), slot.Amount)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: zero delegation", ErrInsufficientBalance)
	}
	balance, err := e.backend.BalanceOf(asset, e.pool)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: pool holds %s, delegation wants %s", ErrInsufficientBalance, balance, amount)
	}
	if err := e.state.CustodyPut(&CustodySlot{Asset: asset, Amount: new(big.Int).Set(amount)}); err != nil {
		return err
	}
	if err := e.backend.Transfer(asset, e.pool, e.swapOperator, amount); err != nil {
		return err
	}
	e.emit(CustodyDelegated{Asset: asset, Amount: amount})
	return nil
}

// ClearSwapAssetAmount zeroes the custody slot once the swap agent has
// reconciled a delegation. Swap agent only.
func (e *Engine) ClearSwapAssetAmount(caller, asset ethcommon.Address) error {
	if err := e.requireRole(caller, e.swapOperator); err != nil {
		return err
	}
	if e.state == nil {
		return errNilState
	}
	slot, err := e.state.CustodyGet()
	if err != nil {
		return err
	}
	if slot.Empty() {
		return ErrNoCustodyEntry
	}
	if slot.Asset != asset {
		return fmt.Errorf("%w: slot holds %s, caller named %s", ErrCustodyAssetMismatch, slot.Asset.Hex(), asset.Hex())
	}
	if err := e.state.CustodyPut(&CustodySlot{}); err != nil {
		return err
	}
	e.emit(CustodyCleared{Asset: asset})
	return nil
}

// Custody returns a copy of the current custody slot.
func (e *Engine) Custody() (*CustodySlot, error) {
	if e.state == nil {
		return nil, errNilState
	}
	slot, err := e.state.CustodyGet()
	if err != nil {
		return nil, err
	}
	return slot.Clone(), nil
}

// PoolValueInEth sums the pool's holdings across every registered asset,
// converted at the oracle rate. Funds delegated to the swap agent remain part
// of pool value until the delegation is reconciled.
func (e *Engine) PoolValueInEth() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	assets, err := e.state.AssetList()
	if err != nil {
		return nil, err
	}
	slot, err := e.state.CustodyGet()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, asset := range assets {
		balance, err := e.backend.BalanceOf(asset.Address, e.pool)
		if err != nil {
			return nil, err
		}
		balance = new(big.Int).Set(balance)
		if !slot.Empty() && slot.Asset == asset.Address {
			balance.Add(balance, slot.Amount)
		}
		if balance.Sign() == 0 {
			continue
		}
		if asset.Address == NativeAsset {
			total.Add(total, balance)
			continue
		}
		if e.feed == nil {
			return nil, errNilFeed
		}
		value, err := e.feed.PriceInEth(asset.Address, balance)
		if err != nil {
			return nil, err
		}
		total.Add(total, value)
	}
	return total, nil
}

// MCREth returns the current capital requirement projection.
func (e *Engine) MCREth() (*big.Int, error) {
	if e.mcr == nil {
		return nil, errNilMCR
	}
	return e.mcr.Current()
}

// CapitalRatioBps returns pool value over capital requirement in four-decimal
// fixed point (10000 = 100%).
func (e *Engine) CapitalRatioBps() (*big.Int, error) {
	value, err := e.PoolValueInEth()
	if err != nil {
		return nil, err
	}
	mcrEth, err := e.MCREth()
	if err != nil {
		return nil, err
	}
	return pricing.CapitalRatio(value, mcrEth)
}

// UpdateMCR commits a ratchet step. Rate limited by the requirement engine;
// open to any caller.
func (e *Engine) UpdateMCR() (*big.Int, error) {
	if e.mcr == nil {
		return nil, errNilMCR
	}
	return e.mcr.Commit()
}

// SendPayout moves claim proceeds to a beneficiary, optionally bundling a
// native-coin deposit refund. Claims settler only.
func (e *Engine) SendPayout(caller, asset, to ethcommon.Address, amount, extraNative *big.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if err := e.requireRole(caller, e.claimsSettler); err != nil {
		return err
	}
	if err := e.ready(); err != nil {
		return err
	}
	if amount != nil && amount.Sign() > 0 {
		if err := e.backend.Transfer(asset, e.pool, to, amount); err != nil {
			return err
		}
	}
	if extraNative != nil && extraNative.Sign() > 0 {
		if err := e.backend.Transfer(NativeAsset, e.pool, to, extraNative); err != nil {
			return err
		}
	}
	e.emit(PayoutSent{Asset: asset, To: to, Amount: amount, ExtraNative: extraNative})
	return nil
}

// BuyTokens mints membership tokens against an incoming native amount at the
// bonding curve price.
func (e *Engine) BuyTokens(caller ethcommon.Address, ethIn, minTokensOut *big.Int) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return nil, err
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.minter == nil {
		return nil, errNilMinter
	}
	if ethIn == nil || ethIn.Sign() == 0 {
		return nil, ErrZeroEthIn
	}
	value, err := e.PoolValueInEth()
	if err != nil {
		return nil, err
	}
	mcrEth, err := e.MCREth()
	if err != nil {
		return nil, err
	}
	ratio, err := pricing.CapitalRatio(value, mcrEth)
	if err != nil {
		return nil, err
	}
	if ratio.Cmp(maxBuyRatioBps) > 0 {
		return nil, fmt.Errorf("%w: ratio %s bps", ErrMCRTooHigh, ratio)
	}
	tokens, err := pricing.TokensForEth(ethIn, value, mcrEth)
	if err != nil {
		return nil, err
	}
	if minTokensOut != nil && tokens.Cmp(minTokensOut) < 0 {
		return nil, fmt.Errorf("%w: computed %s, minimum %s", ErrSlippageExceeded, tokens, minTokensOut)
	}
	if err := e.backend.Transfer(NativeAsset, caller, e.pool, ethIn); err != nil {
		return nil, err
	}
	if err := e.minter.Mint(caller, tokens); err != nil {
		return nil, err
	}
	e.emit(TokensBought{Buyer: caller, EthIn: ethIn, TokensOut: tokens})
	return tokens, nil
}

// SellTokens burns membership tokens and pays out the bonding curve price,
// refusing sales that would leave the pool under its capital requirement.
func (e *Engine) SellTokens(caller ethcommon.Address, tokensIn, minEthOut *big.Int) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return nil, err
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.minter == nil {
		return nil, errNilMinter
	}
	if tokensIn == nil || tokensIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: zero sale", ErrInsufficientBalance)
	}
	held, err := e.minter.BalanceOf(caller)
	if err != nil {
		return nil, err
	}
	if held.Cmp(tokensIn) < 0 {
		return nil, fmt.Errorf("%w: holds %s, selling %s", ErrInsufficientBalance, held, tokensIn)
	}
	value, err := e.PoolValueInEth()
	if err != nil {
		return nil, err
	}
	mcrEth, err := e.MCREth()
	if err != nil {
		return nil, err
	}
	ethOut, err := pricing.EthForTokens(tokensIn, value, mcrEth)
	if err != nil {
		return nil, err
	}
	remaining := new(big.Int).Sub(value, ethOut)
	ratio, err := pricing.CapitalRatio(remaining, mcrEth)
	if err != nil {
		return nil, err
	}
	if ratio.Cmp(minSellRatioBps) < 0 {
		return nil, fmt.Errorf("%w: ratio %s bps after sale", ErrBelowMinMCR, ratio)
	}
	if minEthOut != nil && ethOut.Cmp(minEthOut) < 0 {
		return nil, fmt.Errorf("%w: computed %s, minimum %s", ErrSlippageExceeded, ethOut, minEthOut)
	}
	if err := e.minter.Burn(caller, tokensIn); err != nil {
		return nil, err
	}
	if err := e.backend.Transfer(NativeAsset, e.pool, caller, ethOut); err != nil {
		return nil, err
	}
	e.emit(TokensSold{Seller: caller, TokensIn: tokensIn, EthOut: ethOut})
	return ethOut, nil
}

// SpotPrice returns the current wei price of one whole membership token.
func (e *Engine) SpotPrice() (*big.Int, error) {
	value, err := e.PoolValueInEth()
	if err != nil {
		return nil, err
	}
	mcrEth, err := e.MCREth()
	if err != nil {
		return nil, err
	}
	return pricing.SpotPrice(value, mcrEth)
}

func normalizedDetails(minAmount, maxAmount, maxSlippageRatio *big.Int) (*SwapDetails, error) {
	details := &SwapDetails{
		MinAmount:        big.NewInt(0),
		MaxAmount:        big.NewInt(0),
		MaxSlippageRatio: big.NewInt(0),
	}
	if minAmount != nil {
		details.MinAmount = new(big.Int).Set(minAmount)
	}
	if maxAmount != nil {
		details.MaxAmount = new(big.Int).Set(maxAmount)
	}
	if maxSlippageRatio != nil {
		details.MaxSlippageRatio = new(big.Int).Set(maxSlippageRatio)
	}
	if details.MinAmount.Cmp(details.MaxAmount) > 0 {
		return nil, fmt.Errorf("%w: min %s max %s", ErrSwapBoundsInverted, details.MinAmount, details.MaxAmount)
	}
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if details.MaxSlippageRatio.Cmp(one) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlippageRatio, details.MaxSlippageRatio)
	}
	return details, nil
}
