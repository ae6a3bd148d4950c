package swaporder

import (
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	nativecommon "coverpool/native/common"
	"coverpool/native/treasury"
)

var (
	errNilVault = errors.New("swaporder: vault protocol not configured")

	// ErrInvalidDenominationAsset indicates the vault is not denominated
	// in the wrapped native asset.
	ErrInvalidDenominationAsset = errors.New("swaporder: vault denomination asset is not wrapped native")
	// ErrSwappedToAmountTooLow indicates the vault under-delivered.
	ErrSwappedToAmountTooLow = errors.New("swaporder: vault delivered less than requested minimum")
	// ErrSwappedFromAmountTooHigh indicates the vault spent more of the
	// committed input than was approved.
	ErrSwappedFromAmountTooHigh = errors.New("swaporder: vault spent more than the committed input")
)

// VaultProtocol is the yield vault whose shares the pool holds. Shares move
// through these entrypoints, never through the settlement protocol.
type VaultProtocol interface {
	BuyShares(amountIn, minSharesOut *big.Int) (*big.Int, error)
	RedeemShares(shares *big.Int, assets []ethcommon.Address, weights []*big.Int) ([]*big.Int, error)
	DenominationAsset() (ethcommon.Address, error)
}

// SwapEthForVaultShares realizes a pending native-to-vault-share request as a
// single synchronous buy against the vault. Controller only, exact-input
// requests only.
func (e *Engine) SwapEthForVaultShares(caller ethcommon.Address, fromAmount, minSharesOut *big.Int) error {
	req, err := e.beginVaultSwap(caller, fromAmount)
	if err != nil {
		return err
	}
	if e.wrapped(req.FromAsset) != e.wrappedNative || req.ToAsset != e.vaultShare {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidAsset, req.FromAsset.Hex(), req.ToAsset.Hex())
	}

	if err := e.treasury.TransferAssetToSwapOperator(e.self, req.FromAsset, fromAmount); err != nil {
		return err
	}
	// Custody is held from here on. Whatever the coordinator holds when a
	// later step fails is returned to the pool and the custody slot is
	// released, so the request stays pending for a retry.
	rollback := func() {
		_ = e.backend.Approve(e.wrappedNative, e.self, e.vaultAddr, big.NewInt(0))
		_, _ = e.sweepToTreasury(e.wrappedNative, req.FromAsset)
		if req.FromAsset == treasury.NativeAsset {
			_, _ = e.sweepToTreasury(treasury.NativeAsset, treasury.NativeAsset)
		}
		_, _ = e.sweepToTreasury(e.vaultShare, req.ToAsset)
		_ = e.treasury.ClearSwapAssetAmount(e.self, req.FromAsset)
	}
	if req.FromAsset == treasury.NativeAsset {
		if err := e.backend.Wrap(e.self, fromAmount); err != nil {
			rollback()
			return err
		}
	}
	if err := e.backend.Approve(e.wrappedNative, e.self, e.vaultAddr, fromAmount); err != nil {
		rollback()
		return err
	}
	before, err := e.backend.BalanceOf(e.wrappedNative, e.self)
	if err != nil {
		rollback()
		return err
	}
	floor := maxAmount(minSharesOut, req.ToAmount)
	shares, err := e.vault.BuyShares(fromAmount, floor)
	if err != nil {
		rollback()
		return err
	}
	if shares == nil || shares.Cmp(floor) < 0 {
		rollback()
		return fmt.Errorf("%w: got %s, floor %s", ErrSwappedToAmountTooLow, shares, floor)
	}
	after, err := e.backend.BalanceOf(e.wrappedNative, e.self)
	if err != nil {
		rollback()
		return err
	}
	spent := new(big.Int).Sub(before, after)
	if spent.Cmp(fromAmount) > 0 {
		rollback()
		return fmt.Errorf("%w: spent %s, committed %s", ErrSwappedFromAmountTooHigh, spent, fromAmount)
	}
	// Excess input and the purchased shares both belong to the pool.
	if _, err := e.sweepToTreasury(e.wrappedNative, req.FromAsset); err != nil {
		rollback()
		return err
	}
	if _, err := e.sweepToTreasury(e.vaultShare, req.ToAsset); err != nil {
		rollback()
		return err
	}
	if err := e.finishVaultSwap(req); err != nil {
		return err
	}
	e.emit(VaultSharesBought{AmountIn: fromAmount, SharesOut: shares})
	return nil
}

// SwapVaultSharesForEth redeems pool-held vault shares back into the native
// asset through the vault's single-asset redemption. Controller only,
// exact-input requests only.
func (e *Engine) SwapVaultSharesForEth(caller ethcommon.Address, fromAmount, minToAmount *big.Int) error {
	req, err := e.beginVaultSwap(caller, fromAmount)
	if err != nil {
		return err
	}
	if req.FromAsset != e.vaultShare || e.wrapped(req.ToAsset) != e.wrappedNative {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidAsset, req.FromAsset.Hex(), req.ToAsset.Hex())
	}

	if err := e.treasury.TransferAssetToSwapOperator(e.self, req.FromAsset, fromAmount); err != nil {
		return err
	}
	// Custody is held from here on; failures hand everything back to the
	// pool and release the custody slot.
	rollback := func() {
		_, _ = e.sweepToTreasury(e.wrappedNative, req.ToAsset)
		_, _ = e.sweepToTreasury(e.vaultShare, req.FromAsset)
		_ = e.treasury.ClearSwapAssetAmount(e.self, req.FromAsset)
	}
	amounts, err := e.vault.RedeemShares(fromAmount, []ethcommon.Address{e.wrappedNative}, []*big.Int{big.NewInt(10_000)})
	if err != nil {
		rollback()
		return err
	}
	received := big.NewInt(0)
	if len(amounts) > 0 && amounts[0] != nil {
		received = amounts[0]
	}
	floor := maxAmount(minToAmount, req.ToAmount)
	if received.Cmp(floor) < 0 {
		rollback()
		return fmt.Errorf("%w: got %s, floor %s", ErrSwappedToAmountTooLow, received, floor)
	}
	if _, err := e.sweepToTreasury(e.wrappedNative, req.ToAsset); err != nil {
		rollback()
		return err
	}
	// Shares the vault did not burn go back to the pool as well.
	if _, err := e.sweepToTreasury(e.vaultShare, req.FromAsset); err != nil {
		rollback()
		return err
	}
	if err := e.finishVaultSwap(req); err != nil {
		return err
	}
	e.emit(VaultSharesRedeemed{SharesIn: fromAmount, AmountOut: received})
	return nil
}

// beginVaultSwap runs the checks shared by both direct swap directions and
// returns the pending request.
func (e *Engine) beginVaultSwap(caller ethcommon.Address, fromAmount *big.Int) (*SwapRequest, error) {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleSwap); err != nil {
		return nil, err
	}
	if e.controller == (ethcommon.Address{}) || caller != e.controller {
		return nil, ErrOnlyController
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.vault == nil {
		return nil, errNilVault
	}
	denom, err := e.vault.DenominationAsset()
	if err != nil {
		return nil, err
	}
	if denom != e.wrappedNative {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDenominationAsset, denom.Hex())
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return nil, err
	}
	if slot.Phase == PhaseOrderInProgress {
		return nil, ErrOrderInProgress
	}
	if slot.Phase != PhaseRequestPending {
		return nil, ErrNoSwapRequest
	}
	req := slot.Request
	now := e.now()
	if req.Deadline <= now {
		return nil, fmt.Errorf("%w: deadline %d, now %d", ErrSwapDeadlineExceeded, req.Deadline, now)
	}
	if req.Kind != ExactInput {
		return nil, ErrUnsupportedSwapKind
	}
	if fromAmount == nil || fromAmount.Cmp(req.FromAmount) != 0 {
		return nil, fmt.Errorf("%w: swap %s, request %s", ErrFromAmountMismatch, fromAmount, req.FromAmount)
	}
	return req.Clone(), nil
}

// finishVaultSwap clears the vault allowance, the custody slot, and finally
// the consumed request, stamping both legs' swap times along the way. The
// request is only consumed once everything else has settled.
func (e *Engine) finishVaultSwap(req *SwapRequest) error {
	if err := e.backend.Approve(e.wrappedNative, e.self, e.vaultAddr, big.NewInt(0)); err != nil {
		return err
	}
	if err := e.treasury.ClearSwapAssetAmount(e.self, req.FromAsset); err != nil {
		return err
	}
	now := e.now()
	for _, leg := range []ethcommon.Address{req.FromAsset, req.ToAsset} {
		if err := e.treasury.SetLastSwapTime(e.self, leg, now); err != nil {
			return err
		}
	}
	slot, err := e.state.SlotGet()
	if err != nil {
		return err
	}
	if err := slot.ConsumeRequest(); err != nil {
		return err
	}
	return e.state.SlotPut(slot)
}

func maxAmount(a, b *big.Int) *big.Int {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	if a.Cmp(b) >= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
