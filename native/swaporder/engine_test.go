package swaporder

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"coverpool/native/treasury"
)

func TestRequestAssetSwapValidation(t *testing.T) {
	f := setup(t)
	req := nativeToDaiRequest(f.now)

	require.ErrorIs(t, f.engine.RequestAssetSwap(controllerAddr, req), ErrUnauthorized)

	unknown := req.Clone()
	unknown.ToAsset = addr(0x99)
	require.ErrorIs(t, f.engine.RequestAssetSwap(operatorAddr, unknown), ErrUnsupportedAsset)

	same := req.Clone()
	same.ToAsset = same.FromAsset
	require.ErrorIs(t, f.engine.RequestAssetSwap(operatorAddr, same), ErrSameAssetSwapRequest)

	expired := req.Clone()
	expired.Deadline = f.now
	require.ErrorIs(t, f.engine.RequestAssetSwap(operatorAddr, expired), ErrSwapDeadlineExceeded)

	require.NoError(t, f.engine.RequestAssetSwap(operatorAddr, req))
	phase, err := f.engine.Phase()
	require.NoError(t, err)
	require.Equal(t, PhaseRequestPending, phase)
	require.True(t, eventSeen(f.emitter, EventTypeSwapRequested))
}

func TestRequestAssetSwapRejectsAbandonedLeg(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.pool.SetAssetDetails(govAddr, daiToken, true, true))
	req := nativeToDaiRequest(f.now)
	require.ErrorIs(t, f.engine.RequestAssetSwap(operatorAddr, req), ErrUnsupportedAsset)
	reverse := &SwapRequest{
		FromAsset: daiToken, ToAsset: treasury.NativeAsset,
		FromAmount: ether(2_000), ToAmount: ether(1),
		Deadline: f.now + 3_600, Kind: ExactInput,
	}
	require.ErrorIs(t, f.engine.RequestAssetSwap(operatorAddr, reverse), ErrUnsupportedAsset)

	// Round-tripping the flag through SetAssetDetails restores support.
	require.NoError(t, f.pool.SetAssetDetails(govAddr, daiToken, true, false))
	require.NoError(t, f.engine.RequestAssetSwap(operatorAddr, req))
}

func TestRequestAssetSwapSupersedes(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	newer := nativeToDaiRequest(f.now)
	newer.ToAmount = ether(2_100)
	require.NoError(t, f.engine.RequestAssetSwap(operatorAddr, newer))
	require.True(t, eventSeen(f.emitter, EventTypeSwapRequestSupersede))
	pending, err := f.engine.PendingRequest()
	require.NoError(t, err)
	require.Zero(t, pending.ToAmount.Cmp(ether(2_100)))
}

func TestPlaceOrderLifecycle(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	uid := f.uidFor(order)

	require.ErrorIs(t, f.engine.PlaceOrder(operatorAddr, order, uid), ErrOnlyController)
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, order, uid))

	// Treasury debited one native coin, custody slot recorded.
	poolNative, _ := f.backend.BalanceOf(treasury.NativeAsset, poolAddr)
	require.Zero(t, poolNative.Cmp(ether(9_999)))
	require.False(t, f.state.custody.Empty())
	require.Equal(t, treasury.NativeAsset, f.state.custody.Asset)
	require.Zero(t, f.state.custody.Amount.Cmp(ether(1)))

	// The native leg was wrapped and is waiting for the settlement fill.
	coordWeth, _ := f.backend.BalanceOf(wethToken, coordAddr)
	require.Zero(t, coordWeth.Cmp(ether(1)))

	signed, err := f.settlement.Presignature(uid)
	require.NoError(t, err)
	require.True(t, signed)

	phase, err := f.engine.Phase()
	require.NoError(t, err)
	require.Equal(t, PhaseOrderInProgress, phase)
	require.True(t, eventSeen(f.emitter, EventTypeOrderPlaced))

	// Only one order may be outstanding.
	require.ErrorIs(t, f.engine.PlaceOrder(controllerAddr, order, uid), ErrOrderInProgress)
}

func TestPlaceOrderUIDMismatch(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	tampered := f.uidFor(order)
	tampered[0] ^= 0xFF
	require.ErrorIs(t, f.engine.PlaceOrder(controllerAddr, order, tampered), ErrOrderUIDMismatch)
}

func TestPlaceOrderFieldFidelity(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name   string
		mutate func(o *Order)
		want   error
	}{
		{"sellToken", func(o *Order) { o.SellToken = daiToken }, ErrInvalidAsset},
		{"buyToken", func(o *Order) { o.BuyToken = wethToken }, ErrInvalidAsset},
		{"receiver", func(o *Order) { o.Receiver = receiverAddr }, ErrInvalidReceiver},
		{"validToLow", func(o *Order) { o.ValidTo = f.now + MinValidToPeriod - 1 }, ErrBelowMinValidTo},
		{"validToHigh", func(o *Order) { o.ValidTo = f.now + MaxValidToPeriod + 1 }, ErrAboveMaxValidTo},
		{"feeAmount", func(o *Order) { o.FeeAmount = big.NewInt(1) }, ErrFeeNotZero},
		{"sellBalanceKind", func(o *Order) { o.SellTokenBalance = "external" }, ErrUnsupportedTokenBalance},
		{"buyBalanceKind", func(o *Order) { o.BuyTokenBalance = "internal" }, ErrUnsupportedTokenBalance},
		{"sellAmount", func(o *Order) { o.SellAmount = ether(2) }, ErrFromAmountMismatch},
		{"buyAmount", func(o *Order) { o.BuyAmount = ether(1_999) }, ErrToAmountTooLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.request(t, nativeToDaiRequest(f.now))
			order := f.conformingOrder()
			tc.mutate(order)
			err := f.engine.PlaceOrder(controllerAddr, order, f.uidFor(order))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPlaceOrderExactOutputBounds(t *testing.T) {
	f := setup(t)
	req := nativeToDaiRequest(f.now)
	req.Kind = ExactOutput
	f.request(t, req)

	over := f.conformingOrder()
	over.SellAmount = ether(2)
	require.ErrorIs(t, f.engine.PlaceOrder(controllerAddr, over, f.uidFor(over)), ErrFromAmountTooHigh)

	short := f.conformingOrder()
	short.BuyAmount = ether(1_999)
	require.ErrorIs(t, f.engine.PlaceOrder(controllerAddr, short, f.uidFor(short)), ErrToAmountMismatch)

	// Selling less than committed for the exact output is allowed.
	cheaper := f.conformingOrder()
	cheaper.SellAmount = new(big.Int).Quo(ether(1), big.NewInt(2))
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, cheaper, f.uidFor(cheaper)))
}

func TestPlaceOrderRefusesVaultShareLeg(t *testing.T) {
	f := setup(t)
	req := &SwapRequest{
		FromAsset: daiToken, ToAsset: shareToken,
		FromAmount: ether(2_000), ToAmount: ether(1),
		Deadline: f.now + 3_600, Kind: ExactInput,
	}
	f.request(t, req)
	order := &Order{
		SellToken: daiToken, BuyToken: shareToken, Receiver: coordAddr,
		SellAmount: ether(2_000), BuyAmount: ether(1),
		ValidTo: f.now + 1_200, FeeAmount: big.NewInt(0), Kind: OrderKindSell,
		SellTokenBalance: BalanceKindERC20, BuyTokenBalance: BalanceKindERC20,
	}
	require.ErrorIs(t, f.engine.PlaceOrder(controllerAddr, order, f.uidFor(order)), ErrVaultShareInOrder)
}

func TestPlaceOrderExpiredRequest(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	f.now += 7_200
	order := f.conformingOrder()
	require.ErrorIs(t, f.engine.PlaceOrder(controllerAddr, order, f.uidFor(order)), ErrSwapDeadlineExceeded)
}

func TestPlaceOrderFundingShortfallKeepsRequest(t *testing.T) {
	f := setup(t)
	req := nativeToDaiRequest(f.now)
	req.FromAmount = ether(20_000)
	req.ToAmount = ether(40_000_000)
	f.request(t, req)

	order := f.conformingOrder()
	order.SellAmount = ether(20_000)
	order.BuyAmount = ether(40_000_000)
	uid := f.uidFor(order)
	require.ErrorIs(t, f.engine.PlaceOrder(controllerAddr, order, uid), treasury.ErrInsufficientBalance)

	// A failed placement leaves no trace of an order: the request is
	// still pending, nothing was delegated, nothing presigned.
	phase, err := f.engine.Phase()
	require.NoError(t, err)
	require.Equal(t, PhaseRequestPending, phase)
	pending, err := f.engine.PendingRequest()
	require.NoError(t, err)
	require.Zero(t, pending.FromAmount.Cmp(ether(20_000)))
	require.True(t, f.state.custody.Empty())
	poolNative, _ := f.backend.BalanceOf(treasury.NativeAsset, poolAddr)
	require.Zero(t, poolNative.Cmp(ether(10_000)))
	signed, err := f.settlement.Presignature(uid)
	require.NoError(t, err)
	require.False(t, signed)

	// A feasible request supersedes the stuck one and places cleanly.
	require.NoError(t, f.engine.RequestAssetSwap(operatorAddr, nativeToDaiRequest(f.now)))
	retry := f.conformingOrder()
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, retry, f.uidFor(retry)))
}

func TestPlaceOrderPresignFailureReturnsFunds(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	uid := f.uidFor(order)

	f.settlement.presignErrs = 1
	require.Error(t, f.engine.PlaceOrder(controllerAddr, order, uid))

	// Custody was taken and must have been handed back in full.
	require.True(t, f.state.custody.Empty())
	poolNative, _ := f.backend.BalanceOf(treasury.NativeAsset, poolAddr)
	require.Zero(t, poolNative.Cmp(ether(10_000)))
	coordWeth, _ := f.backend.BalanceOf(wethToken, coordAddr)
	require.Zero(t, coordWeth.Sign())
	coordNative, _ := f.backend.BalanceOf(treasury.NativeAsset, coordAddr)
	require.Zero(t, coordNative.Sign())

	phase, err := f.engine.Phase()
	require.NoError(t, err)
	require.Equal(t, PhaseRequestPending, phase)

	// Once the settlement recovers the same placement goes through.
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, order, uid))
	require.False(t, f.state.custody.Empty())
	require.Zero(t, f.state.custody.Amount.Cmp(ether(1)))
}

func TestCloseOrderAfterFill(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	uid := f.uidFor(order)
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, order, uid))

	// Simulate the settlement protocol filling the order: the wrapped
	// native leg leaves, slightly more than the floor arrives.
	require.NoError(t, f.backend.Transfer(wethToken, coordAddr, relayerAddr, ether(1)))
	f.backend.set(daiToken, coordAddr, ether(2_005))

	daiBefore, _ := f.backend.BalanceOf(daiToken, poolAddr)
	require.NoError(t, f.engine.CloseOrder(controllerAddr, order))

	daiAfter, _ := f.backend.BalanceOf(daiToken, poolAddr)
	require.Zero(t, new(big.Int).Sub(daiAfter, daiBefore).Cmp(ether(2_005)))
	require.True(t, f.state.custody.Empty())

	phase, err := f.engine.Phase()
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, phase)

	signed, err := f.settlement.Presignature(uid)
	require.NoError(t, err)
	require.False(t, signed)
	require.True(t, eventSeen(f.emitter, EventTypeOrderClosed))

	require.ErrorIs(t, f.engine.CloseOrder(controllerAddr, order), ErrNoOrderInProgress)
}

func TestCloseOrderUnfilledIsCancel(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, order, f.uidFor(order)))

	nativeBefore, _ := f.backend.BalanceOf(treasury.NativeAsset, poolAddr)
	require.NoError(t, f.engine.CloseOrder(controllerAddr, order))

	// The full unspent sell amount returns, unwrapped.
	nativeAfter, _ := f.backend.BalanceOf(treasury.NativeAsset, poolAddr)
	require.Zero(t, new(big.Int).Sub(nativeAfter, nativeBefore).Cmp(ether(1)))
	require.True(t, f.state.custody.Empty())
}

func TestCloseOrderUIDMismatch(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, order, f.uidFor(order)))
	other := order.Clone()
	other.BuyAmount = ether(2_001)
	require.ErrorIs(t, f.engine.CloseOrder(controllerAddr, other), ErrOrderUIDMismatch)
}

func TestCloseOrderRetriesAfterSettlementFailure(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	uid := f.uidFor(order)
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, order, uid))

	f.settlement.presignErrs = 1
	require.Error(t, f.engine.CloseOrder(controllerAddr, order))

	// The order record survives a failed close so it can be retried.
	phase, err := f.engine.Phase()
	require.NoError(t, err)
	require.Equal(t, PhaseOrderInProgress, phase)
	require.False(t, f.state.custody.Empty())
	signed, err := f.settlement.Presignature(uid)
	require.NoError(t, err)
	require.True(t, signed)

	require.NoError(t, f.engine.CloseOrder(controllerAddr, order))
	phase, err = f.engine.Phase()
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, phase)
	require.True(t, f.state.custody.Empty())
	poolNative, _ := f.backend.BalanceOf(treasury.NativeAsset, poolAddr)
	require.Zero(t, poolNative.Cmp(ether(10_000)))
}

func TestRecoverAsset(t *testing.T) {
	f := setup(t)
	require.ErrorIs(t, f.engine.RecoverAsset(operatorAddr, daiToken, receiverAddr), ErrOnlyController)
	require.ErrorIs(t, f.engine.RecoverAsset(controllerAddr, daiToken, receiverAddr), ErrZeroBalance)

	// Loose tokens go to the named receiver.
	f.backend.set(daiToken, coordAddr, ether(7))
	require.NoError(t, f.engine.RecoverAsset(controllerAddr, daiToken, receiverAddr))
	got, _ := f.backend.BalanceOf(daiToken, receiverAddr)
	require.Zero(t, got.Cmp(ether(7)))

	// Vault shares may only return to the pool.
	f.backend.set(shareToken, coordAddr, ether(3))
	poolBefore, _ := f.backend.BalanceOf(shareToken, poolAddr)
	require.NoError(t, f.engine.RecoverAsset(controllerAddr, shareToken, receiverAddr))
	poolAfter, _ := f.backend.BalanceOf(shareToken, poolAddr)
	require.Zero(t, new(big.Int).Sub(poolAfter, poolBefore).Cmp(ether(3)))

	// Abandoned assets as well.
	require.NoError(t, f.pool.SetAssetDetails(govAddr, daiToken, true, true))
	f.backend.set(daiToken, coordAddr, ether(5))
	daiPoolBefore, _ := f.backend.BalanceOf(daiToken, poolAddr)
	require.NoError(t, f.engine.RecoverAsset(controllerAddr, daiToken, receiverAddr))
	daiPoolAfter, _ := f.backend.BalanceOf(daiToken, poolAddr)
	require.Zero(t, new(big.Int).Sub(daiPoolAfter, daiPoolBefore).Cmp(ether(5)))
}

func TestRecoverAssetBlockedByOrder(t *testing.T) {
	f := setup(t)
	f.request(t, nativeToDaiRequest(f.now))
	order := f.conformingOrder()
	require.NoError(t, f.engine.PlaceOrder(controllerAddr, order, f.uidFor(order)))
	f.backend.set(daiToken, coordAddr, ether(7))
	require.ErrorIs(t, f.engine.RecoverAsset(controllerAddr, daiToken, receiverAddr), ErrOrderInProgress)
}

func TestPauseBlocksSwapEntrypoints(t *testing.T) {
	f := setup(t)
	f.engine.SetPauses(pauseSwitch{"swap": true})
	req := nativeToDaiRequest(f.now)
	require.Error(t, f.engine.RequestAssetSwap(operatorAddr, req))
	order := f.conformingOrder()
	require.Error(t, f.engine.PlaceOrder(controllerAddr, order, f.uidFor(order)))
}
