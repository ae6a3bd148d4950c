package swaporder

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func baseOrder() *Order {
	return &Order{
		SellToken:        wethToken,
		BuyToken:         daiToken,
		Receiver:         coordAddr,
		SellAmount:       ether(1),
		BuyAmount:        ether(2_000),
		ValidTo:          1_001_200,
		FeeAmount:        big.NewInt(0),
		Kind:             OrderKindSell,
		SellTokenBalance: BalanceKindERC20,
		BuyTokenBalance:  BalanceKindERC20,
	}
}

func TestComputeOrderUIDDeterministic(t *testing.T) {
	var domain [32]byte
	domain[0] = 0xD0

	first := ComputeOrderUID(baseOrder(), domain)
	second := ComputeOrderUID(baseOrder(), domain)
	require.Equal(t, first, second)
	require.False(t, first.Empty())

	// The suffix carries the receiver and expiry in the clear.
	order := baseOrder()
	require.Equal(t, order.Receiver.Bytes(), first[32:52])
	require.Equal(t, uint32(order.ValidTo), binary.BigEndian.Uint32(first[52:]))
}

func TestComputeOrderUIDFieldSensitivity(t *testing.T) {
	var domain [32]byte
	domain[0] = 0xD0
	reference := ComputeOrderUID(baseOrder(), domain)

	mutations := []struct {
		name   string
		mutate func(o *Order)
	}{
		{"sellToken", func(o *Order) { o.SellToken = daiToken }},
		{"buyToken", func(o *Order) { o.BuyToken = shareToken }},
		{"receiver", func(o *Order) { o.Receiver = receiverAddr }},
		{"sellAmount", func(o *Order) { o.SellAmount = ether(2) }},
		{"buyAmount", func(o *Order) { o.BuyAmount = ether(2_001) }},
		{"validTo", func(o *Order) { o.ValidTo++ }},
		{"appData", func(o *Order) { o.AppData[0] = 0x01 }},
		{"feeAmount", func(o *Order) { o.FeeAmount = big.NewInt(1) }},
		{"kind", func(o *Order) { o.Kind = OrderKindBuy }},
		{"partiallyFillable", func(o *Order) { o.PartiallyFillable = true }},
		{"sellTokenBalance", func(o *Order) { o.SellTokenBalance = "internal" }},
		{"buyTokenBalance", func(o *Order) { o.BuyTokenBalance = "external" }},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			order := baseOrder()
			tc.mutate(order)
			require.NotEqual(t, reference, ComputeOrderUID(order, domain))
		})
	}
}

func TestComputeOrderUIDDomainBound(t *testing.T) {
	var mainnet, testnet [32]byte
	mainnet[0] = 0xD0
	testnet[0] = 0xD1
	require.NotEqual(t, ComputeOrderUID(baseOrder(), mainnet), ComputeOrderUID(baseOrder(), testnet))
}

func TestStringFieldsDoNotAlias(t *testing.T) {
	var domain [32]byte
	a := baseOrder()
	a.SellTokenBalance = "erc20e"
	a.BuyTokenBalance = "rc20"
	b := baseOrder()
	b.SellTokenBalance = "erc20"
	b.BuyTokenBalance = "erc20"
	require.NotEqual(t, a.Digest(domain), b.Digest(domain))
}
