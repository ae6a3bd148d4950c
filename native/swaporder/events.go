package swaporder

import (
	"math/big"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/core/types"
)

const (
	EventTypeSwapRequested        = "swap.requested"
	EventTypeSwapRequestSupersede = "swap.request_superseded"
	EventTypeOrderPlaced          = "swap.order_placed"
	EventTypeOrderClosed          = "swap.order_closed"
	EventTypeAssetRecovered       = "swap.asset_recovered"
	EventTypeVaultSharesBought    = "swap.vault_shares_bought"
	EventTypeVaultSharesRedeemed  = "swap.vault_shares_redeemed"
)

type SwapRequested struct {
	Request *SwapRequest
}

func (SwapRequested) EventType() string { return EventTypeSwapRequested }

func (e SwapRequested) Event() *types.Event {
	return &types.Event{Type: EventTypeSwapRequested, Attributes: requestAttributes(e.Request)}
}

// SwapRequestSuperseded marks that a pending request was discarded in favor
// of a newer instruction.
type SwapRequestSuperseded struct {
	Request *SwapRequest
}

func (SwapRequestSuperseded) EventType() string { return EventTypeSwapRequestSupersede }

func (e SwapRequestSuperseded) Event() *types.Event {
	return &types.Event{Type: EventTypeSwapRequestSupersede, Attributes: requestAttributes(e.Request)}
}

type OrderPlaced struct {
	Order *Order
	UID   OrderUID
}

func (OrderPlaced) EventType() string { return EventTypeOrderPlaced }

func (e OrderPlaced) Event() *types.Event {
	attrs := map[string]string{"uid": e.UID.Hex()}
	if e.Order != nil {
		attrs["sellToken"] = e.Order.SellToken.Hex()
		attrs["buyToken"] = e.Order.BuyToken.Hex()
		attrs["sellAmount"] = formatAmount(e.Order.SellAmount)
		attrs["buyAmount"] = formatAmount(e.Order.BuyAmount)
		attrs["validTo"] = strconv.FormatInt(e.Order.ValidTo, 10)
	}
	return &types.Event{Type: EventTypeOrderPlaced, Attributes: attrs}
}

type OrderClosed struct {
	UID      OrderUID
	Received *big.Int
	Returned *big.Int
}

func (OrderClosed) EventType() string { return EventTypeOrderClosed }

func (e OrderClosed) Event() *types.Event {
	return &types.Event{
		Type: EventTypeOrderClosed,
		Attributes: map[string]string{
			"uid":      e.UID.Hex(),
			"received": formatAmount(e.Received),
			"returned": formatAmount(e.Returned),
		},
	}
}

type AssetRecovered struct {
	Asset       ethcommon.Address
	Destination ethcommon.Address
	Amount      *big.Int
}

func (AssetRecovered) EventType() string { return EventTypeAssetRecovered }

func (e AssetRecovered) Event() *types.Event {
	return &types.Event{
		Type: EventTypeAssetRecovered,
		Attributes: map[string]string{
			"asset":       e.Asset.Hex(),
			"destination": e.Destination.Hex(),
			"amount":      formatAmount(e.Amount),
		},
	}
}

type VaultSharesBought struct {
	AmountIn  *big.Int
	SharesOut *big.Int
}

func (VaultSharesBought) EventType() string { return EventTypeVaultSharesBought }

func (e VaultSharesBought) Event() *types.Event {
	return &types.Event{
		Type: EventTypeVaultSharesBought,
		Attributes: map[string]string{
			"amountIn":  formatAmount(e.AmountIn),
			"sharesOut": formatAmount(e.SharesOut),
		},
	}
}

type VaultSharesRedeemed struct {
	SharesIn  *big.Int
	AmountOut *big.Int
}

func (VaultSharesRedeemed) EventType() string { return EventTypeVaultSharesRedeemed }

func (e VaultSharesRedeemed) Event() *types.Event {
	return &types.Event{
		Type: EventTypeVaultSharesRedeemed,
		Attributes: map[string]string{
			"sharesIn":  formatAmount(e.SharesIn),
			"amountOut": formatAmount(e.AmountOut),
		},
	}
}

func requestAttributes(r *SwapRequest) map[string]string {
	if r == nil {
		return map[string]string{}
	}
	kind := "exactInput"
	if r.Kind == ExactOutput {
		kind = "exactOutput"
	}
	return map[string]string{
		"fromAsset":  r.FromAsset.Hex(),
		"toAsset":    r.ToAsset.Hex(),
		"fromAmount": formatAmount(r.FromAmount),
		"toAmount":   formatAmount(r.ToAmount),
		"deadline":   strconv.FormatInt(r.Deadline, 10),
		"kind":       kind,
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
