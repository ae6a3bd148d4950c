package treasury

import (
	"math/big"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/core/types"
)

const (
	EventTypeAssetAdded       = "treasury.asset.added"
	EventTypeAssetUpdated     = "treasury.asset.updated"
	EventTypeAssetTransferred = "treasury.asset.transferred"
	EventTypeCustodyDelegated = "treasury.custody.delegated"
	EventTypeCustodyCleared   = "treasury.custody.cleared"
	EventTypePayoutSent       = "treasury.payout.sent"
	EventTypeTokensBought     = "treasury.tokens.bought"
	EventTypeTokensSold       = "treasury.tokens.sold"
)

type AssetAdded struct {
	Asset        ethcommon.Address
	IsCoverAsset bool
	MinAmount    *big.Int
	MaxAmount    *big.Int
}

func (AssetAdded) EventType() string { return EventTypeAssetAdded }

func (e AssetAdded) Event() *types.Event {
	return &types.Event{
		Type: EventTypeAssetAdded,
		Attributes: map[string]string{
			"asset":     e.Asset.Hex(),
			"cover":     strconv.FormatBool(e.IsCoverAsset),
			"minAmount": formatAmount(e.MinAmount),
			"maxAmount": formatAmount(e.MaxAmount),
		},
	}
}

type AssetUpdated struct {
	Asset        ethcommon.Address
	IsCoverAsset bool
	IsAbandoned  bool
}

func (AssetUpdated) EventType() string { return EventTypeAssetUpdated }

func (e AssetUpdated) Event() *types.Event {
	return &types.Event{
		Type: EventTypeAssetUpdated,
		Attributes: map[string]string{
			"asset":     e.Asset.Hex(),
			"cover":     strconv.FormatBool(e.IsCoverAsset),
			"abandoned": strconv.FormatBool(e.IsAbandoned),
		},
	}
}

type AssetTransferred struct {
	Asset       ethcommon.Address
	Destination ethcommon.Address
	Amount      *big.Int
}

func (AssetTransferred) EventType() string { return EventTypeAssetTransferred }

func (e AssetTransferred) Event() *types.Event {
	return &types.Event{
		Type: EventTypeAssetTransferred,
		Attributes: map[string]string{
			"asset":       e.Asset.Hex(),
			"destination": e.Destination.Hex(),
			"amount":      formatAmount(e.Amount),
		},
	}
}

type CustodyDelegated struct {
	Asset  ethcommon.Address
	Amount *big.Int
}

func (CustodyDelegated) EventType() string { return EventTypeCustodyDelegated }

func (e CustodyDelegated) Event() *types.Event {
	return &types.Event{
		Type: EventTypeCustodyDelegated,
		Attributes: map[string]string{
			"asset":  e.Asset.Hex(),
			"amount": formatAmount(e.Amount),
		},
	}
}

type CustodyCleared struct {
	Asset ethcommon.Address
}

func (CustodyCleared) EventType() string { return EventTypeCustodyCleared }

func (e CustodyCleared) Event() *types.Event {
	return &types.Event{
		Type:       EventTypeCustodyCleared,
		Attributes: map[string]string{"asset": e.Asset.Hex()},
	}
}

type PayoutSent struct {
	Asset       ethcommon.Address
	To          ethcommon.Address
	Amount      *big.Int
	ExtraNative *big.Int
}

func (PayoutSent) EventType() string { return EventTypePayoutSent }

func (e PayoutSent) Event() *types.Event {
	return &types.Event{
		Type: EventTypePayoutSent,
		Attributes: map[string]string{
			"asset":       e.Asset.Hex(),
			"to":          e.To.Hex(),
			"amount":      formatAmount(e.Amount),
			"extraNative": formatAmount(e.ExtraNative),
		},
	}
}

type TokensBought struct {
	Buyer     ethcommon.Address
	EthIn     *big.Int
	TokensOut *big.Int
}

func (TokensBought) EventType() string { return EventTypeTokensBought }

func (e TokensBought) Event() *types.Event {
	return &types.Event{
		Type: EventTypeTokensBought,
		Attributes: map[string]string{
			"buyer":  e.Buyer.Hex(),
			"ethIn":  formatAmount(e.EthIn),
			"tokens": formatAmount(e.TokensOut),
		},
	}
}

type TokensSold struct {
	Seller   ethcommon.Address
	TokensIn *big.Int
	EthOut   *big.Int
}

func (TokensSold) EventType() string { return EventTypeTokensSold }

func (e TokensSold) Event() *types.Event {
	return &types.Event{
		Type: EventTypeTokensSold,
		Attributes: map[string]string{
			"seller": e.Seller.Hex(),
			"tokens": formatAmount(e.TokensIn),
			"ethOut": formatAmount(e.EthOut),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
