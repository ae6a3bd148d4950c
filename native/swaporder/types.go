package swaporder

import (
	"encoding/hex"
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// SwapKind distinguishes how a swap request pins its amounts.
type SwapKind uint8

const (
	// ExactInput fixes the amount sold; the received amount is a floor.
	ExactInput SwapKind = iota
	// ExactOutput fixes the amount bought; the sold amount is a ceiling.
	ExactOutput
)

// OrderKind is the settlement protocol's side marker.
type OrderKind string

const (
	OrderKindSell OrderKind = "sell"
	OrderKindBuy  OrderKind = "buy"
)

// BalanceKind names the settlement protocol's balance accounting mode. Only
// plain token balances are accepted.
type BalanceKind string

const BalanceKindERC20 BalanceKind = "erc20"

// SwapRequest is a treasury-issued instruction describing a desired exchange,
// awaiting realization by the coordinator. Assets are recorded as registered
// in the treasury; native legs are compared against their wrapped form when
// an order is validated.
type SwapRequest struct {
	FromAsset  ethcommon.Address
	ToAsset    ethcommon.Address
	FromAmount *big.Int
	ToAmount   *big.Int
	Deadline   int64
	Kind       SwapKind
}

// Clone returns a deep copy of the request.
func (r *SwapRequest) Clone() *SwapRequest {
	if r == nil {
		return nil
	}
	clone := *r
	clone.FromAmount = big.NewInt(0)
	clone.ToAmount = big.NewInt(0)
	if r.FromAmount != nil {
		clone.FromAmount = new(big.Int).Set(r.FromAmount)
	}
	if r.ToAmount != nil {
		clone.ToAmount = new(big.Int).Set(r.ToAmount)
	}
	return &clone
}

// Order is a fully-specified instruction for the external settlement
// protocol.
type Order struct {
	SellToken         ethcommon.Address
	BuyToken          ethcommon.Address
	Receiver          ethcommon.Address
	SellAmount        *big.Int
	BuyAmount         *big.Int
	ValidTo           int64
	AppData           [32]byte
	FeeAmount         *big.Int
	Kind              OrderKind
	PartiallyFillable bool
	SellTokenBalance  BalanceKind
	BuyTokenBalance   BalanceKind
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.SellAmount = big.NewInt(0)
	clone.BuyAmount = big.NewInt(0)
	clone.FeeAmount = big.NewInt(0)
	if o.SellAmount != nil {
		clone.SellAmount = new(big.Int).Set(o.SellAmount)
	}
	if o.BuyAmount != nil {
		clone.BuyAmount = new(big.Int).Set(o.BuyAmount)
	}
	if o.FeeAmount != nil {
		clone.FeeAmount = new(big.Int).Set(o.FeeAmount)
	}
	return &clone
}

// OrderUID identifies an order at the settlement protocol: the order digest
// followed by the receiver and the expiry.
type OrderUID [56]byte

// Empty reports whether the UID is the zero value.
func (u OrderUID) Empty() bool { return u == OrderUID{} }

// Hex returns the 0x-prefixed hexadecimal form of the UID.
func (u OrderUID) Hex() string { return "0x" + hex.EncodeToString(u[:]) }

// Phase enumerates the coordinator's lifecycle states.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseRequestPending
	PhaseOrderInProgress
)

var (
	// ErrOrderInProgress indicates an order and its custody delegation are
	// still outstanding.
	ErrOrderInProgress = errors.New("swaporder: order in progress")
	// ErrNoSwapRequest indicates no swap request is pending.
	ErrNoSwapRequest = errors.New("swaporder: no swap request pending")
	// ErrNoOrderInProgress indicates there is no outstanding order to
	// reconcile.
	ErrNoOrderInProgress = errors.New("swaporder: no order in progress")
)

// Slot is the coordinator's single mutable state record: a tagged variant of
// the lifecycle phase and the data that phase carries. Transitions go through
// its methods so an order can never coexist with a second request and custody
// can never be taken twice.
type Slot struct {
	Phase   Phase
	Request *SwapRequest
	Order   *Order
	UID     OrderUID
}

// Clone returns a deep copy of the slot.
func (s *Slot) Clone() *Slot {
	if s == nil {
		return &Slot{}
	}
	return &Slot{
		Phase:   s.Phase,
		Request: s.Request.Clone(),
		Order:   s.Order.Clone(),
		UID:     s.UID,
	}
}

// BeginRequest records a new pending request. A request already pending is
// silently superseded (reported through the return value); an outstanding
// order refuses the transition.
func (s *Slot) BeginRequest(req *SwapRequest) (superseded bool, err error) {
	if s.Phase == PhaseOrderInProgress {
		return false, ErrOrderInProgress
	}
	superseded = s.Phase == PhaseRequestPending
	s.Phase = PhaseRequestPending
	s.Request = req.Clone()
	s.Order = nil
	s.UID = OrderUID{}
	return superseded, nil
}

// BeginOrder consumes the pending request and records the placed order.
func (s *Slot) BeginOrder(order *Order, uid OrderUID) error {
	switch s.Phase {
	case PhaseOrderInProgress:
		return ErrOrderInProgress
	case PhaseIdle:
		return ErrNoSwapRequest
	}
	s.Phase = PhaseOrderInProgress
	s.Order = order.Clone()
	s.UID = uid
	return nil
}

// CloseOrder reconciles the outstanding order and returns to idle.
func (s *Slot) CloseOrder() error {
	if s.Phase != PhaseOrderInProgress {
		return ErrNoOrderInProgress
	}
	*s = Slot{}
	return nil
}

// ConsumeRequest clears a pending request after a synchronous swap.
func (s *Slot) ConsumeRequest() error {
	if s.Phase != PhaseRequestPending {
		return ErrNoSwapRequest
	}
	*s = Slot{}
	return nil
}
