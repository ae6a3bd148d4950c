package treasury

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// NativeAsset is the sentinel address under which the chain's native coin is
// registered. It always occupies index zero of the asset list and contributes
// to pool value at par.
var NativeAsset = ethcommon.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Asset is a pool-supported asset. Entries are never removed from the asset
// list; abandonment only flips a flag so indices stay stable for anything
// referencing them.
type Asset struct {
	Address      ethcommon.Address
	IsCoverAsset bool
	IsAbandoned  bool
}

// SwapDetails bounds how the rebalancing agent may trade an asset.
type SwapDetails struct {
	MinAmount *big.Int
	MaxAmount *big.Int
	// MaxSlippageRatio is an 18-decimal fixed-point fraction, at most 1.0.
	MaxSlippageRatio *big.Int
	LastSwapTime     int64
}

// Clone returns a deep copy of the swap details.
func (d *SwapDetails) Clone() *SwapDetails {
	if d == nil {
		return nil
	}
	clone := &SwapDetails{
		MinAmount:        big.NewInt(0),
		MaxAmount:        big.NewInt(0),
		MaxSlippageRatio: big.NewInt(0),
		LastSwapTime:     d.LastSwapTime,
	}
	if d.MinAmount != nil {
		clone.MinAmount = new(big.Int).Set(d.MinAmount)
	}
	if d.MaxAmount != nil {
		clone.MaxAmount = new(big.Int).Set(d.MaxAmount)
	}
	if d.MaxSlippageRatio != nil {
		clone.MaxSlippageRatio = new(big.Int).Set(d.MaxSlippageRatio)
	}
	return clone
}

// CustodySlot is the single record of funds currently delegated to the swap
// agent. At most one non-zero slot exists system-wide.
type CustodySlot struct {
	Asset  ethcommon.Address
	Amount *big.Int
}

// Empty reports whether the slot carries no delegated funds.
func (c *CustodySlot) Empty() bool {
	return c == nil || c.Amount == nil || c.Amount.Sign() == 0
}

// Clone returns a deep copy of the custody slot.
func (c *CustodySlot) Clone() *CustodySlot {
	if c == nil {
		return nil
	}
	clone := &CustodySlot{Asset: c.Asset, Amount: big.NewInt(0)}
	if c.Amount != nil {
		clone.Amount = new(big.Int).Set(c.Amount)
	}
	return clone
}
