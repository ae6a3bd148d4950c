package mcr

import (
	"errors"
	"fmt"
	"math/big"
)

var bpsScale = big.NewInt(10_000)

// Params bound how fast the stored capital requirement may chase the desired
// figure. The daily increment accrues linearly with elapsed time and is
// independently capped per write by MaxAdjustmentBps.
type Params struct {
	MaxDailyIncrementBps uint64
	MaxAdjustmentBps     uint64
	// MinUpdateTime is the minimum number of seconds between committed
	// writes. Reads are never gated.
	MinUpdateTime int64
}

// DefaultParams mirrors the production ratchet configuration: at most 5% of
// drift per day, at most 1% per write, one write per hour.
func DefaultParams() Params {
	return Params{
		MaxDailyIncrementBps: 500,
		MaxAdjustmentBps:     100,
		MinUpdateTime:        3600,
	}
}

// Validate rejects parameter sets that would let the requirement jump
// arbitrarily or never move at all.
func (p Params) Validate() error {
	if p.MaxDailyIncrementBps == 0 || p.MaxDailyIncrementBps > 10_000 {
		return fmt.Errorf("mcr: daily increment must be within (0, 10000] bps, got %d", p.MaxDailyIncrementBps)
	}
	if p.MaxAdjustmentBps == 0 || p.MaxAdjustmentBps > 10_000 {
		return fmt.Errorf("mcr: per-write adjustment must be within (0, 10000] bps, got %d", p.MaxAdjustmentBps)
	}
	if p.MinUpdateTime < 0 {
		return errors.New("mcr: minimum update interval must not be negative")
	}
	return nil
}

// State captures the ratcheting capital requirement as last written.
type State struct {
	Stored    *big.Int
	Desired   *big.Int
	UpdatedAt int64
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored record.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := &State{UpdatedAt: s.UpdatedAt, Stored: big.NewInt(0), Desired: big.NewInt(0)}
	if s.Stored != nil {
		clone.Stored = new(big.Int).Set(s.Stored)
	}
	if s.Desired != nil {
		clone.Desired = new(big.Int).Set(s.Desired)
	}
	return clone
}

// Step projects the stored requirement forward to now without writing. Clock
// regression and zero elapsed time leave the stored value untouched; the
// result never overshoots desired and never moves further than the
// per-elapsed-time allowance.
func Step(stored, desired *big.Int, updatedAt, now int64, p Params) *big.Int {
	if stored == nil {
		stored = big.NewInt(0)
	}
	if desired == nil || now <= updatedAt || stored.Cmp(desired) == 0 {
		return new(big.Int).Set(stored)
	}
	elapsed := now - updatedAt
	allowance := new(big.Int).SetUint64(p.MaxDailyIncrementBps)
	allowance.Mul(allowance, big.NewInt(elapsed))
	allowance.Quo(allowance, big.NewInt(86_400))
	perWrite := new(big.Int).SetUint64(p.MaxAdjustmentBps)
	if allowance.Cmp(perWrite) > 0 {
		allowance = perWrite
	}
	maxStep := new(big.Int).Mul(stored, allowance)
	maxStep.Quo(maxStep, bpsScale)
	next := new(big.Int).Set(stored)
	if stored.Cmp(desired) < 0 {
		next.Add(next, maxStep)
		if next.Cmp(desired) > 0 {
			next.Set(desired)
		}
		return next
	}
	next.Sub(next, maxStep)
	if next.Cmp(desired) < 0 {
		next.Set(desired)
	}
	return next
}
