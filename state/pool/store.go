package pool

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/native/mcr"
	"coverpool/native/swaporder"
	"coverpool/native/treasury"
)

// Store is an in-memory backend for the treasury, capital-requirement, and
// coordinator engines. Values cross the boundary as deep copies so callers
// can never alias internal state.
type Store struct {
	mu      sync.RWMutex
	assets  []treasury.Asset
	details map[ethcommon.Address]*treasury.SwapDetails
	custody *treasury.CustodySlot
	mcrRec  *mcr.State
	slot    *swaporder.Slot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		details: make(map[ethcommon.Address]*treasury.SwapDetails),
		custody: &treasury.CustodySlot{},
		slot:    &swaporder.Slot{},
	}
}

func (s *Store) AssetList() ([]treasury.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]treasury.Asset(nil), s.assets...), nil
}

func (s *Store) AssetGet(asset ethcommon.Address) (treasury.Asset, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.assets {
		if rec.Address == asset {
			return rec, true, nil
		}
	}
	return treasury.Asset{}, false, nil
}

func (s *Store) AssetPut(rec treasury.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, prev := range s.assets {
		if prev.Address == rec.Address {
			s.assets[i] = rec
			return nil
		}
	}
	s.assets = append(s.assets, rec)
	return nil
}

func (s *Store) SwapDetailsGet(asset ethcommon.Address) (*treasury.SwapDetails, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	details, ok := s.details[asset]
	return details.Clone(), ok, nil
}

func (s *Store) SwapDetailsPut(asset ethcommon.Address, details *treasury.SwapDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[asset] = details.Clone()
	return nil
}

func (s *Store) CustodyGet() (*treasury.CustodySlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.custody.Clone(), nil
}

func (s *Store) CustodyPut(slot *treasury.CustodySlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custody = slot.Clone()
	return nil
}

func (s *Store) MCRGet() (*mcr.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mcrRec.Clone(), nil
}

func (s *Store) MCRPut(rec *mcr.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mcrRec = rec.Clone()
	return nil
}

func (s *Store) SlotGet() (*swaporder.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slot.Clone(), nil
}

func (s *Store) SlotPut(slot *swaporder.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = slot.Clone()
	return nil
}
