package pool

import (
	"errors"
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/native/treasury"
)

var (
	// ErrInsufficientBalance rejects transfers and burns beyond the
	// holder's balance.
	ErrInsufficientBalance = errors.New("pool: insufficient balance")
	// ErrNoRate indicates no conversion rate is configured for the asset.
	ErrNoRate = errors.New("pool: no rate configured")
)

type balanceKey struct {
	asset  ethcommon.Address
	holder ethcommon.Address
}

// TokenLedger is an in-memory token backend covering every engine-facing
// surface: transfers, native wrapping, membership token supply, and fixed
// price quotes. It backs the standalone daemon and local development.
type TokenLedger struct {
	mu            sync.RWMutex
	wrappedNative ethcommon.Address
	balances      map[balanceKey]*big.Int
	supply        *big.Int
	holders       map[ethcommon.Address]*big.Int
	// rates are 18-decimal native prices per whole asset unit.
	rates map[ethcommon.Address]*big.Int
}

// NewTokenLedger returns an empty ledger wrapping native into wrappedNative.
func NewTokenLedger(wrappedNative ethcommon.Address) *TokenLedger {
	return &TokenLedger{
		wrappedNative: wrappedNative,
		balances:      make(map[balanceKey]*big.Int),
		supply:        big.NewInt(0),
		holders:       make(map[ethcommon.Address]*big.Int),
		rates:         make(map[ethcommon.Address]*big.Int),
	}
}

// Credit adds amount to holder's balance of asset. Used to seed the ledger.
func (l *TokenLedger) Credit(asset, holder ethcommon.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(asset, holder, amount)
}

// SetRate fixes the 18-decimal native price of one whole unit of asset.
func (l *TokenLedger) SetRate(asset ethcommon.Address, rate *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rates[asset] = new(big.Int).Set(rate)
}

func (l *TokenLedger) balance(asset, holder ethcommon.Address) *big.Int {
	if bal, ok := l.balances[balanceKey{asset, holder}]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (l *TokenLedger) credit(asset, holder ethcommon.Address, amount *big.Int) {
	next := new(big.Int).Add(l.balance(asset, holder), amount)
	l.balances[balanceKey{asset, holder}] = next
}

func (l *TokenLedger) debit(asset, holder ethcommon.Address, amount *big.Int) error {
	current := l.balance(asset, holder)
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[balanceKey{asset, holder}] = new(big.Int).Sub(current, amount)
	return nil
}

func (l *TokenLedger) BalanceOf(asset, holder ethcommon.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(asset, holder)), nil
}

func (l *TokenLedger) Transfer(asset, from, to ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(asset, from, amount); err != nil {
		return err
	}
	l.credit(asset, to, amount)
	return nil
}

func (l *TokenLedger) Approve(asset, owner, spender ethcommon.Address, amount *big.Int) error {
	// Allowances are not enforced in-memory; transfers debit directly.
	return nil
}

func (l *TokenLedger) Wrap(owner ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(treasury.NativeAsset, owner, amount); err != nil {
		return err
	}
	l.credit(l.wrappedNative, owner, amount)
	return nil
}

func (l *TokenLedger) Unwrap(owner ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(l.wrappedNative, owner, amount); err != nil {
		return err
	}
	l.credit(treasury.NativeAsset, owner, amount)
	return nil
}

// Mint issues membership tokens to addr.
func (l *TokenLedger) Mint(to ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.holders[to]
	if !ok {
		current = big.NewInt(0)
	}
	l.holders[to] = new(big.Int).Add(current, amount)
	l.supply = new(big.Int).Add(l.supply, amount)
	return nil
}

// Burn destroys membership tokens held by addr.
func (l *TokenLedger) Burn(from ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.holders[from]
	if !ok || current.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.holders[from] = new(big.Int).Sub(current, amount)
	l.supply = new(big.Int).Sub(l.supply, amount)
	return nil
}

// MemberBalanceOf reports addr's membership token balance.
func (l *TokenLedger) MemberBalanceOf(addr ethcommon.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal, ok := l.holders[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (l *TokenLedger) TotalSupply() (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply), nil
}

// Minter exposes the membership token surface under the treasury's minter
// interface, whose BalanceOf takes only the holder.
func (l *TokenLedger) Minter() treasury.TokenMinter { return memberToken{l} }

type memberToken struct{ ledger *TokenLedger }

func (m memberToken) Mint(to ethcommon.Address, amount *big.Int) error {
	return m.ledger.Mint(to, amount)
}
func (m memberToken) Burn(from ethcommon.Address, amount *big.Int) error {
	return m.ledger.Burn(from, amount)
}
func (m memberToken) BalanceOf(addr ethcommon.Address) (*big.Int, error) {
	return m.ledger.MemberBalanceOf(addr)
}
func (m memberToken) TotalSupply() (*big.Int, error) { return m.ledger.TotalSupply() }

var wei = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func (l *TokenLedger) HasQuote(asset ethcommon.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.rates[asset]
	return ok
}

func (l *TokenLedger) PriceInEth(asset ethcommon.Address, amount *big.Int) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rate, ok := l.rates[asset]
	if !ok {
		return nil, ErrNoRate
	}
	value := new(big.Int).Mul(amount, rate)
	return value.Quo(value, wei), nil
}

func (l *TokenLedger) EthToAsset(asset ethcommon.Address, ethAmount *big.Int) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rate, ok := l.rates[asset]
	if !ok || rate.Sign() == 0 {
		return nil, ErrNoRate
	}
	value := new(big.Int).Mul(ethAmount, wei)
	return value.Quo(value, rate), nil
}
