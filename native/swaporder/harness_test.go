package swaporder

import (
	"errors"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/core/events"
	"coverpool/native/mcr"
	"coverpool/native/treasury"
)

var (
	govAddr        = addr(0x01)
	operatorAddr   = addr(0x02)
	controllerAddr = addr(0x03)
	coordAddr      = addr(0x04)
	poolAddr       = addr(0x05)
	relayerAddr    = addr(0x06)
	receiverAddr   = addr(0x07)
	vaultAddr      = addr(0x08)

	wethToken  = addr(0x77)
	daiToken   = addr(0xDA)
	shareToken = addr(0x5A)
)

func addr(b byte) ethcommon.Address {
	var a ethcommon.Address
	a[19] = b
	return a
}

func ether(n int64) *big.Int {
	scale, _ := new(big.Int).SetString("1000000000000000000", 10)
	return new(big.Int).Mul(big.NewInt(n), scale)
}

type mockState struct {
	assets  []treasury.Asset
	details map[ethcommon.Address]*treasury.SwapDetails
	custody *treasury.CustodySlot
	mcrRec  *mcr.State
	slot    *Slot
}

func newMockState() *mockState {
	return &mockState{
		details: make(map[ethcommon.Address]*treasury.SwapDetails),
		custody: &treasury.CustodySlot{},
		slot:    &Slot{},
	}
}

func (m *mockState) AssetList() ([]treasury.Asset, error) {
	return append([]treasury.Asset(nil), m.assets...), nil
}

func (m *mockState) AssetGet(a ethcommon.Address) (treasury.Asset, bool, error) {
	for _, rec := range m.assets {
		if rec.Address == a {
			return rec, true, nil
		}
	}
	return treasury.Asset{}, false, nil
}

func (m *mockState) AssetPut(rec treasury.Asset) error {
	for i, prev := range m.assets {
		if prev.Address == rec.Address {
			m.assets[i] = rec
			return nil
		}
	}
	m.assets = append(m.assets, rec)
	return nil
}

func (m *mockState) SwapDetailsGet(a ethcommon.Address) (*treasury.SwapDetails, bool, error) {
	d, ok := m.details[a]
	return d.Clone(), ok, nil
}

func (m *mockState) SwapDetailsPut(a ethcommon.Address, d *treasury.SwapDetails) error {
	m.details[a] = d.Clone()
	return nil
}

func (m *mockState) CustodyGet() (*treasury.CustodySlot, error) { return m.custody.Clone(), nil }
func (m *mockState) CustodyPut(s *treasury.CustodySlot) error   { m.custody = s.Clone(); return nil }

func (m *mockState) MCRGet() (*mcr.State, error) { return m.mcrRec.Clone(), nil }
func (m *mockState) MCRPut(s *mcr.State) error   { m.mcrRec = s.Clone(); return nil }

func (m *mockState) SlotGet() (*Slot, error) { return m.slot.Clone(), nil }
func (m *mockState) SlotPut(s *Slot) error   { m.slot = s.Clone(); return nil }

type balanceKey struct {
	asset  ethcommon.Address
	holder ethcommon.Address
}

// wrapBackend is an in-memory token ledger that also models wrapping the
// native asset into its token form.
type wrapBackend struct {
	wrappedNative ethcommon.Address
	balances      map[balanceKey]*big.Int
}

func newWrapBackend(wrapped ethcommon.Address) *wrapBackend {
	return &wrapBackend{wrappedNative: wrapped, balances: make(map[balanceKey]*big.Int)}
}

func (b *wrapBackend) set(asset, holder ethcommon.Address, amount *big.Int) {
	b.balances[balanceKey{asset, holder}] = new(big.Int).Set(amount)
}

func (b *wrapBackend) BalanceOf(asset, holder ethcommon.Address) (*big.Int, error) {
	if bal, ok := b.balances[balanceKey{asset, holder}]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (b *wrapBackend) Transfer(asset, from, to ethcommon.Address, amount *big.Int) error {
	src, _ := b.BalanceOf(asset, from)
	if src.Cmp(amount) < 0 {
		return errors.New("wrap backend: insufficient balance")
	}
	b.set(asset, from, src.Sub(src, amount))
	dst, _ := b.BalanceOf(asset, to)
	b.set(asset, to, dst.Add(dst, amount))
	return nil
}

func (b *wrapBackend) Approve(asset, owner, spender ethcommon.Address, amount *big.Int) error {
	return nil
}

func (b *wrapBackend) Wrap(owner ethcommon.Address, amount *big.Int) error {
	bal, _ := b.BalanceOf(treasury.NativeAsset, owner)
	if bal.Cmp(amount) < 0 {
		return errors.New("wrap backend: wrap exceeds balance")
	}
	b.set(treasury.NativeAsset, owner, bal.Sub(bal, amount))
	wrapped, _ := b.BalanceOf(b.wrappedNative, owner)
	b.set(b.wrappedNative, owner, wrapped.Add(wrapped, amount))
	return nil
}

func (b *wrapBackend) Unwrap(owner ethcommon.Address, amount *big.Int) error {
	bal, _ := b.BalanceOf(b.wrappedNative, owner)
	if bal.Cmp(amount) < 0 {
		return errors.New("wrap backend: unwrap exceeds balance")
	}
	b.set(b.wrappedNative, owner, bal.Sub(bal, amount))
	native, _ := b.BalanceOf(treasury.NativeAsset, owner)
	b.set(treasury.NativeAsset, owner, native.Add(native, amount))
	return nil
}

type mockFeed struct{ quoted map[ethcommon.Address]bool }

func (f *mockFeed) HasQuote(a ethcommon.Address) bool { return f.quoted[a] }

func (f *mockFeed) PriceInEth(a ethcommon.Address, amount *big.Int) (*big.Int, error) {
	return new(big.Int).Set(amount), nil
}

func (f *mockFeed) EthToAsset(a ethcommon.Address, amount *big.Int) (*big.Int, error) {
	return new(big.Int).Set(amount), nil
}

type mockSettlement struct {
	domain      [32]byte
	presigned   map[OrderUID]bool
	presignErrs int
}

func newMockSettlement() *mockSettlement {
	s := &mockSettlement{presigned: make(map[OrderUID]bool)}
	s.domain[0] = 0xD0
	return s
}

func (s *mockSettlement) DomainSeparator() ([32]byte, error) { return s.domain, nil }

func (s *mockSettlement) SetPresignature(uid OrderUID, signed bool) error {
	if s.presignErrs > 0 {
		s.presignErrs--
		return errors.New("mock settlement: presign unavailable")
	}
	s.presigned[uid] = signed
	return nil
}

func (s *mockSettlement) Presignature(uid OrderUID) (bool, error) { return s.presigned[uid], nil }

// mockVault buys and redeems shares against the wrap backend at a fixed
// shares-per-asset rate in basis points.
type mockVault struct {
	backend *wrapBackend
	denom   ethcommon.Address
	holder  ethcommon.Address
	rateBps int64
}

func (v *mockVault) DenominationAsset() (ethcommon.Address, error) { return v.denom, nil }

func (v *mockVault) BuyShares(amountIn, minSharesOut *big.Int) (*big.Int, error) {
	if err := v.backend.Transfer(v.denom, v.holder, vaultAddr, amountIn); err != nil {
		return nil, err
	}
	shares := new(big.Int).Mul(amountIn, big.NewInt(v.rateBps))
	shares.Quo(shares, big.NewInt(10_000))
	dst, _ := v.backend.BalanceOf(shareToken, v.holder)
	v.backend.set(shareToken, v.holder, dst.Add(dst, shares))
	return shares, nil
}

func (v *mockVault) RedeemShares(shares *big.Int, assets []ethcommon.Address, weights []*big.Int) ([]*big.Int, error) {
	if err := v.backend.Transfer(shareToken, v.holder, vaultAddr, shares); err != nil {
		return nil, err
	}
	out := new(big.Int).Mul(shares, big.NewInt(10_000))
	out.Quo(out, big.NewInt(v.rateBps))
	dst, _ := v.backend.BalanceOf(v.denom, v.holder)
	v.backend.set(v.denom, v.holder, dst.Add(dst, out))
	return []*big.Int{out}, nil
}

type capturingEmitter struct{ events []events.Event }

func (c *capturingEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func eventSeen(emitter *capturingEmitter, eventType string) bool {
	for _, evt := range emitter.events {
		if evt.EventType() == eventType {
			return true
		}
	}
	return false
}

type pauseSwitch map[string]bool

func (p pauseSwitch) IsPaused(module string) bool { return p[module] }

type fixture struct {
	engine     *Engine
	pool       *treasury.Engine
	state      *mockState
	backend    *wrapBackend
	settlement *mockSettlement
	vault      *mockVault
	emitter    *capturingEmitter
	now        int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	state := newMockState()
	state.mcrRec = &mcr.State{Stored: ether(100_000), Desired: ether(100_000), UpdatedAt: 0}
	backend := newWrapBackend(wethToken)
	emitter := &capturingEmitter{}
	feed := &mockFeed{quoted: map[ethcommon.Address]bool{daiToken: true, shareToken: true}}

	mcrEngine := mcr.NewEngine(mcr.DefaultParams())
	mcrEngine.SetState(state)

	pool := treasury.NewEngine()
	pool.SetState(state)
	pool.SetBackend(backend)
	pool.SetPriceFeed(feed)
	pool.SetMCR(mcrEngine)
	pool.SetEmitter(emitter)
	pool.SetPoolAddress(poolAddr)
	pool.SetGovernance(govAddr)
	pool.SetSwapOperator(coordAddr)

	for _, asset := range []ethcommon.Address{treasury.NativeAsset, daiToken, shareToken} {
		if err := pool.AddAsset(govAddr, asset, true, nil, ether(1_000), nil); err != nil {
			t.Fatalf("register asset %s: %v", asset.Hex(), err)
		}
	}
	backend.set(treasury.NativeAsset, poolAddr, ether(10_000))
	backend.set(daiToken, poolAddr, ether(50_000))
	backend.set(shareToken, poolAddr, ether(500))

	settlement := newMockSettlement()
	vault := &mockVault{backend: backend, denom: wethToken, holder: coordAddr, rateBps: 10_000}

	f := &fixture{
		engine:     NewEngine(pool),
		pool:       pool,
		state:      state,
		backend:    backend,
		settlement: settlement,
		vault:      vault,
		emitter:    emitter,
		now:        1_000_000,
	}
	f.engine.SetState(state)
	f.engine.SetBackend(backend)
	f.engine.SetSettlement(settlement)
	f.engine.SetVault(vault, vaultAddr, shareToken)
	f.engine.SetEmitter(emitter)
	f.engine.SetSelf(coordAddr)
	f.engine.SetController(controllerAddr)
	f.engine.SetOperator(operatorAddr)
	f.engine.SetWrappedNative(wethToken)
	f.engine.SetRelayer(relayerAddr)
	f.engine.SetNowFunc(func() int64 { return f.now })
	return f
}

func (f *fixture) request(t *testing.T, req *SwapRequest) {
	t.Helper()
	if err := f.engine.RequestAssetSwap(operatorAddr, req); err != nil {
		t.Fatalf("request swap: %v", err)
	}
}

func nativeToDaiRequest(now int64) *SwapRequest {
	return &SwapRequest{
		FromAsset:  treasury.NativeAsset,
		ToAsset:    daiToken,
		FromAmount: ether(1),
		ToAmount:   ether(2_000),
		Deadline:   now + 3_600,
		Kind:       ExactInput,
	}
}

func (f *fixture) conformingOrder() *Order {
	return &Order{
		SellToken:        wethToken,
		BuyToken:         daiToken,
		Receiver:         coordAddr,
		SellAmount:       ether(1),
		BuyAmount:        ether(2_000),
		ValidTo:          f.now + 1_200,
		FeeAmount:        big.NewInt(0),
		Kind:             OrderKindSell,
		SellTokenBalance: BalanceKindERC20,
		BuyTokenBalance:  BalanceKindERC20,
	}
}

func (f *fixture) uidFor(o *Order) OrderUID {
	return ComputeOrderUID(o, f.settlement.domain)
}
