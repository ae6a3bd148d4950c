package mcr

import (
	"errors"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"coverpool/core/events"
	nativecommon "coverpool/native/common"
)

var (
	errNilState = errors.New("mcr engine: state not configured")
	// ErrUnauthorized indicates the caller is not the registered pricing
	// feedback collaborator.
	ErrUnauthorized = errors.New("mcr engine: caller not authorized")
	// ErrUpdateTooSoon indicates the minimum interval between committed
	// writes has not elapsed yet.
	ErrUpdateTooSoon = errors.New("mcr engine: minimum update interval not reached")
)

type engineState interface {
	MCRGet() (*State, error)
	MCRPut(*State) error
}

// Engine owns the ratcheting capital requirement. Reads project the current
// value without touching state; writes are rate limited and pause guarded.
type Engine struct {
	state    engineState
	params   Params
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	feedback ethcommon.Address
	nowFn    func() int64
}

// NewEngine constructs an engine with the supplied ratchet parameters.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:  params,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the pause view consulted before writes.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetFeedback registers the pricing feedback collaborator allowed to move the
// desired requirement.
func (e *Engine) SetFeedback(addr ethcommon.Address) { e.feedback = addr }

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Current returns the requirement as it stands right now, applying the
// ratchet projection to the stored record without persisting it.
func (e *Engine) Current() (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	st, err := e.state.MCRGet()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return big.NewInt(0), nil
	}
	return Step(st.Stored, st.Desired, st.UpdatedAt, e.now(), e.params), nil
}

// Desired returns the target the stored requirement is converging toward.
func (e *Engine) Desired() (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	st, err := e.state.MCRGet()
	if err != nil {
		return nil, err
	}
	if st == nil || st.Desired == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(st.Desired), nil
}

// Commit persists the projected requirement. Open to any caller but refused
// while the treasury is paused or before MinUpdateTime has elapsed since the
// previous write.
func (e *Engine) Commit() (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return nil, err
	}
	return e.commit()
}

// SetDesired moves the convergence target and commits a ratchet step in the
// same write. Restricted to the registered feedback collaborator.
func (e *Engine) SetDesired(caller ethcommon.Address, desired *big.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTreasury); err != nil {
		return err
	}
	if caller != e.feedback || e.feedback == (ethcommon.Address{}) {
		return ErrUnauthorized
	}
	if e.state == nil {
		return errNilState
	}
	st, err := e.state.MCRGet()
	if err != nil {
		return err
	}
	if st == nil {
		st = &State{Stored: big.NewInt(0), Desired: big.NewInt(0)}
	}
	next := st.Clone()
	next.Desired = new(big.Int).Set(desired)
	if err := e.state.MCRPut(next); err != nil {
		return err
	}
	e.emit(DesiredUpdated{Desired: next.Desired, UpdatedAt: next.UpdatedAt})
	_, err = e.commit()
	if errors.Is(err, ErrUpdateTooSoon) {
		return nil
	}
	return err
}

func (e *Engine) commit() (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	st, err := e.state.MCRGet()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &State{Stored: big.NewInt(0), Desired: big.NewInt(0)}
	}
	now := e.now()
	if now-st.UpdatedAt < e.params.MinUpdateTime {
		return nil, ErrUpdateTooSoon
	}
	next := st.Clone()
	next.Stored = Step(st.Stored, st.Desired, st.UpdatedAt, now, e.params)
	next.UpdatedAt = now
	if err := e.state.MCRPut(next); err != nil {
		return nil, err
	}
	e.emit(Updated{Stored: next.Stored, Desired: next.Desired, UpdatedAt: now})
	return new(big.Int).Set(next.Stored), nil
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}
