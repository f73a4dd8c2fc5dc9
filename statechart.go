// Package tickfsm is a typed finite-state-machine engine for cooperative
// control loops.
//
// A machine's state is a value drawn from a closed set of state types, each
// reporting a unique id. Events are plain Go values routed by their type to a
// handler on the active state type, or to a common handler shared by all
// states. A handler returns the next state, or nil to stay. The Policy of the
// definition decides whether entry and exit actions run and whether handlers
// may mutate the machine's context.
//
//	def := tickfsm.NewBuilder[DoorID, Door]("door", tickfsm.Mixed).
//		States(Closed{}, Open{})
//	tickfsm.On(def, func(s Closed, e OpenEvent, d *Door) tickfsm.State[DoorID] {
//		return Open{}
//	})
//	m, _ := tickfsm.NewMachine(def.MustBuild(), &door, Closed{})
//	m.Start()
//	m.Dispatch(OpenEvent{})
package tickfsm

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/tickfsm/timebase"
)

// Machine holds the active state of one instance of a Definition.
//
// Dispatch, ForceTransition, Start and Stop must be called from one execution
// context at a time; the configured guard only covers the replacement of the
// state and its enter timestamp, and reads of them.
type Machine[ID comparable, C any] struct {
	def       *Definition[ID, C]
	ctx       *C
	name      string
	clock     timebase.Source
	guard     sync.Locker
	logger    *slog.Logger
	observers []Observer

	current   State[ID]
	enteredAt timebase.TimePoint
	started   bool
	stopped   bool
	busy      bool
}

// NewMachine creates a machine in state initial. No entry action runs until Start.
func NewMachine[ID comparable, C any](def *Definition[ID, C], ctx *C, initial State[ID], opts ...Option) (*Machine[ID, C], error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := def.member(initial); err != nil {
		return nil, err
	}

	o := machineOptions{
		guard:  NopLocker,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = def.name + "-" + uuid.NewString()[:8]
	}
	if o.clock == nil {
		src := timebase.NewMonotonic()
		src.Init()
		o.clock = src
	}

	return &Machine[ID, C]{
		def:       def,
		ctx:       ctx,
		name:      o.name,
		clock:     o.clock,
		guard:     o.guard,
		logger:    o.logger.With("component", "fsm", "machine", o.name),
		observers: o.observers,
		current:   initial,
	}, nil
}

// Start enters the initial state, running its entry action if the policy has one.
// Idempotent while running.
func (m *Machine[ID, C]) Start() error {
	switch {
	case m.busy:
		return ErrReentrantDispatch
	case m.stopped:
		return ErrStopped
	case m.started:
		return nil
	}

	m.guard.Lock()
	m.started = true
	m.enteredAt = m.clock.Now()
	cur := m.current
	m.guard.Unlock()

	if m.def.policy.HasEntry() {
		m.busy = true
		defer func() { m.busy = false }()
		cur.(Enterer[C]).OnEnter(m.ctx)
	}
	m.logger.Debug("machine started", slog.Any("state", cur.ID()))
	return nil
}

// Stop leaves the current state, running its exit action if the policy has one.
// A stopped machine rejects further dispatches. Idempotent.
func (m *Machine[ID, C]) Stop() error {
	if m.busy {
		return ErrReentrantDispatch
	}
	if m.stopped {
		return nil
	}
	if m.started && m.def.policy.HasExit() {
		m.busy = true
		defer func() { m.busy = false }()
		m.State().(Exiter[C]).OnExit(m.ctx)
	}
	m.stopped = true
	m.logger.Debug("machine stopped")
	return nil
}

// Dispatch routes event to the handler of the active state and performs the
// transition it returns. An event with no handler is ignored.
func (m *Machine[ID, C]) Dispatch(event any) error {
	if err := m.ready(); err != nil {
		return err
	}
	if event == nil {
		return ErrNilEvent
	}

	cur := m.State()
	h, ok := m.def.resolve(cur, event)
	if !ok {
		if m.logger.Enabled(context.Background(), slog.LevelDebug) {
			m.logger.Debug("event ignored", slog.String("event", typeName(event)), slog.Any("state", cur.ID()))
		}
		return nil
	}

	m.busy = true
	defer func() { m.busy = false }()

	next := h(cur, event, m.ctx)
	if next == nil {
		return nil
	}
	if err := m.def.member(next); err != nil {
		return err
	}
	m.transition(cur, next, typeName(event))
	return nil
}

// ForceTransition moves to next without consulting any handler.
func (m *Machine[ID, C]) ForceTransition(next State[ID]) error {
	if err := m.ready(); err != nil {
		return err
	}
	if err := m.def.member(next); err != nil {
		return err
	}
	m.busy = true
	defer func() { m.busy = false }()
	m.transition(m.State(), next, "force")
	return nil
}

// transition runs exit, replace, timestamp, enter in that order.
func (m *Machine[ID, C]) transition(from, next State[ID], cause string) {
	if m.def.policy.HasExit() {
		from.(Exiter[C]).OnExit(m.ctx)
	}

	m.guard.Lock()
	m.current = next
	m.enteredAt = m.clock.Now()
	at := m.enteredAt
	m.guard.Unlock()

	if m.def.policy.HasEntry() {
		next.(Enterer[C]).OnEnter(m.ctx)
	}

	m.logger.Debug("state transition",
		slog.Any("from", from.ID()),
		slog.Any("to", next.ID()),
		slog.String("cause", cause))

	if len(m.observers) == 0 {
		return
	}
	rec := TransitionRecord{
		Machine: m.name,
		From:    from.ID(),
		To:      next.ID(),
		Cause:   cause,
		At:      at,
	}
	for _, o := range m.observers {
		o.OnTransition(rec)
	}
}

func (m *Machine[ID, C]) ready() error {
	switch {
	case m.busy:
		return ErrReentrantDispatch
	case m.stopped:
		return ErrStopped
	case !m.started:
		return ErrNotStarted
	}
	return nil
}

// State returns the active state value.
func (m *Machine[ID, C]) State() State[ID] {
	m.guard.Lock()
	defer m.guard.Unlock()
	return m.current
}

// StateID returns the id of the active state.
func (m *Machine[ID, C]) StateID() ID {
	return m.State().ID()
}

// EnteredAt returns when the active state was entered.
func (m *Machine[ID, C]) EnteredAt() timebase.TimePoint {
	m.guard.Lock()
	defer m.guard.Unlock()
	return m.enteredAt
}

// TimeSinceEnter returns how long the active state has been active.
// It is zero before Start.
func (m *Machine[ID, C]) TimeSinceEnter() time.Duration {
	m.guard.Lock()
	started, at := m.started, m.enteredAt
	m.guard.Unlock()
	if !started {
		return 0
	}
	return m.clock.Now().Sub(at)
}

// Name returns the machine name.
func (m *Machine[ID, C]) Name() string { return m.name }

// Definition returns the definition backing the machine.
func (m *Machine[ID, C]) Definition() *Definition[ID, C] { return m.def }

// Context returns the machine's extended state.
func (m *Machine[ID, C]) Context() *C { return m.ctx }

// Started reports whether Start has been called.
func (m *Machine[ID, C]) Started() bool { return m.started }

// Running reports whether the machine has been started and not stopped.
func (m *Machine[ID, C]) Running() bool {
	return m.started && !m.stopped
}

// IsInState reports whether the active state has type S.
func IsInState[S State[ID], ID comparable, C any](m *Machine[ID, C]) bool {
	_, ok := m.State().(S)
	return ok
}

// StateAs returns the active state as S if it has that type.
func StateAs[S State[ID], ID comparable, C any](m *Machine[ID, C]) (S, bool) {
	s, ok := m.State().(S)
	return s, ok
}

// Visit applies v to the active state and returns its result.
func Visit[R any, ID comparable, C any](m *Machine[ID, C], v func(s State[ID]) R) R {
	return v(m.State())
}

func typeName(v any) string {
	return reflect.TypeOf(v).String()
}
