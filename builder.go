package tickfsm

import (
	"errors"
	"fmt"
	"reflect"
)

// State is one alternative of a machine's state set. Every state type in a
// definition reports a distinct id of the same type ID.
type State[ID comparable] interface {
	ID() ID
}

// Enterer is implemented by states that have an entry action.
type Enterer[C any] interface {
	OnEnter(ctx *C)
}

// Exiter is implemented by states that have an exit action.
type Exiter[C any] interface {
	OnExit(ctx *C)
}

type handlerFunc[ID comparable, C any] func(s State[ID], event any, ctx *C) State[ID]

type handlerKey struct {
	state reflect.Type // nil for the common scope
	event reflect.Type
}

type registration[ID comparable, C any] struct {
	key     handlerKey
	mutable bool
	call    handlerFunc[ID, C]
}

// Definition is a validated, immutable state set plus its handler table.
// One definition can back any number of machines.
type Definition[ID comparable, C any] struct {
	name     string
	policy   Policy
	ids      []ID
	typeOf   map[ID]reflect.Type
	idOf     map[reflect.Type]ID
	handlers map[handlerKey]handlerFunc[ID, C]
}

// Name returns the definition name.
func (d *Definition[ID, C]) Name() string { return d.name }

// Policy returns the action policy.
func (d *Definition[ID, C]) Policy() Policy { return d.policy }

// StateIDs returns the registered ids in registration order.
func (d *Definition[ID, C]) StateIDs() []ID {
	return append([]ID(nil), d.ids...)
}

// StateName returns the Go type name registered for id.
func (d *Definition[ID, C]) StateName(id ID) string {
	if t, ok := d.typeOf[id]; ok {
		return t.String()
	}
	return fmt.Sprint(id)
}

// Has reports whether s belongs to the state set.
func (d *Definition[ID, C]) Has(s State[ID]) bool {
	return d.member(s) == nil
}

func (d *Definition[ID, C]) member(s State[ID]) error {
	if s == nil {
		return ErrNilState
	}
	id, ok := d.idOf[reflect.TypeOf(s)]
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownState, s)
	}
	if id != s.ID() {
		return fmt.Errorf("%w: %T reports id %v, registered as %v", ErrUnknownState, s, s.ID(), id)
	}
	return nil
}

// resolve prefers the handler on the state type and falls back to the common scope.
func (d *Definition[ID, C]) resolve(s State[ID], event any) (handlerFunc[ID, C], bool) {
	et := reflect.TypeOf(event)
	if h, ok := d.handlers[handlerKey{state: reflect.TypeOf(s), event: et}]; ok {
		return h, true
	}
	h, ok := d.handlers[handlerKey{event: et}]
	return h, ok
}

// Builder collects a state set and its handlers, then validates them in Build.
type Builder[ID comparable, C any] struct {
	name   string
	policy Policy
	states []State[ID]
	regs   []registration[ID, C]
	errs   []error
}

// NewBuilder starts a definition with the given policy.
func NewBuilder[ID comparable, C any](name string, policy Policy) *Builder[ID, C] {
	return &Builder[ID, C]{name: name, policy: policy}
}

// States adds prototypes of the state types. Field values are irrelevant
// except for what ID returns.
func (b *Builder[ID, C]) States(states ...State[ID]) *Builder[ID, C] {
	for _, s := range states {
		if s == nil {
			b.errs = append(b.errs, ErrNilState)
			continue
		}
		b.states = append(b.states, s)
	}
	return b
}

func (b *Builder[ID, C]) add(state, event reflect.Type, mutable bool, call handlerFunc[ID, C]) *Builder[ID, C] {
	if event == nil || event.Kind() == reflect.Interface {
		b.errs = append(b.errs, fmt.Errorf("%w: %v", ErrInvalidEventType, event))
		return b
	}
	if state != nil && state.Kind() == reflect.Interface {
		b.errs = append(b.errs, fmt.Errorf("%w: handler state type %v is an interface, use OnAny", ErrUnknownState, state))
		return b
	}
	b.regs = append(b.regs, registration[ID, C]{
		key:     handlerKey{state: state, event: event},
		mutable: mutable,
		call:    call,
	})
	return b
}

// On registers a handler for event E while in state S. The handler receives
// the mutable context and returns the next state, or nil to stay.
func On[ID comparable, C any, S State[ID], E any](b *Builder[ID, C], h func(s S, e E, ctx *C) State[ID]) *Builder[ID, C] {
	if h == nil {
		b.errs = append(b.errs, ErrNilHandler)
		return b
	}
	return b.add(reflect.TypeFor[S](), reflect.TypeFor[E](), true, func(s State[ID], ev any, ctx *C) State[ID] {
		return h(s.(S), ev.(E), ctx)
	})
}

// OnView is On with a read-only copy of the context.
func OnView[ID comparable, C any, S State[ID], E any](b *Builder[ID, C], h func(s S, e E, ctx C) State[ID]) *Builder[ID, C] {
	if h == nil {
		b.errs = append(b.errs, ErrNilHandler)
		return b
	}
	return b.add(reflect.TypeFor[S](), reflect.TypeFor[E](), false, func(s State[ID], ev any, ctx *C) State[ID] {
		return h(s.(S), ev.(E), *ctx)
	})
}

// OnAny registers a common handler for event E, used by every state that has
// no handler of its own for E.
func OnAny[ID comparable, C any, E any](b *Builder[ID, C], h func(s State[ID], e E, ctx *C) State[ID]) *Builder[ID, C] {
	if h == nil {
		b.errs = append(b.errs, ErrNilHandler)
		return b
	}
	return b.add(nil, reflect.TypeFor[E](), true, func(s State[ID], ev any, ctx *C) State[ID] {
		return h(s, ev.(E), ctx)
	})
}

// OnAnyView is OnAny with a read-only copy of the context.
func OnAnyView[ID comparable, C any, E any](b *Builder[ID, C], h func(s State[ID], e E, ctx C) State[ID]) *Builder[ID, C] {
	if h == nil {
		b.errs = append(b.errs, ErrNilHandler)
		return b
	}
	return b.add(nil, reflect.TypeFor[E](), false, func(s State[ID], ev any, ctx *C) State[ID] {
		return h(s, ev.(E), *ctx)
	})
}

// Build validates the state set and handler table:
//   - ids and state types are unique
//   - every state's entry/exit actions match the policy
//   - Moore definitions only take read-only handlers
//   - every handler targets a registered state type
//   - at most one handler resolves for any state and event
//
// All violations are reported together.
func (b *Builder[ID, C]) Build() (*Definition[ID, C], error) {
	errs := append([]error(nil), b.errs...)
	if !b.policy.valid() {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPolicy, b.policy))
	}
	if len(b.states) == 0 {
		errs = append(errs, ErrNoStates)
	}

	d := &Definition[ID, C]{
		name:     b.name,
		policy:   b.policy,
		typeOf:   make(map[ID]reflect.Type, len(b.states)),
		idOf:     make(map[reflect.Type]ID, len(b.states)),
		handlers: make(map[handlerKey]handlerFunc[ID, C], len(b.regs)),
	}

	for _, s := range b.states {
		id, typ := s.ID(), reflect.TypeOf(s)
		if prev, ok := d.typeOf[id]; ok {
			errs = append(errs, &DuplicateStateError{ID: fmt.Sprint(id), First: prev.String(), Second: typ.String()})
			continue
		}
		if prev, ok := d.idOf[typ]; ok {
			errs = append(errs, &DuplicateStateError{ID: fmt.Sprintf("%v/%v", prev, id), First: typ.String(), Second: typ.String()})
			continue
		}
		if b.policy.valid() {
			errs = append(errs, checkActions[ID, C](s, b.policy)...)
		}
		d.typeOf[id] = typ
		d.idOf[typ] = id
		d.ids = append(d.ids, id)
	}

	for _, r := range b.regs {
		if r.mutable && b.policy == Moore {
			errs = append(errs, &PolicyViolationError{
				State:  scopeName(r.key.state),
				Policy: b.policy,
				Reason: fmt.Sprintf("handler for %v takes a mutable context", r.key.event),
			})
		}
		if r.key.state != nil {
			if _, ok := d.idOf[r.key.state]; !ok {
				errs = append(errs, fmt.Errorf("%w: handler registered for %v", ErrUnknownState, r.key.state))
				continue
			}
		}
		if _, dup := d.handlers[r.key]; dup {
			errs = append(errs, &AmbiguousHandlerError{State: scopeName(r.key.state), Event: r.key.event.String()})
			continue
		}
		d.handlers[r.key] = r.call
	}

	// Registration order keeps the joined error stable.
	reported := make(map[handlerKey]bool)
	for _, r := range b.regs {
		key := r.key
		if key.state == nil || reported[key] {
			continue
		}
		if _, ok := d.handlers[key]; !ok {
			continue
		}
		if _, ok := d.handlers[handlerKey{event: key.event}]; ok {
			reported[key] = true
			errs = append(errs, &AmbiguousHandlerError{State: key.state.String(), Event: key.event.String()})
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("definition %q: %w", b.name, err)
	}
	return d, nil
}

// MustBuild is Build that panics on error, for package-level definitions.
func (b *Builder[ID, C]) MustBuild() *Definition[ID, C] {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

func checkActions[ID comparable, C any](s State[ID], p Policy) []error {
	_, enters := s.(Enterer[C])
	_, exits := s.(Exiter[C])
	name := reflect.TypeOf(s).String()

	var errs []error
	violation := func(reason string) {
		errs = append(errs, &PolicyViolationError{State: name, Policy: p, Reason: reason})
	}
	if p.HasEntry() && !enters {
		violation("missing OnEnter")
	}
	if !p.HasEntry() && enters {
		violation("OnEnter is not allowed")
	}
	if p.HasExit() && !exits {
		violation("missing OnExit")
	}
	if !p.HasExit() && exits {
		violation("OnExit is not allowed")
	}
	return errs
}

func scopeName(t reflect.Type) string {
	if t == nil {
		return "common scope"
	}
	return t.String()
}
