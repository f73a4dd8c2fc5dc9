package tickfsm

import (
	"errors"
	"fmt"
)

var (
	ErrNoStates          = errors.New("tickfsm: definition has no states")
	ErrNilState          = errors.New("tickfsm: nil state")
	ErrInvalidPolicy     = errors.New("tickfsm: invalid policy")
	ErrInvalidEventType  = errors.New("tickfsm: event type must be concrete")
	ErrNilHandler        = errors.New("tickfsm: nil handler")
	ErrUnknownState      = errors.New("tickfsm: state not in definition")
	ErrNilDefinition     = errors.New("tickfsm: nil definition")
	ErrNilContext        = errors.New("tickfsm: nil context")
	ErrNilEvent          = errors.New("tickfsm: nil event")
	ErrNotStarted        = errors.New("tickfsm: machine not started")
	ErrStopped           = errors.New("tickfsm: machine stopped")
	ErrReentrantDispatch = errors.New("tickfsm: recursive dispatch on the same machine")
)

// DuplicateStateError reports two registrations sharing an id or a type.
type DuplicateStateError struct {
	ID     string
	First  string
	Second string
}

func (e *DuplicateStateError) Error() string {
	return fmt.Sprintf("tickfsm: duplicate state %s: %s and %s", e.ID, e.First, e.Second)
}

// PolicyViolationError reports a state or handler that does not fit the policy.
type PolicyViolationError struct {
	State  string
	Policy Policy
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("tickfsm: %s violates %s policy: %s", e.State, e.Policy, e.Reason)
}

// AmbiguousHandlerError reports more than one handler resolving for a state and event.
type AmbiguousHandlerError struct {
	State string
	Event string
}

func (e *AmbiguousHandlerError) Error() string {
	return fmt.Sprintf("tickfsm: ambiguous handlers for event %s in state %s", e.Event, e.State)
}

func IsDuplicateStateError(err error) bool {
	var e *DuplicateStateError
	return errors.As(err, &e)
}

func IsPolicyViolationError(err error) bool {
	var e *PolicyViolationError
	return errors.As(err, &e)
}

func IsAmbiguousHandlerError(err error) bool {
	var e *AmbiguousHandlerError
	return errors.As(err, &e)
}
