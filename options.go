package tickfsm

import (
	"log/slog"
	"sync"

	"github.com/comalice/tickfsm/timebase"
)

// TransitionRecord describes one completed transition.
type TransitionRecord struct {
	Machine string
	From    any
	To      any
	// Cause is the event type name, or "force" for ForceTransition.
	Cause string
	At    timebase.TimePoint
}

// Observer is notified after every completed transition, on the
// dispatching goroutine. It must not call back into the machine.
type Observer interface {
	OnTransition(rec TransitionRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec TransitionRecord)

func (f ObserverFunc) OnTransition(rec TransitionRecord) { f(rec) }

// Option applies configuration to Machine via functional options pattern.
type Option func(*machineOptions)

type machineOptions struct {
	name      string
	clock     timebase.Source
	guard     sync.Locker
	logger    *slog.Logger
	observers []Observer
}

// WithName sets the machine name used in logs, metrics and records.
func WithName(name string) Option {
	return func(o *machineOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithClock sets the time source for state-enter timestamps.
func WithClock(src timebase.Source) Option {
	return func(o *machineOptions) {
		if src != nil {
			o.clock = src
		}
	}
}

// WithLocker sets the guard taken around state replacement and state reads.
func WithLocker(l sync.Locker) Option {
	return func(o *machineOptions) {
		if l != nil {
			o.guard = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *machineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers a transition observer.
func WithObserver(obs Observer) Option {
	return func(o *machineOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}
