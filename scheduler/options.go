package scheduler

import (
	"log/slog"
	"time"
)

// DefaultCapacity is the number of periodic task slots when none is configured.
const DefaultCapacity = 16

// Observer receives execution reports. Implementations must not call back
// into the scheduler.
type Observer interface {
	TaskFired(index int, status ExecStatus, took time.Duration)
	DelayedFired(took time.Duration)
}

// Option configures a Scheduler via functional options pattern.
type Option func(*Scheduler)

// WithCapacity sets the fixed number of periodic task slots.
func WithCapacity(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an execution observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}
