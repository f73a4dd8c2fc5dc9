// Package timebase provides the monotonic time source consumed by the
// scheduler and the state machines.
//
// Time is expressed as a TimePoint: a signed 64-bit nanosecond count since the
// source's epoch, truncated to the source resolution. Arithmetic saturates
// instead of wrapping, so a clock that steps backwards yields zero elapsed
// time rather than a huge positive one.
package timebase

import (
	"math"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

// TimePoint is a monotonic instant measured from the source epoch.
type TimePoint int64

// MaxTimePoint is the largest representable instant.
const MaxTimePoint = TimePoint(math.MaxInt64)

// DefaultResolution is the tick granularity used when none is configured.
const DefaultResolution = time.Millisecond

// Sub returns t-u, or zero when u is after t.
func (t TimePoint) Sub(u TimePoint) time.Duration {
	if u >= t {
		return 0
	}
	return time.Duration(t - u)
}

// Add returns t+d, saturating at zero and MaxTimePoint.
func (t TimePoint) Add(d time.Duration) TimePoint {
	if d > 0 && t > MaxTimePoint-TimePoint(d) {
		return MaxTimePoint
	}
	r := t + TimePoint(d)
	if r < 0 {
		return 0
	}
	return r
}

func (t TimePoint) String() string {
	return time.Duration(t).String()
}

// Source is the clock collaborator. Now must never decrease within one epoch.
type Source interface {
	Now() TimePoint
	Initialized() bool
}

// Monotonic adapts a clock.PassiveClock into a Source.
// It reports zero until Init has captured the epoch.
type Monotonic struct {
	clock      clock.PassiveClock
	resolution time.Duration
	epoch      atomic.Pointer[time.Time]
}

// Option configures a Monotonic source.
type Option func(*Monotonic)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.PassiveClock) Option {
	return func(m *Monotonic) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithResolution sets the tick granularity. Non-positive values are ignored.
func WithResolution(d time.Duration) Option {
	return func(m *Monotonic) {
		if d > 0 {
			m.resolution = d
		}
	}
}

// NewMonotonic creates an uninitialised source backed by the real clock.
func NewMonotonic(opts ...Option) *Monotonic {
	m := &Monotonic{
		clock:      clock.RealClock{},
		resolution: DefaultResolution,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init captures the epoch. Calling it again starts a new epoch; concurrent
// Now calls see either the old epoch or the new one.
func (m *Monotonic) Init() {
	epoch := m.clock.Now()
	m.epoch.Store(&epoch)
}

// Initialized reports whether Init has been called.
func (m *Monotonic) Initialized() bool {
	return m.epoch.Load() != nil
}

// Resolution returns the configured tick granularity.
func (m *Monotonic) Resolution() time.Duration {
	return m.resolution
}

// Now returns the time since the epoch truncated to the resolution.
func (m *Monotonic) Now() TimePoint {
	epoch := m.epoch.Load()
	if epoch == nil {
		return 0
	}
	d := m.clock.Since(*epoch)
	if d < 0 {
		return 0
	}
	return TimePoint(d.Truncate(m.resolution))
}
