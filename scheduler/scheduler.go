// Package scheduler implements a cooperative, time-driven task scheduler.
//
// A Scheduler owns a fixed-capacity table of periodic tasks and a single
// one-shot (delayed) task slot. The host calls Run from its main loop or a
// fixed-rate tick; Run compares elapsed time against each task's period and
// invokes the tasks that are due, in registration order.
//
// The scheduler does no locking. All calls must come from one execution
// context, or the caller must serialise them.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/comalice/tickfsm/timebase"
)

// Scheduler dispatches periodic and delayed tasks against a monotonic clock.
type Scheduler struct {
	clock       timebase.Source
	capacity    int
	tasks       []periodicTask
	delayed     delayedTask
	initialized bool
	logger      *slog.Logger
	observers   []Observer
}

// New creates a scheduler reading time from src.
// The task table is allocated once; registration never grows it.
func New(src timebase.Source, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    src,
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	s.tasks = make([]periodicTask, 0, s.capacity)
	return s
}

// Init checks that the clock is ready and rearms every registered task.
func (s *Scheduler) Init() error {
	if s.clock == nil || !s.clock.Initialized() {
		return ErrClockNotReady
	}
	s.initialized = true
	s.Reset()
	s.logger.Debug("scheduler initialized", slog.Int("tasks", len(s.tasks)), slog.Int("capacity", s.capacity))
	return nil
}

// Initialized reports whether Init succeeded.
func (s *Scheduler) Initialized() bool {
	return s.initialized
}

// AddTask registers a periodic task and returns its slot index.
// The first execution happens no earlier than one period from now.
func (s *Scheduler) AddTask(fn TaskFunc, period time.Duration) (int, error) {
	if fn == nil {
		return -1, ErrNilTask
	}
	if period <= 0 {
		return -1, fmt.Errorf("%w: got %v", ErrInvalidPeriod, period)
	}
	if len(s.tasks) >= s.capacity {
		return -1, fmt.Errorf("%w: %d slots in use", ErrCapacityExceeded, s.capacity)
	}
	s.tasks = append(s.tasks, periodicTask{
		fn:       fn,
		period:   period,
		lastFire: s.now(),
	})
	index := len(s.tasks) - 1
	s.logger.Debug("registered periodic task", slog.Int("index", index), slog.Duration("period", period))
	return index, nil
}

// AddPeriodicTask registers a task whose deadline is always rearmed after it runs.
func (s *Scheduler) AddPeriodicTask(fn func(index int), period time.Duration) (int, error) {
	if fn == nil {
		return -1, ErrNilTask
	}
	return s.AddTask(func(index int) ExecStatus {
		fn(index)
		return Success
	}, period)
}

// SetTaskPeriod changes the period of an existing task.
// Out-of-range indexes and non-positive periods are ignored.
func (s *Scheduler) SetTaskPeriod(index int, period time.Duration) {
	if index < 0 || index >= len(s.tasks) || period <= 0 {
		s.logger.Debug("ignored period update", slog.Int("index", index), slog.Duration("period", period))
		return
	}
	s.tasks[index].period = period
}

// TaskPeriod returns the period of the task at index.
func (s *Scheduler) TaskPeriod(index int) (time.Duration, bool) {
	if index < 0 || index >= len(s.tasks) {
		return 0, false
	}
	return s.tasks[index].period, true
}

// Tasks returns a snapshot of the periodic task table.
func (s *Scheduler) Tasks() []TaskInfo {
	out := make([]TaskInfo, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = TaskInfo{Index: i, Period: t.period, LastFire: t.lastFire}
	}
	return out
}

// Len returns the number of registered periodic tasks.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Cap returns the periodic task capacity.
func (s *Scheduler) Cap() int {
	return s.capacity
}

// AddDelayedTask arms the one-shot slot, replacing any pending task.
// A zero delay fires on the next Run; negative delays are treated as zero.
func (s *Scheduler) AddDelayedTask(fn DelayedFunc, delay time.Duration) error {
	if fn == nil {
		return ErrNilTask
	}
	if delay < 0 {
		delay = 0
	}
	if s.delayed.pending {
		s.logger.Debug("replacing pending delayed task")
	}
	s.delayed = delayedTask{
		fn:      fn,
		delay:   delay,
		start:   s.now(),
		pending: true,
	}
	return nil
}

// CancelDelayedTask drops the pending one-shot task, reporting whether one was pending.
func (s *Scheduler) CancelDelayedTask() bool {
	was := s.delayed.pending
	s.delayed = delayedTask{}
	return was
}

// DelayedPending reports whether a one-shot task is armed.
func (s *Scheduler) DelayedPending() bool {
	return s.delayed.pending
}

// Run executes every task whose deadline has elapsed. It does nothing before Init.
func (s *Scheduler) Run() {
	if !s.initialized {
		return
	}
	now := s.clock.Now()

	for i := range s.tasks {
		t := &s.tasks[i]
		if now.Sub(t.lastFire) < t.period {
			continue
		}
		status := s.invoke(i, t.fn)
		if status == Success {
			t.lastFire = now
		}
	}

	if s.delayed.pending && now.Sub(s.delayed.start) >= s.delayed.delay {
		fn := s.delayed.fn
		// Cleared first so fn may arm a new one-shot.
		s.delayed = delayedTask{}
		s.invokeDelayed(fn)
	}
}

// Reset rearms every periodic task to now, keeping periods.
func (s *Scheduler) Reset() {
	now := s.now()
	for i := range s.tasks {
		s.tasks[i].lastFire = now
	}
}

func (s *Scheduler) invoke(index int, fn TaskFunc) ExecStatus {
	if len(s.observers) == 0 {
		return fn(index)
	}
	start := time.Now()
	status := fn(index)
	took := time.Since(start)
	for _, o := range s.observers {
		o.TaskFired(index, status, took)
	}
	return status
}

func (s *Scheduler) invokeDelayed(fn DelayedFunc) {
	if len(s.observers) == 0 {
		fn()
		return
	}
	start := time.Now()
	fn()
	took := time.Since(start)
	for _, o := range s.observers {
		o.DelayedFired(took)
	}
}

func (s *Scheduler) now() timebase.TimePoint {
	if s.clock == nil {
		return 0
	}
	return s.clock.Now()
}
