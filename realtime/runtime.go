package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/comalice/tickfsm/scheduler"
)

var (
	ErrQueueFull       = errors.New("realtime: event queue full")
	ErrUnknownTarget   = errors.New("realtime: unknown target")
	ErrDuplicateTarget = errors.New("realtime: target already attached")
	ErrNilDispatcher   = errors.New("realtime: nil dispatcher")
	ErrAlreadyRunning  = errors.New("realtime: runtime already running")
)

// Dispatcher is an event sink driven by the runtime. *tickfsm.Machine
// satisfies it for every state and context type.
type Dispatcher interface {
	Dispatch(event any) error
}

// TickObserver is told about every completed tick, on the tick goroutine.
type TickObserver interface {
	TickCompleted(tick uint64, events int, took time.Duration)
}

// Config configures the runtime.
type Config struct {
	TickRate         time.Duration // Fixed tick rate (default 10ms)
	MaxEventsPerTick int           // Event queue capacity (default 1000)
}

const (
	DefaultTickRate         = 10 * time.Millisecond
	DefaultMaxEventsPerTick = 1000
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithScheduler sets the scheduler run once per tick.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(rt *Runtime) { rt.sched = s }
}

// WithClock sets the clock the tick loop's ticker comes from.
func WithClock(c clock.WithTicker) Option {
	return func(rt *Runtime) {
		if c != nil {
			rt.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithName sets the runtime name used in logs.
func WithName(name string) Option {
	return func(rt *Runtime) {
		if name != "" {
			rt.name = name
		}
	}
}

// WithTickObserver registers a tick observer.
func WithTickObserver(o TickObserver) Option {
	return func(rt *Runtime) {
		if o != nil {
			rt.observers = append(rt.observers, o)
		}
	}
}

// Runtime owns the tick loop. All dispatching and scheduling happens on
// the loop goroutine, or on the caller of Tick.
type Runtime struct {
	name      string
	tickRate  time.Duration
	clock     clock.WithTicker
	sched     *scheduler.Scheduler
	logger    *slog.Logger
	observers []TickObserver

	targetsMu sync.RWMutex
	targets   map[string]Dispatcher

	// Event batching
	batchMu     sync.Mutex
	eventBatch  []EventWithMeta
	spare       []EventWithMeta
	sequenceNum uint64

	tickMu  sync.Mutex
	tickNum atomic.Uint64

	// Control
	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRuntime creates a runtime. Zero config fields take defaults.
func NewRuntime(cfg Config, opts ...Option) *Runtime {
	if cfg.MaxEventsPerTick <= 0 {
		cfg.MaxEventsPerTick = DefaultMaxEventsPerTick
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}

	rt := &Runtime{
		name:       "runtime-" + uuid.NewString()[:8],
		tickRate:   cfg.TickRate,
		clock:      clock.RealClock{},
		logger:     slog.Default(),
		targets:    make(map[string]Dispatcher),
		eventBatch: make([]EventWithMeta, 0, cfg.MaxEventsPerTick),
		spare:      make([]EventWithMeta, 0, cfg.MaxEventsPerTick),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.logger = rt.logger.With("component", "realtime", "runtime", rt.name)
	return rt
}

// Attach registers d under name. Events sent to name are delivered to d.
func (rt *Runtime) Attach(name string, d Dispatcher) error {
	if d == nil {
		return ErrNilDispatcher
	}
	rt.targetsMu.Lock()
	defer rt.targetsMu.Unlock()
	if _, ok := rt.targets[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTarget, name)
	}
	rt.targets[name] = d
	return nil
}

// Detach removes the target registered under name.
func (rt *Runtime) Detach(name string) {
	rt.targetsMu.Lock()
	delete(rt.targets, name)
	rt.targetsMu.Unlock()
}

// SendEvent queues an event for target at the default priority (thread-safe).
func (rt *Runtime) SendEvent(target string, event any) error {
	return rt.SendEventWithPriority(target, event, 0)
}

// SendEventWithPriority queues an event with priority; higher runs first
// within a tick.
func (rt *Runtime) SendEventWithPriority(target string, event any, priority int) error {
	rt.targetsMu.RLock()
	_, ok := rt.targets[target]
	rt.targetsMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	if len(rt.eventBatch) >= cap(rt.eventBatch) {
		return ErrQueueFull
	}
	rt.eventBatch = append(rt.eventBatch, EventWithMeta{
		Target:      target,
		Event:       event,
		SequenceNum: rt.sequenceNum,
		Priority:    priority,
	})
	rt.sequenceNum++
	return nil
}

// QueueLen returns the number of events waiting for the next tick.
func (rt *Runtime) QueueLen() int {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()
	return len(rt.eventBatch)
}

// Start begins tick-based execution. The loop ends when ctx is done or
// Stop is called.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.runMu.Lock()
	defer rt.runMu.Unlock()
	if rt.cancel != nil {
		return ErrAlreadyRunning
	}

	tickCtx, cancel := context.WithCancel(ctx)
	ticker := rt.clock.NewTicker(rt.tickRate)
	rt.cancel = cancel
	rt.stopped = make(chan struct{})

	go rt.tickLoop(tickCtx, ticker, rt.stopped)

	rt.logger.Info("runtime started", slog.Duration("tick_rate", rt.tickRate))
	return nil
}

// Stop ends the tick loop and waits for it to exit. Queued events are kept.
func (rt *Runtime) Stop() error {
	rt.runMu.Lock()
	defer rt.runMu.Unlock()
	if rt.cancel == nil {
		return nil
	}
	rt.cancel()
	<-rt.stopped
	rt.cancel = nil
	rt.logger.Info("runtime stopped", slog.Uint64("ticks", rt.GetTickNumber()))
	return nil
}

// Done returns a channel closed when the running loop exits, or nil if the
// runtime was never started.
func (rt *Runtime) Done() <-chan struct{} {
	rt.runMu.Lock()
	defer rt.runMu.Unlock()
	return rt.stopped
}

func (rt *Runtime) tickLoop(ctx context.Context, ticker clock.Ticker, stopped chan struct{}) {
	defer close(stopped)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			rt.Tick()
		}
	}
}

// GetTickNumber returns the number of completed ticks.
func (rt *Runtime) GetTickNumber() uint64 {
	return rt.tickNum.Load()
}

// TickRate returns the configured tick period.
func (rt *Runtime) TickRate() time.Duration {
	return rt.tickRate
}
