package realtime

import (
	"log/slog"
	"time"
)

// Tick processes one complete tick on the calling goroutine. It is what the
// loop calls on every ticker fire; tests and simulations call it directly.
func (rt *Runtime) Tick() {
	rt.tickMu.Lock()
	defer rt.tickMu.Unlock()

	start := time.Now()
	tick := rt.tickNum.Load() + 1

	// Phase 1: Collect events atomically
	events := rt.collectEvents()

	// Phase 2: Sort for deterministic order
	sortEvents(events)

	// Phase 3: Deliver events
	for i := range events {
		rt.deliver(tick, &events[i])
	}

	// Phase 4: Periodic and delayed tasks
	rt.runScheduler(tick)

	n := len(events)
	clear(events)
	rt.spare = events[:0]

	rt.tickNum.Store(tick)
	if len(rt.observers) > 0 {
		took := time.Since(start)
		for _, o := range rt.observers {
			o.TickCompleted(tick, n, took)
		}
	}
}

// collectEvents swaps the batch with the spare buffer.
func (rt *Runtime) collectEvents() []EventWithMeta {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	events := rt.eventBatch
	rt.eventBatch = rt.spare
	rt.spare = nil
	return events
}

func (rt *Runtime) deliver(tick uint64, ev *EventWithMeta) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("event handler panicked",
				slog.Uint64("tick", tick),
				slog.String("target", ev.Target),
				slog.Any("panic", r))
		}
	}()

	rt.targetsMu.RLock()
	d, ok := rt.targets[ev.Target]
	rt.targetsMu.RUnlock()
	if !ok {
		rt.logger.Warn("dropping event for detached target", slog.String("target", ev.Target))
		return
	}
	if err := d.Dispatch(ev.Event); err != nil {
		rt.logger.Warn("dispatch failed",
			slog.Uint64("tick", tick),
			slog.String("target", ev.Target),
			slog.Any("error", err))
	}
}

func (rt *Runtime) runScheduler(tick uint64) {
	if rt.sched == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("scheduled task panicked", slog.Uint64("tick", tick), slog.Any("panic", r))
		}
	}()
	rt.sched.Run()
}
