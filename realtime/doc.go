// Package realtime drives a scheduler and a set of state machines from one
// fixed-rate tick loop.
//
// Events sent to the runtime are batched and delivered at the next tick
// boundary, in a deterministic order:
//  1. Priority (higher priority processed first)
//  2. Sequence number (FIFO for same priority)
//
// After the batch is delivered, the scheduler's Run is called once. Every
// callback (event handlers, entry and exit actions, periodic and delayed
// tasks) therefore executes on the tick goroutine, which is the single
// execution context both the scheduler and the machines require.
//
// # Example Usage
//
//	sched := scheduler.New(src)
//	rt := realtime.NewRuntime(realtime.Config{
//		TickRate: 10 * time.Millisecond,
//	}, realtime.WithScheduler(sched))
//	rt.Attach("door", machine)
//	rt.Start(ctx)
//	rt.SendEvent("door", OpenEvent{})
//
// Given the same sequence of SendEvent calls between ticks, machines observe
// the same event order regardless of goroutine scheduling.
//
// For tests and simulations, Tick runs one tick synchronously without the
// loop.
package realtime
