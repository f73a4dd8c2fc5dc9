// Package benchmarks measures dispatch, scheduling and tick costs.
package benchmarks

import (
	"log/slog"
	"time"

	"github.com/comalice/tickfsm"
	"github.com/comalice/tickfsm/scheduler"
	"github.com/comalice/tickfsm/testutil"
)

var discard = slog.New(slog.DiscardHandler)

// Counter is the context of the ring machines.
type Counter struct {
	Steps   int
	Entries int
}

type (
	Tick  struct{}
	Reset struct{}
)

type (
	RingA struct{}
	RingB struct{}
	RingC struct{}
	RingD struct{}
)

func (RingA) ID() int { return 0 }
func (RingB) ID() int { return 1 }
func (RingC) ID() int { return 2 }
func (RingD) ID() int { return 3 }

func (RingA) OnEnter(c *Counter) { c.Entries++ }
func (RingB) OnEnter(c *Counter) { c.Entries++ }
func (RingC) OnEnter(c *Counter) { c.Entries++ }
func (RingD) OnEnter(c *Counter) { c.Entries++ }

func (RingA) OnExit(*Counter) {}
func (RingB) OnExit(*Counter) {}
func (RingC) OnExit(*Counter) {}
func (RingD) OnExit(*Counter) {}

// RingDefinition is a Mixed machine cycling A -> B -> C -> D -> A on Tick.
// Reset returns to A from any state.
func RingDefinition() *tickfsm.Definition[int, Counter] {
	b := tickfsm.NewBuilder[int, Counter]("ring", tickfsm.Mixed).
		States(RingA{}, RingB{}, RingC{}, RingD{})
	tickfsm.On(b, func(_ RingA, _ Tick, c *Counter) tickfsm.State[int] {
		c.Steps++
		return RingB{}
	})
	tickfsm.On(b, func(_ RingB, _ Tick, c *Counter) tickfsm.State[int] {
		c.Steps++
		return RingC{}
	})
	tickfsm.On(b, func(_ RingC, _ Tick, c *Counter) tickfsm.State[int] {
		c.Steps++
		return RingD{}
	})
	tickfsm.On(b, func(_ RingD, _ Tick, c *Counter) tickfsm.State[int] {
		c.Steps++
		return RingA{}
	})
	tickfsm.OnAny(b, func(_ tickfsm.State[int], _ Reset, _ *Counter) tickfsm.State[int] { return RingA{} })
	return b.MustBuild()
}

// NewRing returns a started ring machine on a fake clock.
func NewRing(def *tickfsm.Definition[int, Counter], opts ...tickfsm.Option) (*tickfsm.Machine[int, Counter], *Counter) {
	src, _ := testutil.NewFakeSource()
	c := &Counter{}
	opts = append([]tickfsm.Option{tickfsm.WithClock(src), tickfsm.WithLogger(discard)}, opts...)
	m, err := tickfsm.NewMachine(def, c, RingA{}, opts...)
	if err != nil {
		panic(err)
	}
	if err := m.Start(); err != nil {
		panic(err)
	}
	return m, c
}

// NewLoadedScheduler returns an initialized scheduler with n tasks of the
// given period, and a fake clock to drive it.
func NewLoadedScheduler(n int, period time.Duration) (*scheduler.Scheduler, func(time.Duration)) {
	src, clk := testutil.NewFakeSource()
	s := scheduler.New(src, scheduler.WithCapacity(n), scheduler.WithLogger(discard))
	for range n {
		if _, err := s.AddTask(func(int) scheduler.ExecStatus { return scheduler.Success }, period); err != nil {
			panic(err)
		}
	}
	if err := s.Init(); err != nil {
		panic(err)
	}
	return s, clk.Step
}
