package benchmarks

import (
	"fmt"
	"testing"
	"time"
)

func BenchmarkSchedulerRunIdle(b *testing.B) {
	for _, n := range []int{1, 16, 256} {
		b.Run(fmt.Sprintf("tasks=%d", n), func(b *testing.B) {
			s, _ := NewLoadedScheduler(n, time.Hour)
			b.ReportAllocs()
			for b.Loop() {
				s.Run()
			}
		})
	}
}

func BenchmarkSchedulerRunAllDue(b *testing.B) {
	for _, n := range []int{1, 16, 256} {
		b.Run(fmt.Sprintf("tasks=%d", n), func(b *testing.B) {
			s, step := NewLoadedScheduler(n, time.Millisecond)
			b.ReportAllocs()
			for b.Loop() {
				step(time.Millisecond)
				s.Run()
			}
		})
	}
}

func BenchmarkSchedulerDelayedTask(b *testing.B) {
	s, step := NewLoadedScheduler(1, time.Hour)
	fired := 0
	fn := func() { fired++ }
	b.ReportAllocs()
	for b.Loop() {
		if err := s.AddDelayedTask(fn, 0); err != nil {
			b.Fatal(err)
		}
		step(time.Microsecond)
		s.Run()
	}
	b.StopTimer()
	if fired == 0 {
		b.Fatal("delayed task never ran")
	}
}
