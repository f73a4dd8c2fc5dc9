// Package testutil holds helpers shared by the package tests: a fake clock
// source and a transition recorder.
package testutil

import (
	"time"

	testclock "k8s.io/utils/clock/testing"

	"github.com/comalice/tickfsm/timebase"
)

// Epoch is the wall time fake sources start at.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewFakeSource returns an initialised millisecond source driven by a fake clock.
// Advance time with clk.Step.
func NewFakeSource() (*timebase.Monotonic, *testclock.FakeClock) {
	clk := testclock.NewFakeClock(Epoch)
	src := timebase.NewMonotonic(timebase.WithClock(clk))
	src.Init()
	return src, clk
}
