package scheduler

import (
	"log/slog"
	"time"

	"github.com/comalice/tickfsm/timebase"
)

// ExecStatus is the result a periodic task reports back to the scheduler.
type ExecStatus uint8

const (
	// Success rearms the task deadline.
	Success ExecStatus = iota
	// Fail keeps the deadline so the task runs again on the next Run.
	Fail
)

func (s ExecStatus) String() string {
	switch s {
	case Success:
		return "success"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// TaskFunc is a periodic task callback. index is the task's registry slot.
type TaskFunc func(index int) ExecStatus

// DelayedFunc is a one-shot callback.
type DelayedFunc func()

type periodicTask struct {
	fn       TaskFunc
	period   time.Duration
	lastFire timebase.TimePoint
}

type delayedTask struct {
	fn      DelayedFunc
	delay   time.Duration
	start   timebase.TimePoint
	pending bool
}

// LoggingTask wraps fn and logs its status and latency at debug level.
func LoggingTask(logger *slog.Logger, name string, fn TaskFunc) TaskFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(index int) ExecStatus {
		start := time.Now()
		status := fn(index)
		logger.Debug("task executed",
			slog.String("task", name),
			slog.Int("index", index),
			slog.String("status", status.String()),
			slog.Duration("took", time.Since(start)))
		return status
	}
}

// TaskInfo is a read-only view of one periodic task slot.
type TaskInfo struct {
	Index    int                `json:"index" yaml:"index"`
	Period   time.Duration      `json:"period" yaml:"period"`
	LastFire timebase.TimePoint `json:"last_fire" yaml:"last_fire"`
}
