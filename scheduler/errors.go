package scheduler

import "errors"

var (
	ErrCapacityExceeded = errors.New("scheduler: task capacity exceeded")
	ErrInvalidPeriod    = errors.New("scheduler: period must be positive")
	ErrNilTask          = errors.New("scheduler: task callback is nil")
	ErrClockNotReady    = errors.New("scheduler: clock source not initialized")
)
