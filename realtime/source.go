package realtime

import (
	"context"
	"errors"
	"log/slog"
)

// AttachSource forwards events from src to target until src is closed or
// ctx is done. It blocks; run it on its own goroutine. Events arriving while
// the queue is full are dropped and logged.
func (rt *Runtime) AttachSource(ctx context.Context, target string, src <-chan any) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-src:
			if !ok {
				return nil
			}
			err := rt.SendEvent(target, ev)
			switch {
			case err == nil:
			case errors.Is(err, ErrQueueFull):
				rt.logger.Warn("source event dropped", slog.String("target", target), slog.Any("error", err))
			default:
				return err
			}
		}
	}
}
