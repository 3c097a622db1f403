package runctx

import (
	"context"
	"time"

	"unpod-notifier/internal/logging"
)

func RecvOrDone[T any](ctx context.Context, name string, logger *logging.Logger, in <-chan T) (T, bool) {
	if logger == nil {
		panic("runctx.RecvOrDone: logger must not be nil")
	}
	select {
	case <-ctx.Done():
		logger.Debug("stopping "+name+": context canceled", logging.Field("error", ctx.Err()))
		var zero T
		return zero, false
	case v, ok := <-in:
		if !ok {
			logger.Debug("stopping " + name + ": input channel closed")
		}
		return v, ok
	}
}

func SendOrDone[T any](ctx context.Context, name string, logger *logging.Logger, out chan<- T, value T) bool {
	if logger == nil {
		panic("runctx.SendOrDone: logger must not be nil")
	}
	select {
	case <-ctx.Done():
		logger.Debug("stopping "+name+": context canceled before send", logging.Field("error", ctx.Err()))
		return false
	case out <- value:
		return true
	}
}

// SendLatest queues value on a buffered channel, evicting the oldest
// entry to make room when the buffer is full. For single-producer feeds
// whose consumer only cares about recent values.
func SendLatest[T any](out chan T, value T) {
	select {
	case out <- value:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- value
}

func SleepOrDone(ctx context.Context, name string, logger *logging.Logger, d time.Duration) bool {
	if logger == nil {
		panic("runctx.SleepOrDone: logger must not be nil")
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		logger.Debug("stopping "+name+": context canceled", logging.Field("error", ctx.Err()))
		return false
	case <-timer.C:
		return true
	}
}
