package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BestEffort is the result of a side operation the game does not wait for.
// Callers may Wait on it, poll Err, or drop it; a failure is logged either way.
type BestEffort struct {
	done chan struct{}
	err  error
}

func runBestEffort(timeout time.Duration, log *zap.Logger, msg string, fields []zap.Field, fn func(ctx context.Context) error) *BestEffort {
	b := &BestEffort{done: make(chan struct{})}

	go func() {
		defer close(b.done)
		defer func() {
			if r := recover(); r != nil {
				b.err = fmt.Errorf("panic: %v", r)
				log.Error(msg, append(fields, zap.Error(b.err))...)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			b.err = err
			log.Warn(msg, append(fields, zap.Error(err))...)
		}
	}()

	return b
}

func finishedBestEffort(err error) *BestEffort {
	b := &BestEffort{done: make(chan struct{}), err: err}
	close(b.done)
	return b
}

func (b *BestEffort) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the operation finishes or ctx is done.
func (b *BestEffort) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the outcome once finished and nil while still pending.
func (b *BestEffort) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}
