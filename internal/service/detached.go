package service

import (
	"context"
	"sync"
	"time"

	"github.com/mavi-pizzeria/api/internal/logger"
	"go.uber.org/zap"
)

const detachedTimeout = 30 * time.Second

// Tasks runs best-effort side effects after the caller has already
// answered. A failing task is logged and never reaches the caller.
type Tasks struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewTasks() *Tasks {
	return &Tasks{timeout: detachedTimeout}
}

// Go runs fn on a context that keeps ctx's values but not its cancellation.
func (t *Tasks) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "detached task panicked", zap.String("task", name), zap.Any("panic", r))
			}
		}()
		if err := fn(ctx); err != nil {
			logger.Warn(ctx, "detached task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Drain waits for running tasks or until ctx is done.
func (t *Tasks) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
