package telegram

import (
	"context"

	"eduplatform/internal/domain/ports/adapter"
	"eduplatform/internal/infra/worker"
)

var _ adapter.OperatorNotifier = (*AsyncNotifier)(nil)

// AsyncNotifier hands notifications to the worker pool so the caller never
// waits on Telegram. The request context is not propagated: the task outlives it.
type AsyncNotifier struct {
	pool  *worker.Pool
	inner adapter.OperatorNotifier
}

func NewAsyncNotifier(pool *worker.Pool, inner adapter.OperatorNotifier) *AsyncNotifier {
	return &AsyncNotifier{pool: pool, inner: inner}
}

// Notify returns worker.ErrQueueFull when the pool is saturated.
func (a *AsyncNotifier) Notify(_ context.Context, text string) error {
	return a.pool.Submit("operator_notify", func(ctx context.Context) error {
		return a.inner.Notify(ctx, text)
	})
}
