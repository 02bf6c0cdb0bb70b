package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/pkg/worker"
)

// Submitter is the part of worker.Pools used here.
type Submitter interface {
	SubmitDetached(poolName string, task worker.Task) error
}

// AsyncNotifier runs another Notifier on the notify worker pool, detached
// from the caller's context.
type AsyncNotifier struct {
	next  Notifier
	pools Submitter
}

func NewAsyncNotifier(next Notifier, pools Submitter) *AsyncNotifier {
	return &AsyncNotifier{next: next, pools: pools}
}

func (a *AsyncNotifier) NotifyStageReady(_ context.Context, po string, seq int, role string) {
	err := a.pools.SubmitDetached(worker.PoolNotify, func(ctx context.Context) {
		a.next.NotifyStageReady(ctx, po, seq, role)
	})
	if err != nil {
		logger.Warn("notification dropped: pool rejected task",
			zap.String("po_number", po),
			zap.Int("sequence", seq),
			zap.Error(err),
		)
	}
}

var _ Notifier = (*AsyncNotifier)(nil)
