package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// OutboxBatchArgs triggers one outbox batch.
type OutboxBatchArgs struct{}

// Kind returns the job kind identifier for outbox batches.
func (OutboxBatchArgs) Kind() string { return "po_outbox_batch" }

// InsertOpts keeps at most one batch job per 30 seconds. Failed events are
// retried by the next batch, not by River.
func (OutboxBatchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueuePOApprovals,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 30 * time.Second,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// OutboxBatchWorker runs OutboxProcessor.RunBatch.
type OutboxBatchWorker struct {
	river.WorkerDefaults[OutboxBatchArgs]
	runner BatchRunner
}

func NewOutboxBatchWorker(runner BatchRunner) *OutboxBatchWorker {
	return &OutboxBatchWorker{runner: runner}
}

// Work runs one batch. Per-event failures are already contained in the
// batch; only a failed listing or cancellation fails the job.
func (w *OutboxBatchWorker) Work(ctx context.Context, _ *river.Job[OutboxBatchArgs]) error {
	if w == nil || w.runner == nil {
		return fmt.Errorf("outbox batch worker is not initialized")
	}

	res, err := w.runner.RunBatch(ctx)
	if err != nil {
		return fmt.Errorf("run outbox batch %s: %w", res.RunID, err)
	}
	if res.Failed > 0 {
		logger.Warn("outbox batch finished with failed events",
			zap.String("run_id", res.RunID),
			zap.Int("failed", res.Failed),
			zap.Int("processed", res.Processed),
		)
	}
	return nil
}
