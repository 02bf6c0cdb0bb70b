package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// LegacyExtractArgs triggers one PRMS extract pass.
type LegacyExtractArgs struct{}

// Kind returns the job kind identifier for legacy extraction.
func (LegacyExtractArgs) Kind() string { return "po_legacy_extract" }

// InsertOpts allows a few retries: a pass only claims rows still waiting, so
// running it again is safe.
func (LegacyExtractArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueuePOApprovals,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Minute,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// LegacyExtractWorker runs LegacyIngestor.RunPass.
type LegacyExtractWorker struct {
	river.WorkerDefaults[LegacyExtractArgs]
	runner PassRunner
}

func NewLegacyExtractWorker(runner PassRunner) *LegacyExtractWorker {
	return &LegacyExtractWorker{runner: runner}
}

func (w *LegacyExtractWorker) Work(ctx context.Context, _ *river.Job[LegacyExtractArgs]) error {
	if w == nil || w.runner == nil {
		return fmt.Errorf("legacy extract worker is not initialized")
	}

	res, err := w.runner.RunPass(ctx)
	if err != nil {
		return fmt.Errorf("run legacy extract %s: %w", res.RunID, err)
	}
	logger.Info("legacy extract job completed",
		zap.String("run_id", res.RunID),
		zap.Int("claimed", res.Claimed),
		zap.Int("enqueued", res.Enqueued),
		zap.Int("failed", res.Failed),
	)
	return nil
}
