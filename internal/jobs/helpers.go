// Package jobs defines the River job types that trigger the approval
// pipeline: one outbox batch and one legacy extract pass per job.
//
// Jobs carry no payload. Each run reads its work from the database, so a
// duplicate or late job is harmless.
//
// Import Path: github.com/ppockey/po-approvals/internal/jobs
package jobs

import (
	"context"
	"time"

	"github.com/riverqueue/river"

	"github.com/ppockey/po-approvals/internal/usecase"
)

// QueuePOApprovals is the River queue all pipeline jobs run on.
const QueuePOApprovals = "po_approvals"

// BatchRunner runs one outbox batch. *usecase.OutboxProcessor implements it.
type BatchRunner interface {
	RunBatch(ctx context.Context) (usecase.BatchResult, error)
}

// PassRunner runs one legacy extract pass. *usecase.LegacyIngestor
// implements it.
type PassRunner interface {
	RunPass(ctx context.Context) (usecase.PassResult, error)
}

// Register adds the pipeline workers. A nil extract runner leaves legacy
// extraction unregistered, which is the case when PRMS is disabled.
func Register(workers *river.Workers, outbox BatchRunner, extract PassRunner) {
	if workers == nil {
		return
	}
	if outbox != nil {
		river.AddWorker(workers, NewOutboxBatchWorker(outbox))
	}
	if extract != nil {
		river.AddWorker(workers, NewLegacyExtractWorker(extract))
	}
}

// PeriodicJobs returns the schedule of the pipeline. A non-positive interval
// disables that job.
func PeriodicJobs(outboxEvery, extractEvery time.Duration) []*river.PeriodicJob {
	var out []*river.PeriodicJob
	if outboxEvery > 0 {
		out = append(out, river.NewPeriodicJob(
			river.PeriodicInterval(outboxEvery),
			func() (river.JobArgs, *river.InsertOpts) {
				return OutboxBatchArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}
	if extractEvery > 0 {
		out = append(out, river.NewPeriodicJob(
			river.PeriodicInterval(extractEvery),
			func() (river.JobArgs, *river.InsertOpts) {
				return LegacyExtractArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}
	return out
}
