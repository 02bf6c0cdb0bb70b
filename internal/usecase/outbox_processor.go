package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/chain"
	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/governance/audit"
	"github.com/ppockey/po-approvals/internal/notification"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/pkg/metrics"
	"github.com/ppockey/po-approvals/internal/repository"
)

// Outbox batch bounds.
const (
	DefaultBatchSize = 25
	MaxBatchSize     = 50

	attemptsTimeout = 5 * time.Second
)

// OutboxConfig tunes one processor.
type OutboxConfig struct {
	BatchSize int
	// MaxAttempts stops re-reading events that failed this many times.
	// Zero disables the cut-off.
	MaxAttempts int
}

// BatchResult summarizes one RunBatch call.
type BatchResult struct {
	RunID         string
	Candidates    int
	Processed     int
	Failed        int
	Skipped       int
	ChainsCreated int
}

// OutboxProcessor turns PO_NEW_WAITING events into approval chains.
type OutboxProcessor struct {
	store    repository.Store
	notifier notification.Notifier
	cfg      OutboxConfig
	now      func() time.Time
	log      *zap.Logger
}

// NewOutboxProcessor creates a processor. A batch size outside 1..50 falls
// back to DefaultBatchSize.
func NewOutboxProcessor(store repository.Store, n notification.Notifier, cfg OutboxConfig) *OutboxProcessor {
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = DefaultBatchSize
	}
	return &OutboxProcessor{
		store:    store,
		notifier: n,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Named("outbox"),
	}
}

// WithClock returns p with now as its time source.
func (p *OutboxProcessor) WithClock(now func() time.Time) *OutboxProcessor {
	p.now = now
	return p
}

type eventOutcome struct {
	skipped bool
	created bool
	po      string
	next    *domain.ApprovalStage
}

// RunBatch processes up to BatchSize unprocessed events, each in its own
// transaction. A failing event is counted and left for the next run; only
// listing the batch or cancellation fails the call.
func (p *OutboxProcessor) RunBatch(ctx context.Context) (BatchResult, error) {
	res := BatchResult{RunID: uuid.NewString()}
	log := p.log.With(zap.String("run_id", res.RunID))

	ids, err := p.store.ListPendingOutbox(ctx, domain.EventPONewWaiting, p.cfg.MaxAttempts, p.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("load outbox batch: %w", err)
	}
	res.Candidates = len(ids)
	if len(ids) == 0 {
		log.Debug("no unprocessed outbox events")
		return res, nil
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.Warn("outbox batch cancelled", zap.Int("remaining", res.Candidates-res.Processed-res.Failed-res.Skipped))
			return res, err
		}

		evLog := log.With(zap.Int64("outbox_id", id))
		out, err := p.processOne(ctx, id)
		if err != nil {
			res.Failed++
			metrics.OutboxEvents.WithLabelValues("failed").Inc()
			evLog.Error("outbox event failed", zap.Error(err))
			p.bumpAttempts(ctx, id, evLog)
			continue
		}
		if out.skipped {
			res.Skipped++
			metrics.OutboxEvents.WithLabelValues("skipped").Inc()
			evLog.Debug("outbox event locked elsewhere or already processed")
			continue
		}

		res.Processed++
		metrics.OutboxEvents.WithLabelValues("processed").Inc()
		if out.created {
			res.ChainsCreated++
			metrics.ChainsCreated.Inc()
		}
		evLog.Info("outbox event processed",
			zap.String("po_number", out.po),
			zap.Bool("chain_created", out.created),
		)
		if out.next != nil && p.notifier != nil {
			p.notifier.NotifyStageReady(ctx, out.po, out.next.Sequence, out.next.RoleCode)
		}
	}

	log.Info("outbox batch done",
		zap.Int("candidates", res.Candidates),
		zap.Int("processed", res.Processed),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
		zap.Int("chains_created", res.ChainsCreated),
	)
	return res, nil
}

func (p *OutboxProcessor) processOne(ctx context.Context, id int64) (eventOutcome, error) {
	var out eventOutcome
	err := p.store.InTx(ctx, repository.TxOptions{}, func(ctx context.Context, q repository.Querier) error {
		out = eventOutcome{}

		ev, err := q.LockOutboxEvent(ctx, id)
		if err != nil {
			return err
		}
		if ev == nil {
			out.skipped = true
			return nil
		}
		out.po = ev.PoNumber

		exists, err := q.ChainExists(ctx, ev.PoNumber)
		if err != nil {
			return err
		}
		if !exists {
			created, err := p.createChain(ctx, q, *ev)
			if err != nil {
				return err
			}
			out.created = created
		}

		out.next, err = q.FirstPendingStage(ctx, ev.PoNumber)
		if err != nil {
			return err
		}

		affected, err := q.MarkOutboxProcessed(ctx, id, p.now().UTC())
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("mark outbox event %d processed: already processed", id)
		}
		return nil
	})
	return out, err
}

// createChain inserts the chain, its stages and the initial audit row. It
// reports false when a concurrent transaction created the chain first.
func (p *OutboxProcessor) createChain(ctx context.Context, q repository.Querier, ev domain.OutboxEvent) (bool, error) {
	affected, err := q.CreateChain(ctx, ev.PoNumber, p.now().UTC())
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	roles := chain.Build(ev.PoNumber, ev.DirectAmount, ev.IndirectAmount)
	stages := make([]domain.ApprovalStage, 0, len(roles))
	for _, r := range roles {
		stages = append(stages, r.NewPendingStage(ev.PoNumber))
	}
	if err := q.InsertStages(ctx, stages); err != nil {
		return false, err
	}
	if err := audit.NewRecorder(q, p.now).ChainInitialized(ctx, ev.PoNumber); err != nil {
		return false, err
	}
	return true, nil
}

// bumpAttempts increments the attempt counter outside the failed
// transaction. Failures are logged and swallowed.
func (p *OutboxProcessor) bumpAttempts(ctx context.Context, id int64, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), attemptsTimeout)
	defer cancel()
	if _, err := p.store.IncrementOutboxAttempts(ctx, id); err != nil {
		log.Warn("failed to increment outbox attempts", zap.Error(err))
	}
}
