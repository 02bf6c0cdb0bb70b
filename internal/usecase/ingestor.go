package usecase

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/legacy"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/repository"
)

// WaitingSource yields claimed PRMS records. *legacy.Reader implements it.
type WaitingSource interface {
	Waiting(ctx context.Context) iter.Seq2[legacy.Record, error]
}

// PassResult summarizes one RunPass call.
type PassResult struct {
	RunID    string
	Claimed  int
	Enqueued int
	Failed   int
}

// LegacyIngestor stages claimed PRMS records locally and enqueues one
// PO_NEW_WAITING event for each.
type LegacyIngestor struct {
	source WaitingSource
	store  repository.Store
	now    func() time.Time
	log    *zap.Logger
}

func NewLegacyIngestor(source WaitingSource, store repository.Store) *LegacyIngestor {
	return &LegacyIngestor{
		source: source,
		store:  store,
		now:    time.Now,
		log:    logger.Named("ingest"),
	}
}

// WithClock returns i with now as its time source.
func (i *LegacyIngestor) WithClock(now func() time.Time) *LegacyIngestor {
	i.now = now
	return i
}

// RunPass drains the source once. A record that cannot be staged stays
// claimed in PRMS and is reported for manual handling; the pass continues.
// A read error from the source ends the pass.
func (i *LegacyIngestor) RunPass(ctx context.Context) (PassResult, error) {
	res := PassResult{RunID: uuid.NewString()}
	log := i.log.With(zap.String("run_id", res.RunID))

	for rec, err := range i.source.Waiting(ctx) {
		if err != nil {
			log.Warn("legacy extract pass stopped", zap.Int("claimed", res.Claimed), zap.Error(err))
			return res, fmt.Errorf("legacy extract pass: %w", err)
		}
		res.Claimed++

		po := rec.Header.PoNumber
		// A yielded record is already claimed in PRMS; staging must not be
		// abandoned halfway on cancellation.
		enqueued, err := i.stage(context.WithoutCancel(ctx), rec)
		if err != nil {
			res.Failed++
			log.Error("claimed PO could not be staged locally",
				zap.Bool("alert", true),
				zap.String("po_number", po),
				zap.Error(err),
			)
			continue
		}
		if enqueued {
			res.Enqueued++
		}
		log.Info("PO staged", zap.String("po_number", po), zap.Bool("enqueued", enqueued))
	}

	log.Info("legacy extract pass done",
		zap.Int("claimed", res.Claimed),
		zap.Int("enqueued", res.Enqueued),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (i *LegacyIngestor) stage(ctx context.Context, rec legacy.Record) (bool, error) {
	at := i.now().UTC()
	header := rec.Header
	header.CreatedAt = at

	ev, err := domain.NewWaitingEvent(header, len(rec.Lines), at)
	if err != nil {
		return false, fmt.Errorf("build outbox event for po %s: %w", header.PoNumber, err)
	}

	var enqueued bool
	err = i.store.InTx(ctx, repository.TxOptions{}, func(ctx context.Context, q repository.Querier) error {
		if err := q.UpsertPOHeader(ctx, header); err != nil {
			return err
		}
		if err := q.ReplacePOLines(ctx, header.PoNumber, rec.Lines); err != nil {
			return err
		}
		ok, err := q.EnqueueOutbox(ctx, ev)
		if err != nil {
			return err
		}
		enqueued = ok
		return nil
	})
	return enqueued, err
}
