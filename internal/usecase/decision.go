// Package usecase holds the application operations of the approval workflow:
// chain initialization from the outbox, approve and deny decisions, and the
// legacy ingestion pass.
//
// Local state changes are one transaction per operation. PRMS writes and
// notifications run strictly after commit and are never retried.
//
// Import Path: github.com/ppockey/po-approvals/internal/usecase
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/governance/audit"
	"github.com/ppockey/po-approvals/internal/legacy"
	"github.com/ppockey/po-approvals/internal/notification"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/pkg/metrics"
	"github.com/ppockey/po-approvals/internal/repository"
)

// DefaultDecisionTries bounds the serializable retries of one decision.
const DefaultDecisionTries = 5

// Outcome describes what a decision changed.
type Outcome struct {
	PoNumber    string
	Sequence    int
	Decision    domain.Decision
	ChainStatus domain.ChainStatus
	Finalized   bool
	// Next is the stage that became current, nil when the chain finalized or
	// nothing is left pending.
	Next *domain.ApprovalStage
	// LegacyWritten is true once both PRMS writes succeeded.
	LegacyWritten bool
}

// DecisionService applies approve and deny decisions to approval chains.
type DecisionService struct {
	store     repository.Store
	legacy    legacy.Writer
	notifier  notification.Notifier
	authority *AuthorityResolver
	now       func() time.Time
	maxTries  uint
	log       *zap.Logger
}

// DecisionOption configures a DecisionService.
type DecisionOption func(*DecisionService)

// WithDecisionClock overrides time.Now.
func WithDecisionClock(now func() time.Time) DecisionOption {
	return func(s *DecisionService) { s.now = now }
}

// WithMaxTries overrides DefaultDecisionTries.
func WithMaxTries(n uint) DecisionOption {
	return func(s *DecisionService) {
		if n > 0 {
			s.maxTries = n
		}
	}
}

func NewDecisionService(store repository.Store, w legacy.Writer, n notification.Notifier, opts ...DecisionOption) *DecisionService {
	s := &DecisionService{
		store:     store,
		legacy:    w,
		notifier:  n,
		authority: NewAuthorityResolver(),
		now:       time.Now,
		maxTries:  DefaultDecisionTries,
		log:       logger.Named("decision"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Approve approves stage seq of po.
func (s *DecisionService) Approve(ctx context.Context, po string, seq int, actor, note string) (*Outcome, error) {
	return s.Decide(ctx, po, seq, domain.DecisionApprove, actor, note)
}

// Deny denies stage seq of po, which finalizes the chain as denied.
func (s *DecisionService) Deny(ctx context.Context, po string, seq int, actor, note string) (*Outcome, error) {
	return s.Decide(ctx, po, seq, domain.DecisionDeny, actor, note)
}

// DecideCurrent applies a UI decision code ("A" or "D") to the first pending
// stage of po.
func (s *DecisionService) DecideCurrent(ctx context.Context, po, code, actor, note string) (*Outcome, error) {
	d, err := domain.ParseDecisionCode(code)
	if err != nil {
		return nil, err
	}
	chain, err := s.store.GetChain(ctx, po)
	if err != nil {
		return nil, err
	}
	if chain.Status != domain.ChainPending {
		return nil, &domain.ChainNotPendingError{PoNumber: po, Current: chain.Status}
	}
	stage, err := s.store.FirstPendingStage(ctx, po)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, fmt.Errorf("current stage of po %s: %w", po, domain.ErrStageNotFound)
	}
	return s.Decide(ctx, po, stage.Sequence, d, actor, note)
}

// Decide records decision d on stage seq of po by actor.
//
// The local transition is serializable and retried on transient failure.
// A finalized chain is then reported to PRMS with one audit row and one
// trigger row. A PRMS failure is returned wrapped in
// domain.ErrLegacyWriteFailed together with the committed outcome.
func (s *DecisionService) Decide(ctx context.Context, po string, seq int, d domain.Decision, actor, note string) (*Outcome, error) {
	if s.store == nil || s.legacy == nil {
		return nil, fmt.Errorf("decision service is not initialized")
	}
	if err := validateDecision(po, seq, d, actor); err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("po_number", po),
		zap.Int("sequence", seq),
		zap.String("decision", d.String()),
	)

	var (
		out    *Outcome
		inputs LegacyAuditInputs
	)
	err := s.store.InTx(ctx, repository.TxOptions{Serializable: true, MaxTries: s.maxTries},
		func(ctx context.Context, q repository.Querier) error {
			o, in, err := s.decideTx(ctx, q, po, seq, d, actor, note)
			if err != nil {
				return err
			}
			out, inputs = o, in
			return nil
		})
	if err != nil {
		metrics.Decisions.WithLabelValues(d.String(), decisionResult(err)).Inc()
		log.Warn("decision rejected", zap.Error(err))
		return nil, err
	}

	if !out.Finalized {
		metrics.Decisions.WithLabelValues(d.String(), "recorded").Inc()
		log.Info("stage decided")
		if out.Next != nil && s.notifier != nil {
			s.notifier.NotifyStageReady(ctx, po, out.Next.Sequence, out.Next.RoleCode)
		}
		return out, nil
	}

	// The local commit is final; PRMS write-back must not depend on the
	// caller staying connected.
	if err := s.writeLegacy(context.WithoutCancel(ctx), out, inputs); err != nil {
		metrics.Decisions.WithLabelValues(d.String(), "legacy_failed").Inc()
		log.Error("chain finalized locally but PRMS write-back failed",
			zap.Bool("alert", true),
			zap.String("chain_status", string(out.ChainStatus)),
			zap.Error(err),
		)
		return out, err
	}
	out.LegacyWritten = true
	metrics.Decisions.WithLabelValues(d.String(), "finalized").Inc()
	log.Info("chain finalized", zap.String("chain_status", string(out.ChainStatus)))
	return out, nil
}

// decideTx is the transactional body. It may run more than once, so it only
// touches q and returns its results instead of mutating shared state.
func (s *DecisionService) decideTx(
	ctx context.Context, q repository.Querier,
	po string, seq int, d domain.Decision, actor, note string,
) (*Outcome, LegacyAuditInputs, error) {
	now := s.now().UTC()
	rec := audit.NewRecorder(q, s.now)

	stageTo, err := d.StageStatus()
	if err != nil {
		return nil, LegacyAuditInputs{}, err
	}

	chain, err := q.LockChain(ctx, po)
	if err != nil {
		return nil, LegacyAuditInputs{}, err
	}
	if chain.Status != domain.ChainPending {
		return nil, LegacyAuditInputs{}, &domain.ChainNotPendingError{PoNumber: po, Current: chain.Status}
	}

	stage, err := q.GetStage(ctx, po, seq)
	if err != nil {
		return nil, LegacyAuditInputs{}, err
	}
	if stage.Status != domain.StagePending {
		return nil, LegacyAuditInputs{}, &domain.StageNotPendingError{PoNumber: po, Sequence: seq, Current: stage.Status}
	}
	current, err := q.FirstPendingStage(ctx, po)
	if err != nil {
		return nil, LegacyAuditInputs{}, err
	}
	if current != nil && current.Sequence != seq {
		return nil, LegacyAuditInputs{}, fmt.Errorf("decide po %s stage %d (current %d): %w",
			po, seq, current.Sequence, domain.ErrStageOutOfOrder)
	}

	affected, err := q.DecideStage(ctx, po, seq, stageTo, actor, now)
	if err != nil {
		return nil, LegacyAuditInputs{}, err
	}
	if affected == 0 {
		return nil, LegacyAuditInputs{}, &domain.StageNotPendingError{PoNumber: po, Sequence: seq, Current: stage.Status}
	}
	if err := rec.StageDecided(ctx, stage, stageTo, actor, note); err != nil {
		return nil, LegacyAuditInputs{}, err
	}

	out := &Outcome{PoNumber: po, Sequence: seq, Decision: d, ChainStatus: domain.ChainPending}

	if d == domain.DecisionApprove {
		pending, err := q.CountPendingStages(ctx, po)
		if err != nil {
			return nil, LegacyAuditInputs{}, err
		}
		if pending > 0 {
			next, err := q.FirstPendingStage(ctx, po)
			if err != nil {
				return nil, LegacyAuditInputs{}, err
			}
			out.Next = next
			return out, LegacyAuditInputs{}, nil
		}
	}

	chainTo, err := d.ChainStatus()
	if err != nil {
		return nil, LegacyAuditInputs{}, err
	}
	if err := finalize(ctx, q, rec, po, d, chainTo, now); err != nil {
		return nil, LegacyAuditInputs{}, err
	}
	inputs, err := s.authority.Resolve(ctx, q, stage, actor)
	if err != nil {
		return nil, LegacyAuditInputs{}, err
	}

	out.ChainStatus = chainTo
	out.Finalized = true
	return out, inputs, nil
}

func finalize(ctx context.Context, q repository.Querier, rec *audit.Recorder, po string, d domain.Decision, to domain.ChainStatus, now time.Time) error {
	affected, err := q.FinalizeChain(ctx, po, to, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		current, err := q.GetChain(ctx, po)
		if err != nil {
			return err
		}
		return &domain.ChainNotPendingError{PoNumber: po, Current: current.Status}
	}

	state, err := d.POState()
	if err != nil {
		return err
	}
	if err := q.SetPOStatus(ctx, po, state); err != nil {
		return err
	}
	return rec.ChainFinalized(ctx, po, to)
}

// writeLegacy reports a finalized chain to PRMS: the audit row first, then
// the trigger. The trigger is not fired when the audit row failed.
func (s *DecisionService) writeLegacy(ctx context.Context, out *Outcome, in LegacyAuditInputs) error {
	when := s.now()
	err := s.legacy.WriteApprovalAudit(ctx, legacy.AuditEntry{
		PoNumber:   out.PoNumber,
		AmountType: in.AmountType,
		Bracket:    in.Bracket,
		Approver:   in.Approver,
		Decision:   out.Decision,
		When:       when,
	})
	if err != nil {
		metrics.LegacyWriteFailures.WithLabelValues("audit").Inc()
		return wrapLegacy(err)
	}
	if err := s.legacy.FireTrigger(ctx, out.PoNumber, when); err != nil {
		metrics.LegacyWriteFailures.WithLabelValues("trigger").Inc()
		return wrapLegacy(err)
	}
	return nil
}

func wrapLegacy(err error) error {
	if errors.Is(err, domain.ErrLegacyWriteFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrLegacyWriteFailed, err)
}

func validateDecision(po string, seq int, d domain.Decision, actor string) error {
	switch {
	case strings.TrimSpace(po) == "":
		return fmt.Errorf("po number is required: %w", domain.ErrInvalidArgument)
	case seq <= 0:
		return fmt.Errorf("stage sequence must be positive: %w", domain.ErrInvalidArgument)
	case !d.Valid():
		return fmt.Errorf("decision %s: %w", d, domain.ErrInvalidArgument)
	case strings.TrimSpace(actor) == "":
		return fmt.Errorf("actor is required: %w", domain.ErrInvalidArgument)
	}
	return nil
}

func decisionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrChainNotFound), errors.Is(err, domain.ErrStageNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrStageOutOfOrder):
		return "conflict"
	case errors.Is(err, domain.ErrTransientTx):
		return "transient"
	}
	if _, ok := domain.AsChainNotPending(err); ok {
		return "conflict"
	}
	if _, ok := domain.AsStageNotPending(err); ok {
		return "conflict"
	}
	return "error"
}
