// Package audit builds and writes the approval audit trail.
//
// Audit rows are append-only compliance records. Nothing here updates or
// deletes them.
//
// Import Path: github.com/ppockey/po-approvals/internal/governance/audit
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// SystemActor is recorded for transitions no human made.
const SystemActor = "system"

// statusNone is the old status of a chain that did not exist yet.
const statusNone = " "

// Notes written on chain-level transitions.
const (
	NoteInitialized       = "Chain initialized"
	NoteFinalizedApproved = "Chain finalized (approved)"
	NoteFinalizedDenied   = "Chain finalized (denied)"
)

// Appender persists one audit row.
type Appender interface {
	AppendAudit(ctx context.Context, rec domain.AuditRecord) (int64, error)
}

// Recorder writes audit rows through an Appender, typically the querier of
// the transaction that performs the transition.
type Recorder struct {
	store Appender
	now   func() time.Time
}

// NewRecorder creates a Recorder. A nil now uses time.Now.
func NewRecorder(store Appender, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: store, now: now}
}

// ChainInitialized records ' ' -> 'P' for a new chain.
func (r *Recorder) ChainInitialized(ctx context.Context, po string) error {
	return r.append(ctx, domain.AuditRecord{
		PoNumber:  po,
		OldStatus: statusNone,
		NewStatus: string(domain.ChainPending),
		ChangedBy: SystemActor,
		Note:      NoteInitialized,
	})
}

// StageDecided records a stage leaving 'P'.
func (r *Recorder) StageDecided(ctx context.Context, stage domain.ApprovalStage, to domain.StageStatus, actor, note string) error {
	seq := stage.Sequence
	return r.append(ctx, domain.AuditRecord{
		PoNumber:  stage.PoNumber,
		OldStatus: string(domain.StagePending),
		NewStatus: string(to),
		ChangedBy: actor,
		Note:      note,
		Sequence:  &seq,
		RoleCode:  stage.RoleCode,
		Category:  stage.Category,
	})
}

// ChainFinalized records 'P' -> 'A' or 'P' -> 'D' for a chain.
func (r *Recorder) ChainFinalized(ctx context.Context, po string, to domain.ChainStatus) error {
	note := NoteFinalizedApproved
	if to == domain.ChainDenied {
		note = NoteFinalizedDenied
	}
	return r.append(ctx, domain.AuditRecord{
		PoNumber:  po,
		OldStatus: string(domain.ChainPending),
		NewStatus: string(to),
		ChangedBy: SystemActor,
		Note:      note,
	})
}

func (r *Recorder) append(ctx context.Context, rec domain.AuditRecord) error {
	rec.ChangedAt = r.now().UTC()
	if _, err := r.store.AppendAudit(ctx, rec); err != nil {
		logger.Error("Failed to write audit record",
			zap.String("po_number", rec.PoNumber),
			zap.String("old_status", rec.OldStatus),
			zap.String("new_status", rec.NewStatus),
			zap.Error(err),
		)
		return fmt.Errorf("write audit record po %s: %w", rec.PoNumber, err)
	}
	return nil
}
