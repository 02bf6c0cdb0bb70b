package legacy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// NullWriter is used when PRMS write-back is disabled. It never claims.
type NullWriter struct {
	log *zap.Logger
}

// NewNullWriter returns a writer that only logs.
func NewNullWriter() *NullWriter {
	return &NullWriter{log: logger.Named("legacy.null_writer")}
}

func (w *NullWriter) TryClaim(_ context.Context, po string, _ time.Time) (bool, error) {
	w.log.Info("claim skipped (noop)", zap.String("po_number", po))
	return false, nil
}

func (w *NullWriter) WriteApprovalAudit(_ context.Context, e AuditEntry) error {
	w.log.Info("approval audit skipped (noop)",
		zap.String("po_number", e.PoNumber),
		zap.String("type", string(e.AmountType)),
		zap.String("bracket", e.Bracket.String()),
		zap.String("approver", e.Approver),
		zap.Stringer("decision", e.Decision),
	)
	return nil
}

func (w *NullWriter) FireTrigger(_ context.Context, po string, _ time.Time) error {
	w.log.Info("trigger skipped (noop)", zap.String("po_number", po))
	return nil
}

var _ Writer = (*NullWriter)(nil)
