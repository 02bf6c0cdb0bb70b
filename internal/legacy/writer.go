package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// DefaultLibrary is the PRMS schema prefix in production.
const DefaultLibrary = "CORP400D.GPIMI701"

// Writer is the set of PRMS side effects. Implementations never take part
// in a local transaction.
type Writer interface {
	// TryClaim stamps P3XDTE/P3XTIM on a waiting, unclaimed PO. It reports
	// false when another worker already owns it.
	TryClaim(ctx context.Context, po string, when time.Time) (bool, error)
	// WriteApprovalAudit inserts one INPVP500 row.
	WriteApprovalAudit(ctx context.Context, entry AuditEntry) error
	// FireTrigger inserts one INPTP500 row, which starts PRMS-side processing.
	FireTrigger(ctx context.Context, po string, when time.Time) error
}

// AuditEntry is the decisive event written to the PRMS audit workfile.
type AuditEntry struct {
	PoNumber   string
	AmountType domain.Category
	Bracket    decimal.Decimal
	Approver   string
	Decision   domain.Decision
	When       time.Time
}

// Tables qualifies PRMS table names with the configured library.
type Tables struct {
	Library string
}

// Name returns the qualified name of table.
func (t Tables) Name(table string) string {
	lib := strings.TrimSpace(t.Library)
	if lib == "" {
		return table
	}
	return lib + "." + table
}

// SQLWriter implements Writer over a database/sql pool.
type SQLWriter struct {
	db     *sql.DB
	tables Tables
	log    *zap.Logger
}

// NewSQLWriter creates a writer over db using the given library prefix.
func NewSQLWriter(db *sql.DB, library string) *SQLWriter {
	return &SQLWriter{
		db:     db,
		tables: Tables{Library: library},
		log:    logger.Named("legacy.writer"),
	}
}

// TryClaim implements Writer.
func (w *SQLWriter) TryClaim(ctx context.Context, po string, when time.Time) (bool, error) {
	d, t := EncodeDate(when), EncodeTime(when)
	query := fmt.Sprintf(`UPDATE %s SET P3XDTE = ?, P3XTIM = ? WHERE P3PURCH = ? AND P3STAT = '%s' AND P3XDTE = 0 AND P3XTIM = 0`,
		w.tables.Name("INPUP500"), domain.LegacyStatusWaiting)

	res, err := w.db.ExecContext(ctx, query, d, t, po)
	if err != nil {
		return false, fmt.Errorf("claim po %s: %w: %w", po, domain.ErrLegacyWriteFailed, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim po %s: rows affected: %w: %w", po, domain.ErrLegacyWriteFailed, err)
	}

	claimed := rows > 0
	w.log.Info("PRMS claim",
		zap.String("po_number", po),
		zap.Bool("claimed", claimed),
		zap.Int("yymmdd", d),
		zap.Int("hhmmss", t),
	)
	return claimed, nil
}

// WriteApprovalAudit implements Writer. PO and approver are cut to the
// column widths; the bracket is rounded to four decimals.
func (w *SQLWriter) WriteApprovalAudit(ctx context.Context, e AuditEntry) error {
	p5, err := e.Decision.AuditWorkfileStatus()
	if err != nil {
		return fmt.Errorf("write approval audit po %s: %w", e.PoNumber, err)
	}

	po := truncate(strings.TrimSpace(e.PoNumber), maxAuditPO)
	apr := truncate(strings.ToUpper(strings.TrimSpace(e.Approver)), maxAuditApprover)
	brk := e.Bracket.Round(bracketScale).StringFixed(bracketScale)
	typ := string(e.AmountType)
	if typ == "" {
		typ = string(domain.CategoryDirect)
	}
	d, t := EncodeDate(e.When), EncodeTime(e.When)

	query := fmt.Sprintf(`INSERT INTO %s (P5PURCH, P5TYPE, P5BRK, P5APRV, P5ADTE, P5ATIM, P5STAT) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.tables.Name("INPVP500"))
	if err := w.execOne(ctx, "INPVP500", po, query, po, typ, brk, apr, d, t, p5); err != nil {
		return err
	}

	w.log.Info("PRMS approval audit written",
		zap.String("po_number", po),
		zap.String("type", typ),
		zap.String("bracket", brk),
		zap.String("approver", apr),
		zap.String("p5stat", p5),
	)
	return nil
}

// FireTrigger implements Writer.
func (w *SQLWriter) FireTrigger(ctx context.Context, po string, when time.Time) error {
	po = truncate(strings.TrimSpace(po), maxTriggerPO)
	d, t := EncodeDate(when), EncodeTime(when)

	query := fmt.Sprintf(`INSERT INTO %s (P6PURCH, P6CDTE, P6CTIM) VALUES (?, ?, ?)`, w.tables.Name("INPTP500"))
	if err := w.execOne(ctx, "INPTP500", po, query, po, d, t); err != nil {
		return err
	}

	w.log.Info("PRMS trigger fired", zap.String("po_number", po), zap.Int("yymmdd", d), zap.Int("hhmmss", t))
	return nil
}

// execOne runs an insert that must affect exactly one row.
func (w *SQLWriter) execOne(ctx context.Context, table, po, query string, args ...any) error {
	res, err := w.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert %s po %s: %w: %w", table, po, domain.ErrLegacyWriteFailed, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert %s po %s: rows affected: %w: %w", table, po, domain.ErrLegacyWriteFailed, err)
	}
	if rows != 1 {
		return fmt.Errorf("insert %s po %s: %w (rows=%d)", table, po, domain.ErrLegacyWriteFailed, rows)
	}
	return nil
}

var _ Writer = (*SQLWriter)(nil)
