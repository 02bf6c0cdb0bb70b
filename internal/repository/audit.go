package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ppockey/po-approvals/internal/domain"
)

// AppendAudit inserts one audit row and returns its id. Audit rows are never
// updated or deleted; the table rejects both.
func (q *Queries) AppendAudit(ctx context.Context, rec domain.AuditRecord) (int64, error) {
	var seq pgtype.Int4
	if rec.Sequence != nil {
		seq = pgtype.Int4{Int32: int32(*rec.Sequence), Valid: true}
	}
	changedAt := pgtype.Timestamptz{Time: rec.ChangedAt, Valid: !rec.ChangedAt.IsZero()}

	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO po_approval_audit (po_number, old_status, new_status, changed_by, changed_at, note, sequence, role_code, category)
		 VALUES ($1, $2, $3, $4, COALESCE($5, now()), $6, $7, $8, $9)
		 RETURNING audit_id`,
		rec.PoNumber, rec.OldStatus, rec.NewStatus, rec.ChangedBy, changedAt,
		nullText(rec.Note), seq, nullText(rec.RoleCode), nullText(string(rec.Category)),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append audit for po %s: %w", rec.PoNumber, err)
	}
	return id, nil
}

// ListAudit returns the audit trail of a PO in insertion order.
func (q *Queries) ListAudit(ctx context.Context, po string) ([]domain.AuditRecord, error) {
	rows, err := q.db.Query(ctx,
		`SELECT audit_id, po_number, old_status, new_status, changed_by, changed_at, note, sequence, role_code, category
		 FROM po_approval_audit WHERE po_number = $1 ORDER BY audit_id`,
		po,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit %s: %w", po, err)
	}
	defer rows.Close()

	var out []domain.AuditRecord
	for rows.Next() {
		var (
			r                    domain.AuditRecord
			note, role, category pgtype.Text
			seq                  pgtype.Int4
		)
		if err := rows.Scan(&r.ID, &r.PoNumber, &r.OldStatus, &r.NewStatus, &r.ChangedBy, &r.ChangedAt,
			&note, &seq, &role, &category); err != nil {
			return nil, fmt.Errorf("scan audit %s: %w", po, err)
		}
		r.Note = note.String
		r.RoleCode = role.String
		r.Category = domain.ParseCategory(category.String)
		if seq.Valid {
			n := int(seq.Int32)
			r.Sequence = &n
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit %s: %w", po, err)
	}
	return out, nil
}
