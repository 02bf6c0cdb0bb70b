package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ppockey/po-approvals/internal/domain"
)

const stageColumns = `po_number, sequence, role_code, approver_identity, category, threshold_from, threshold_to, status, decided_at`

func scanStage(row pgx.Row) (domain.ApprovalStage, error) {
	var (
		s         domain.ApprovalStage
		approver  pgtype.Text
		category  pgtype.Text
		status    string
		decidedAt pgtype.Timestamptz
	)
	if err := row.Scan(&s.PoNumber, &s.Sequence, &s.RoleCode, &approver, &category,
		&s.ThresholdFrom, &s.ThresholdTo, &status, &decidedAt); err != nil {
		return domain.ApprovalStage{}, err
	}
	s.ApproverIdentity = approver.String
	s.Category = domain.ParseCategory(category.String)
	s.Status = domain.StageStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		s.DecidedAt = &t
	}
	return s, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// InsertStages writes all stages in one batch.
func (q *Queries) InsertStages(ctx context.Context, stages []domain.ApprovalStage) error {
	if len(stages) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stages {
		batch.Queue(
			`INSERT INTO po_approval_stage (po_number, sequence, role_code, approver_identity, category, threshold_from, threshold_to, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.PoNumber, s.Sequence, s.RoleCode, nullText(s.ApproverIdentity), nullText(string(s.Category)),
			s.ThresholdFrom, s.ThresholdTo, string(s.Status),
		)
	}

	br := q.db.SendBatch(ctx, batch)
	for _, s := range stages {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert stage %s/%d: %w", s.PoNumber, s.Sequence, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert stages %s: %w", stages[0].PoNumber, err)
	}
	return nil
}

func (q *Queries) GetStage(ctx context.Context, po string, seq int) (domain.ApprovalStage, error) {
	s, err := scanStage(q.db.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM po_approval_stage WHERE po_number = $1 AND sequence = $2`, po, seq))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ApprovalStage{}, fmt.Errorf("get stage %s/%d: %w", po, seq, domain.ErrStageNotFound)
	}
	if err != nil {
		return domain.ApprovalStage{}, fmt.Errorf("get stage %s/%d: %w", po, seq, err)
	}
	return s, nil
}

func (q *Queries) ListStages(ctx context.Context, po string) ([]domain.ApprovalStage, error) {
	rows, err := q.db.Query(ctx, `SELECT `+stageColumns+` FROM po_approval_stage WHERE po_number = $1 ORDER BY sequence`, po)
	if err != nil {
		return nil, fmt.Errorf("list stages %s: %w", po, err)
	}
	defer rows.Close()

	var out []domain.ApprovalStage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage %s: %w", po, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stages %s: %w", po, err)
	}
	return out, nil
}

// FirstPendingStage returns the pending stage with the lowest sequence, or
// nil when none are pending.
func (q *Queries) FirstPendingStage(ctx context.Context, po string) (*domain.ApprovalStage, error) {
	s, err := scanStage(q.db.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM po_approval_stage WHERE po_number = $1 AND status = 'P' ORDER BY sequence LIMIT 1`, po))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("first pending stage %s: %w", po, err)
	}
	return &s, nil
}

// DecideStage moves a pending stage to status and records who decided it.
// Zero rows means it was already decided.
func (q *Queries) DecideStage(ctx context.Context, po string, seq int, status domain.StageStatus, actor string, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE po_approval_stage SET status = $3, approver_identity = $4, decided_at = $5
		 WHERE po_number = $1 AND sequence = $2 AND status = 'P'`,
		po, seq, string(status), nullText(actor), at,
	)
	if err != nil {
		return 0, fmt.Errorf("decide stage %s/%d: %w", po, seq, err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) CountPendingStages(ctx context.Context, po string) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM po_approval_stage WHERE po_number = $1 AND status = 'P'`, po).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending stages %s: %w", po, err)
	}
	return n, nil
}
