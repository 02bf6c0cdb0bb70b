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

const chainColumns = `po_number, status, created_at, finalized_at`

func scanChain(row pgx.Row) (domain.ApprovalChain, error) {
	var (
		c           domain.ApprovalChain
		status      string
		finalizedAt pgtype.Timestamptz
	)
	if err := row.Scan(&c.PoNumber, &status, &c.CreatedAt, &finalizedAt); err != nil {
		return domain.ApprovalChain{}, err
	}
	c.Status = domain.ChainStatus(status)
	if finalizedAt.Valid {
		t := finalizedAt.Time
		c.FinalizedAt = &t
	}
	return c, nil
}

func (q *Queries) ChainExists(ctx context.Context, po string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM po_approval_chain WHERE po_number = $1)`, po).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check chain %s: %w", po, err)
	}
	return exists, nil
}

// CreateChain inserts a pending chain and returns the rows created, zero when
// the PO already has one.
func (q *Queries) CreateChain(ctx context.Context, po string, createdAt time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO po_approval_chain (po_number, status, created_at) VALUES ($1, 'P', $2)
		 ON CONFLICT (po_number) DO NOTHING`,
		po, createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("create chain %s: %w", po, err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) GetChain(ctx context.Context, po string) (domain.ApprovalChain, error) {
	c, err := scanChain(q.db.QueryRow(ctx, `SELECT `+chainColumns+` FROM po_approval_chain WHERE po_number = $1`, po))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ApprovalChain{}, fmt.Errorf("get chain %s: %w", po, domain.ErrChainNotFound)
	}
	if err != nil {
		return domain.ApprovalChain{}, fmt.Errorf("get chain %s: %w", po, err)
	}
	return c, nil
}

// LockChain reads the chain row FOR UPDATE.
func (q *Queries) LockChain(ctx context.Context, po string) (domain.ApprovalChain, error) {
	c, err := scanChain(q.db.QueryRow(ctx, `SELECT `+chainColumns+` FROM po_approval_chain WHERE po_number = $1 FOR UPDATE`, po))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ApprovalChain{}, fmt.Errorf("lock chain %s: %w", po, domain.ErrChainNotFound)
	}
	if err != nil {
		return domain.ApprovalChain{}, fmt.Errorf("lock chain %s: %w", po, err)
	}
	return c, nil
}

// FinalizeChain moves a pending chain to status. Zero rows means it was not
// pending any more.
func (q *Queries) FinalizeChain(ctx context.Context, po string, status domain.ChainStatus, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE po_approval_chain SET status = $2, finalized_at = $3 WHERE po_number = $1 AND status = 'P'`,
		po, string(status), at,
	)
	if err != nil {
		return 0, fmt.Errorf("finalize chain %s: %w", po, err)
	}
	return tag.RowsAffected(), nil
}
