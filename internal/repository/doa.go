package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// IndirectBracket returns the indirect delegation amount of level; invalid
// when the level has no row.
func (q *Queries) IndirectBracket(ctx context.Context, level string) (decimal.NullDecimal, error) {
	return q.bracket(ctx, "po_doa_indirect", level)
}

// DirectBracket returns the direct delegation amount of level; invalid when
// the level has no row.
func (q *Queries) DirectBracket(ctx context.Context, level string) (decimal.NullDecimal, error) {
	return q.bracket(ctx, "po_doa_direct", level)
}

func (q *Queries) bracket(ctx context.Context, table, level string) (decimal.NullDecimal, error) {
	var amount decimal.NullDecimal
	err := q.db.QueryRow(ctx, `SELECT amount FROM `+table+` WHERE level = $1`, level).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("read %s level %s: %w", table, level, err)
	}
	return amount, nil
}
