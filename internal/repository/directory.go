package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ResolveApproverEmail maps a role to an email, preferring the mapping of
// costCenter over the global one. Inactive rows are ignored.
func (q *Queries) ResolveApproverEmail(ctx context.Context, role, costCenter string) (string, bool, error) {
	var email string
	err := q.db.QueryRow(ctx,
		`SELECT email FROM po_approver_directory
		 WHERE role_code = $1 AND is_active
		   AND (cost_center_key = NULLIF($2, '') OR cost_center_key IS NULL)
		 ORDER BY cost_center_key IS NULL
		 LIMIT 1`,
		role, costCenter,
	).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve approver %s/%s: %w", role, costCenter, err)
	}
	return email, true, nil
}
