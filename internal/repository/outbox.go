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

// ListPendingOutbox returns the ids of unprocessed events of eventType, oldest
// first. Events that reached maxAttempts are left for manual handling; a
// non-positive maxAttempts disables the cut-off.
func (q *Queries) ListPendingOutbox(ctx context.Context, eventType domain.EventType, maxAttempts, limit int) ([]int64, error) {
	rows, err := q.db.Query(ctx,
		`SELECT outbox_id FROM po_approval_outbox
		 WHERE event_type = $1 AND processed_at IS NULL AND ($2 <= 0 OR attempts < $2)
		 ORDER BY occurred_at, outbox_id
		 LIMIT $3`,
		string(eventType), maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox %s: %w", eventType, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list pending outbox %s: %w", eventType, err)
	}
	return ids, nil
}

// LockOutboxEvent locks one unprocessed event, skipping rows held by another
// transaction. It returns nil when the event is locked elsewhere or already
// processed.
func (q *Queries) LockOutboxEvent(ctx context.Context, id int64) (*domain.OutboxEvent, error) {
	var (
		ev          domain.OutboxEvent
		eventType   string
		processedAt pgtype.Timestamptz
	)
	err := q.db.QueryRow(ctx,
		`SELECT outbox_id, event_type, po_number, occurred_at, payload_json, direct_amount, indirect_amount, attempts, processed_at
		 FROM po_approval_outbox
		 WHERE outbox_id = $1 AND processed_at IS NULL
		 FOR UPDATE SKIP LOCKED`,
		id,
	).Scan(&ev.ID, &eventType, &ev.PoNumber, &ev.OccurredAt, &ev.PayloadJSON,
		&ev.DirectAmount, &ev.IndirectAmount, &ev.Attempts, &processedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock outbox event %d: %w", id, err)
	}
	ev.EventType = domain.EventType(eventType)
	if processedAt.Valid {
		t := processedAt.Time
		ev.ProcessedAt = &t
	}
	return &ev, nil
}

func (q *Queries) MarkOutboxProcessed(ctx context.Context, id int64, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE po_approval_outbox SET processed_at = $2 WHERE outbox_id = $1 AND processed_at IS NULL`,
		id, at,
	)
	if err != nil {
		return 0, fmt.Errorf("mark outbox event %d processed: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) IncrementOutboxAttempts(ctx context.Context, id int64) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE po_approval_outbox SET attempts = attempts + 1 WHERE outbox_id = $1 AND processed_at IS NULL`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("increment outbox attempts %d: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

// EnqueueOutbox inserts an event unless an unprocessed one of the same type
// already exists for the PO. It reports whether a row was inserted.
func (q *Queries) EnqueueOutbox(ctx context.Context, ev domain.OutboxEvent) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO po_approval_outbox (event_type, po_number, occurred_at, payload_json, direct_amount, indirect_amount)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (event_type, po_number) WHERE processed_at IS NULL DO NOTHING`,
		string(ev.EventType), ev.PoNumber, ev.OccurredAt, ev.PayloadJSON, ev.DirectAmount, ev.IndirectAmount,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue outbox %s for po %s: %w", ev.EventType, ev.PoNumber, err)
	}
	return tag.RowsAffected() == 1, nil
}
