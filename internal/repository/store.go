package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/pkg/metrics"
)

// Querier is every statement the use cases run, inside or outside a
// transaction.
type Querier interface {
	// Chains
	ChainExists(ctx context.Context, po string) (bool, error)
	CreateChain(ctx context.Context, po string, createdAt time.Time) (int64, error)
	GetChain(ctx context.Context, po string) (domain.ApprovalChain, error)
	LockChain(ctx context.Context, po string) (domain.ApprovalChain, error)
	FinalizeChain(ctx context.Context, po string, status domain.ChainStatus, at time.Time) (int64, error)

	// Stages
	InsertStages(ctx context.Context, stages []domain.ApprovalStage) error
	GetStage(ctx context.Context, po string, seq int) (domain.ApprovalStage, error)
	ListStages(ctx context.Context, po string) ([]domain.ApprovalStage, error)
	FirstPendingStage(ctx context.Context, po string) (*domain.ApprovalStage, error)
	DecideStage(ctx context.Context, po string, seq int, status domain.StageStatus, actor string, at time.Time) (int64, error)
	CountPendingStages(ctx context.Context, po string) (int, error)

	// Outbox
	ListPendingOutbox(ctx context.Context, eventType domain.EventType, maxAttempts, limit int) ([]int64, error)
	LockOutboxEvent(ctx context.Context, id int64) (*domain.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id int64, at time.Time) (int64, error)
	IncrementOutboxAttempts(ctx context.Context, id int64) (int64, error)
	EnqueueOutbox(ctx context.Context, ev domain.OutboxEvent) (bool, error)

	// Audit
	AppendAudit(ctx context.Context, rec domain.AuditRecord) (int64, error)
	ListAudit(ctx context.Context, po string) ([]domain.AuditRecord, error)

	// PO staging
	UpsertPOHeader(ctx context.Context, h domain.POHeader) error
	ReplacePOLines(ctx context.Context, po string, lines []domain.POLine) error
	SetPOStatus(ctx context.Context, po string, status domain.POState) error
	GetCostCenterKey(ctx context.Context, po string) (string, error)

	// Delegation of authority
	IndirectBracket(ctx context.Context, level string) (decimal.NullDecimal, error)
	DirectBracket(ctx context.Context, level string) (decimal.NullDecimal, error)

	// Approver directory
	ResolveApproverEmail(ctx context.Context, role, costCenter string) (string, bool, error)
}

// TxFunc is the body of a transaction. It must not have side effects
// outside q, since it may run more than once.
type TxFunc func(ctx context.Context, q Querier) error

// TxOptions controls isolation and retry of InTx.
type TxOptions struct {
	Serializable bool
	// MaxTries bounds the attempts on serialization failure or deadlock.
	// Zero or one means a single attempt.
	MaxTries uint
}

// Store is a Querier that can also open transactions.
type Store interface {
	Querier
	InTx(ctx context.Context, opts TxOptions, fn TxFunc) error
	Ping(ctx context.Context) error
}

// PgStore implements Store on a pgx pool.
type PgStore struct {
	*Queries
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		Queries: New(pool),
		pool:    pool,
		log:     logger.Named("repository.store"),
	}
}

// Ping checks the pool can reach the database.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn in one transaction. Transient failures roll back and are
// retried with exponential backoff up to opts.MaxTries; once exhausted the
// error wraps domain.ErrTransientTx. Any other error is returned as is.
func (s *PgStore) InTx(ctx context.Context, opts TxOptions, fn TxFunc) error {
	txOpts := pgx.TxOptions{}
	if opts.Serializable {
		txOpts.IsoLevel = pgx.Serializable
	}

	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			metrics.TxRetries.Inc()
		}
		err := s.runTx(ctx, txOpts, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case IsTransient(err):
			s.log.Warn("transaction aborted by a transient failure",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return struct{}{}, fmt.Errorf("%w: %w", domain.ErrTransientTx, err)
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(newTxBackOff()),
		backoff.WithMaxTries(max(opts.MaxTries, 1)),
	)
	return err
}

func (s *PgStore) runTx(ctx context.Context, txOpts pgx.TxOptions, fn TxFunc) error {
	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, s.Queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func newTxBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}

// SQLSTATEs worth retrying.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// IsTransient reports whether err is a serialization failure or deadlock.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

var (
	_ Querier = (*Queries)(nil)
	_ Store   = (*PgStore)(nil)
)
