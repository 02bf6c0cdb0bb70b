// Package infrastructure provides database and connection pool setup.
//
// One pgxpool serves the repositories and River, so a job insert can share a
// transaction with local writes. PRMS is reached through a separate
// database/sql pool.
//
// Import Path: github.com/ppockey/po-approvals/internal/infrastructure
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/config"
	"github.com/ppockey/po-approvals/internal/jobs"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/repository"
)

// DatabaseClients contains the local database clients. All share one pool.
type DatabaseClients struct {
	// Pool is the shared connection pool (repositories + River).
	Pool *pgxpool.Pool

	// RiverClient is the River job queue client backed by the shared pool.
	RiverClient *river.Client[pgx.Tx]
}

// NewDatabaseClients creates the shared pool and verifies it.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	// Timestamps are stored and compared in UTC.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)
	return &DatabaseClients{Pool: pool}, nil
}

// Migrate applies the schema migrations and the River queue tables.
func (c *DatabaseClients) Migrate(ctx context.Context) error {
	logger.Info("Running schema migrations...")
	if err := repository.Migrate(ctx, c.Pool); err != nil {
		return err
	}
	logger.Info("Schema migrations completed")

	logger.Info("Running River migration...")
	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed",
			zap.Int("versions_applied", len(res.Versions)),
		)
	} else {
		logger.Info("River migration: already up-to-date")
	}
	return nil
}

// InitRiverClient creates a River client with registered workers and the
// pipeline's periodic jobs. insertOnly builds a client that can enqueue but
// never works jobs, as the CLI needs.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, periodic []*river.PeriodicJob, cfg config.RiverConfig, insertOnly bool) error {
	riverCfg := &river.Config{
		CompletedJobRetentionPeriod: cfg.CompletedJobRetentionPeriod,
		// Jobs run until done; passes stop themselves between units of work.
		JobTimeout: -1,
	}
	if !insertOnly {
		riverCfg.Queues = map[string]river.QueueConfig{
			river.QueueDefault:    {MaxWorkers: 1},
			jobs.QueuePOApprovals: {MaxWorkers: cfg.MaxWorkers},
		}
		riverCfg.Workers = workers
		riverCfg.PeriodicJobs = periodic
	}

	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), riverCfg)
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("River client initialized",
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Int("periodic_jobs", len(periodic)),
		zap.Bool("insert_only", insertOnly),
	)
	return nil
}

// Close closes the pool.
func (c *DatabaseClients) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
