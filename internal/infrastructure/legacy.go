package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/config"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// OpenLegacyDB opens the PRMS pool. The driver must be registered by the
// binary: "odbc" comes from the odbc build tag, "sqlite" is always linked
// for local runs.
func OpenLegacyDB(ctx context.Context, cfg config.LegacyConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open legacy %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping legacy %s: %w", cfg.Driver, err)
	}

	logger.Info("Legacy connection pool created",
		zap.String("driver", cfg.Driver),
		zap.String("library", cfg.Library),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)
	return db, nil
}
