package modules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ppockey/po-approvals/internal/config"
	"github.com/ppockey/po-approvals/internal/infrastructure"
	"github.com/ppockey/po-approvals/internal/jobs"
	"github.com/ppockey/po-approvals/internal/legacy"
	"github.com/ppockey/po-approvals/internal/notification"
	"github.com/ppockey/po-approvals/internal/pkg/logger"
	"github.com/ppockey/po-approvals/internal/pkg/worker"
	"github.com/ppockey/po-approvals/internal/repository"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pools       *worker.Pools
	Store       *repository.PgStore
	RiverClient *river.Client[pgx.Tx]

	// LegacyDB is nil when PRMS is disabled.
	LegacyDB     *sql.DB
	LegacyWriter legacy.Writer
	Notifier     notification.Notifier
}

// NewInfrastructure connects Postgres and PRMS and starts the worker pools.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		NotifyPoolSize:  cfg.Worker.NotifyPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	store := repository.NewPgStore(db.Pool)
	infra := &Infrastructure{
		Config: cfg,
		DB:     db,
		Pools:  pools,
		Store:  store,
		Notifier: notification.NewAsyncNotifier(
			notification.NewDirectoryNotifier(store, notification.LogSender{}),
			pools,
		),
	}

	if !cfg.Legacy.Enabled {
		logger.Warn("PRMS integration disabled, legacy writes are logged only")
		infra.LegacyWriter = legacy.NewNullWriter()
		return infra, nil
	}

	legacyDB, err := infrastructure.OpenLegacyDB(ctx, cfg.Legacy)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init legacy: %w", err)
	}
	infra.LegacyDB = legacyDB
	infra.LegacyWriter = legacy.NewSQLWriter(legacyDB, cfg.Legacy.Library)
	logger.Info("PRMS connected",
		zap.String("driver", cfg.Legacy.Driver),
		zap.String("library", cfg.Legacy.Library),
	)
	return infra, nil
}

// LegacyReader builds the claim/extract reader, or nil when PRMS is disabled.
func (i *Infrastructure) LegacyReader() *legacy.Reader {
	if i == nil || i.LegacyDB == nil {
		return nil
	}
	var opts []legacy.ReaderOption
	if cps := i.Config.Legacy.ClaimsPerSecond; cps > 0 {
		opts = append(opts, legacy.WithClaimLimiter(rate.NewLimiter(rate.Limit(cps), 1)))
	}
	return legacy.NewReader(i.LegacyDB, i.LegacyWriter, i.Config.Legacy.Library, opts...)
}

// Schedule returns the periodic jobs for this deployment. The extract job
// is left out when PRMS is disabled.
func (i *Infrastructure) Schedule() []*river.PeriodicJob {
	if i == nil || i.Config == nil {
		return nil
	}
	extractEvery := i.Config.Extract.Interval
	if i.LegacyDB == nil {
		extractEvery = 0
	}
	return jobs.PeriodicJobs(i.Config.Outbox.Interval, extractEvery)
}

// InitRiver initializes the River client on top of a prepared worker
// registry and the pipeline schedule.
func (i *Infrastructure) InitRiver(workers *river.Workers) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, i.Schedule(), i.Config.River, false); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.LegacyDB != nil {
		if err := i.LegacyDB.Close(); err != nil {
			logger.Warn("close legacy db", zap.Error(err))
		}
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
