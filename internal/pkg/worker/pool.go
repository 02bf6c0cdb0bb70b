// Package worker provides bounded goroutine pools.
//
// Background work started from a request (post-commit notifications,
// admin-triggered outbox batches) goes through these pools instead of bare
// goroutines so it is bounded and drained on shutdown.
//
// Import Path: github.com/ppockey/po-approvals/internal/pkg/worker
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/ppockey/po-approvals/internal/pkg/logger"
)

// Pool names accepted by Pools.SubmitDetached.
const (
	PoolGeneral = "general"
	PoolNotify  = "notify"
)

// ErrPoolClosed is returned when submitting to a released pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware unit of work.
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission.
type Pool struct {
	pool *ants.Pool
	name string
}

// Pools is the process-wide pool set.
type Pools struct {
	// General runs admin-triggered batches and legacy passes.
	General *Pool
	// Notify runs fire-and-forget approver notifications.
	Notify *Pool

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig sizes the pools.
type PoolConfig struct {
	GeneralPoolSize int
	NotifyPoolSize  int
}

// DefaultPoolConfig returns default sizes.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		GeneralPoolSize: 8,
		NotifyPoolSize:  32,
	}
}

// NewPools creates the pool set. ctx bounds the lifetime of detached tasks.
func NewPools(ctx context.Context, cfg PoolConfig) (*Pools, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p any) {
		logger.Error("worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	general, err := newPool(PoolGeneral, cfg.GeneralPoolSize, 30*time.Second, panicHandler)
	if err != nil {
		serviceCancel()
		return nil, err
	}
	notify, err := newPool(PoolNotify, cfg.NotifyPoolSize, 10*time.Second, panicHandler)
	if err != nil {
		general.pool.Release()
		serviceCancel()
		return nil, err
	}

	return &Pools{
		General:       general,
		Notify:        notify,
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

func newPool(name string, size int, expiry time.Duration, onPanic func(any)) (*Pool, error) {
	p, err := ants.NewPool(size,
		ants.WithPanicHandler(onPanic),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(expiry),
	)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, name: name}, nil
}

// Submit runs task on the pool with the caller's context. A context that is
// already done is rejected without queuing; one cancelled while queued skips
// the task.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.pool.Submit(func() {
		if ctx.Err() != nil {
			logger.Debug("task skipped: context cancelled",
				zap.String("pool", p.name),
				zap.Error(ctx.Err()),
			)
			return
		}
		task(ctx)
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// SubmitDetached runs task with the service lifecycle context rather than a
// request context, so it survives the request but stops on shutdown.
// Unknown pool names fall back to the general pool.
func (p *Pools) SubmitDetached(poolName string, task Task) error {
	pool := p.General
	if poolName == PoolNotify {
		pool = p.Notify
	}
	return pool.Submit(p.serviceCtx, task)
}

// Shutdown cancels detached work and waits up to 30s for running tasks.
func (p *Pools) Shutdown() {
	p.serviceCancel()

	const shutdownTimeout = 30 * time.Second
	for _, pool := range []*Pool{p.General, p.Notify} {
		if err := pool.pool.ReleaseTimeout(shutdownTimeout); err != nil {
			logger.Warn("worker pool shutdown timeout",
				zap.String("pool", pool.name),
				zap.Error(err),
			)
		}
	}
}

// Metrics returns pool occupancy for the readiness endpoint.
func (p *Pools) Metrics() map[string]map[string]int {
	out := make(map[string]map[string]int, 2)
	for _, pool := range []*Pool{p.General, p.Notify} {
		out[pool.name] = map[string]int{
			"running": pool.pool.Running(),
			"free":    pool.pool.Free(),
			"cap":     pool.pool.Cap(),
		}
	}
	return out
}
