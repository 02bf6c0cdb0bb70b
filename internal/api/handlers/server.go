// Package handlers exposes the approval workflow over HTTP.
//
// Handlers translate requests into usecase calls and domain errors into
// AppErrors; the ErrorHandler middleware renders them.
//
// Import Path: github.com/ppockey/po-approvals/internal/api/handlers
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/jobs"
	"github.com/ppockey/po-approvals/internal/pkg/worker"
	"github.com/ppockey/po-approvals/internal/usecase"
)

// Decider applies approval decisions. *usecase.DecisionService implements it.
type Decider interface {
	Decide(ctx context.Context, po string, seq int, d domain.Decision, actor, note string) (*usecase.Outcome, error)
	DecideCurrent(ctx context.Context, po, code, actor, note string) (*usecase.Outcome, error)
}

// ChainReader loads the read model of one chain.
type ChainReader interface {
	Get(ctx context.Context, po string) (domain.ChainView, error)
}

// Submitter is the part of worker.Pools used by the admin handlers.
type Submitter interface {
	SubmitDetached(poolName string, task worker.Task) error
}

// JobInserter is the part of the River client used to enqueue jobs.
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// PoolStats reports worker pool occupancy. *worker.Pools implements it.
type PoolStats interface {
	Metrics() map[string]map[string]int
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	decisions Decider
	chains    ChainReader
	outbox    jobs.BatchRunner
	pools     Submitter
	jobs      JobInserter
	db        Pinger
	stats     PoolStats
	legacyOn  bool
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Decisions     Decider
	Chains        ChainReader
	Outbox        jobs.BatchRunner
	Pools         Submitter
	Jobs          JobInserter
	DB            Pinger
	PoolStats     PoolStats
	LegacyEnabled bool
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		decisions: deps.Decisions,
		chains:    deps.Chains,
		outbox:    deps.Outbox,
		pools:     deps.Pools,
		jobs:      deps.Jobs,
		db:        deps.DB,
		stats:     deps.PoolStats,
		legacyOn:  deps.LegacyEnabled,
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)

	po := r.Group("/api/po/:po")
	po.POST("/stages/:seq/approve", s.ApproveStage)
	po.POST("/stages/:seq/deny", s.DenyStage)
	po.POST("/decisions/:code", s.DecideCurrent)
	po.GET("/chain", s.GetChain)

	admin := r.Group("/api/po-approvals/admin")
	admin.POST("/process-outbox", s.ProcessOutbox)
	admin.POST("/extract-legacy", s.ExtractLegacy)
}
