package modules

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/ppockey/po-approvals/internal/api/handlers"
	"github.com/ppockey/po-approvals/internal/jobs"
	"github.com/ppockey/po-approvals/internal/usecase"
)

// ApprovalModule wires chain creation from the outbox and the decision
// service.
type ApprovalModule struct {
	decisions *usecase.DecisionService
	chains    *usecase.ChainQuery
	outbox    *usecase.OutboxProcessor
}

// NewApprovalModule requires the store, the legacy writer and the notifier.
func NewApprovalModule(infra *Infrastructure) (*ApprovalModule, error) {
	if infra == nil || infra.Config == nil || infra.Store == nil || infra.LegacyWriter == nil || infra.Notifier == nil {
		return nil, fmt.Errorf("approval module requires config, store, legacy writer and notifier")
	}
	cfg := infra.Config
	return &ApprovalModule{
		decisions: usecase.NewDecisionService(infra.Store, infra.LegacyWriter, infra.Notifier,
			usecase.WithMaxTries(cfg.Decision.MaxRetries),
		),
		chains: usecase.NewChainQuery(infra.Store),
		outbox: usecase.NewOutboxProcessor(infra.Store, infra.Notifier, usecase.OutboxConfig{
			BatchSize:   cfg.Outbox.BatchSize,
			MaxAttempts: cfg.Outbox.MaxAttempts,
		}),
	}, nil
}

func (m *ApprovalModule) Name() string { return "approval" }

func (m *ApprovalModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Decisions = m.decisions
	deps.Chains = m.chains
	deps.Outbox = m.outbox
}

func (m *ApprovalModule) RegisterWorkers(workers *river.Workers) {
	jobs.Register(workers, m.outbox, nil)
}

func (m *ApprovalModule) Shutdown(context.Context) error { return nil }
