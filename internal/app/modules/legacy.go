package modules

import (
	"context"

	"github.com/riverqueue/river"

	"github.com/ppockey/po-approvals/internal/api/handlers"
	"github.com/ppockey/po-approvals/internal/jobs"
	"github.com/ppockey/po-approvals/internal/usecase"
)

// LegacyModule wires the PRMS extract pass. It registers nothing when PRMS
// is disabled.
type LegacyModule struct {
	ingestor *usecase.LegacyIngestor
}

func NewLegacyModule(infra *Infrastructure) *LegacyModule {
	reader := infra.LegacyReader()
	if reader == nil {
		return &LegacyModule{}
	}
	return &LegacyModule{ingestor: usecase.NewLegacyIngestor(reader, infra.Store)}
}

func (m *LegacyModule) Name() string { return "legacy" }

func (m *LegacyModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.LegacyEnabled = m.ingestor != nil
}

func (m *LegacyModule) RegisterWorkers(workers *river.Workers) {
	if m.ingestor == nil {
		return
	}
	jobs.Register(workers, nil, m.ingestor)
}

func (m *LegacyModule) Shutdown(context.Context) error { return nil }
