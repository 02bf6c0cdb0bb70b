package modules

import (
	"context"

	"github.com/riverqueue/river"

	"github.com/ppockey/po-approvals/internal/api/handlers"
)

// AdminModule wires the operational endpoints: manual outbox and extract
// runs, readiness and pool stats. It needs the River client, so it is built
// after InitRiver.
type AdminModule struct {
	infra *Infrastructure
}

func NewAdminModule(infra *Infrastructure) *AdminModule {
	return &AdminModule{infra: infra}
}

func (m *AdminModule) Name() string { return "admin" }

func (m *AdminModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil || m.infra == nil {
		return
	}
	if m.infra.Pools != nil {
		deps.Pools = m.infra.Pools
		deps.PoolStats = m.infra.Pools
	}
	if m.infra.Store != nil {
		deps.DB = m.infra.Store
	}
	if m.infra.RiverClient != nil {
		deps.Jobs = m.infra.RiverClient
	}
}

func (m *AdminModule) RegisterWorkers(_ *river.Workers) {}

func (m *AdminModule) Shutdown(context.Context) error { return nil }
