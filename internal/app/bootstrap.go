// Package app is the composition root. Bootstrap only orchestrates modules.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"github.com/ppockey/po-approvals/internal/api/handlers"
	"github.com/ppockey/po-approvals/internal/app/modules"
	"github.com/ppockey/po-approvals/internal/config"
	"github.com/ppockey/po-approvals/internal/infrastructure"
	"github.com/ppockey/po-approvals/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Pools   *worker.Pools
	Modules []modules.Module
	infra   *modules.Infrastructure
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	base, err := coreModules(infra)
	if err != nil {
		infra.Close()
		return nil, err
	}

	workers := river.NewWorkers()
	for _, mod := range base {
		mod.RegisterWorkers(workers)
	}
	if err := infra.InitRiver(workers); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}

	return assemble(cfg, infra, base), nil
}

// coreModules builds the modules that own River workers, in registration
// order.
func coreModules(infra *modules.Infrastructure) ([]modules.Module, error) {
	approvalModule, err := modules.NewApprovalModule(infra)
	if err != nil {
		return nil, fmt.Errorf("init approval module: %w", err)
	}
	return []modules.Module{
		approvalModule,
		modules.NewLegacyModule(infra),
	}, nil
}

func assemble(cfg *config.Config, infra *modules.Infrastructure, base []modules.Module) *Application {
	allModules := append(base, modules.NewAdminModule(infra))
	server := handlers.NewServer(modules.NewServerDeps(allModules))

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server),
		DB:      infra.DB,
		Pools:   infra.Pools,
		Modules: allModules,
		infra:   infra,
	}
}
