package modules

import (
	"github.com/ppockey/po-approvals/internal/api/handlers"
)

// NewServerDeps lets each module contribute its part of the server deps.
func NewServerDeps(mods []Module) handlers.ServerDeps {
	var deps handlers.ServerDeps
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		mod.ContributeServerDeps(&deps)
	}
	return deps
}
