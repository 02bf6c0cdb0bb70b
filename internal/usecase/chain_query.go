package usecase

import (
	"context"
	"fmt"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/repository"
)

// ChainQuery reads the approval state of a PO for display.
type ChainQuery struct {
	q repository.Querier
}

func NewChainQuery(q repository.Querier) *ChainQuery {
	return &ChainQuery{q: q}
}

// Get returns the chain, its stages and its audit trail.
func (c *ChainQuery) Get(ctx context.Context, po string) (domain.ChainView, error) {
	chain, err := c.q.GetChain(ctx, po)
	if err != nil {
		return domain.ChainView{}, err
	}
	stages, err := c.q.ListStages(ctx, po)
	if err != nil {
		return domain.ChainView{}, fmt.Errorf("load chain view %s: %w", po, err)
	}
	trail, err := c.q.ListAudit(ctx, po)
	if err != nil {
		return domain.ChainView{}, fmt.Errorf("load chain view %s: %w", po, err)
	}
	return domain.ChainView{Chain: chain, Stages: stages, Audit: trail}, nil
}
