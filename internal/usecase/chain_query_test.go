package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppockey/po-approvals/internal/domain"
)

func TestChainQuery_Get(t *testing.T) {
	ctx := context.Background()
	f := newDecisionFixture()
	f.store.seedChain("Q1", "LPM", "GM")
	_, err := f.svc.Approve(ctx, "Q1", 1, "jdoe", "fine")
	require.NoError(t, err)

	view, err := NewChainQuery(f.store).Get(ctx, "Q1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainPending, view.EffectiveStatus())
	require.Len(t, view.Stages, 2)
	require.NotNil(t, view.FirstPending())
	assert.Equal(t, "GM", view.FirstPending().RoleCode)
	require.Len(t, view.Audit, 1)
	assert.Equal(t, "jdoe", view.Audit[0].ChangedBy)

	_, err = NewChainQuery(f.store).Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrChainNotFound)
}
