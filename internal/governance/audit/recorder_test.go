package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppockey/po-approvals/internal/domain"
)

type memAppender struct {
	recs []domain.AuditRecord
	err  error
}

func (m *memAppender) AppendAudit(_ context.Context, rec domain.AuditRecord) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.recs = append(m.recs, rec)
	return int64(len(m.recs)), nil
}

var fixed = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestRecorder(t *testing.T) {
	t.Parallel()

	store := &memAppender{}
	r := NewRecorder(store, func() time.Time { return fixed })
	ctx := context.Background()

	require.NoError(t, r.ChainInitialized(ctx, "100"))
	stage := domain.ApprovalStage{PoNumber: "100", Sequence: 2, RoleCode: "GM", Category: domain.CategoryIndirect}
	require.NoError(t, r.StageDecided(ctx, stage, domain.StageDenied, "jdoe@corp.com", "over budget"))
	require.NoError(t, r.ChainFinalized(ctx, "100", domain.ChainDenied))
	require.NoError(t, r.ChainFinalized(ctx, "101", domain.ChainApproved))

	require.Len(t, store.recs, 4)

	init := store.recs[0]
	assert.Equal(t, " ", init.OldStatus)
	assert.Equal(t, "P", init.NewStatus)
	assert.Equal(t, SystemActor, init.ChangedBy)
	assert.Equal(t, NoteInitialized, init.Note)
	assert.Nil(t, init.Sequence)
	assert.True(t, fixed.Equal(init.ChangedAt))

	decided := store.recs[1]
	assert.Equal(t, "P", decided.OldStatus)
	assert.Equal(t, "D", decided.NewStatus)
	assert.Equal(t, "jdoe@corp.com", decided.ChangedBy)
	assert.Equal(t, "over budget", decided.Note)
	require.NotNil(t, decided.Sequence)
	assert.Equal(t, 2, *decided.Sequence)
	assert.Equal(t, "GM", decided.RoleCode)
	assert.Equal(t, domain.CategoryIndirect, decided.Category)

	assert.Equal(t, NoteFinalizedDenied, store.recs[2].Note)
	assert.Equal(t, "D", store.recs[2].NewStatus)
	assert.Equal(t, NoteFinalizedApproved, store.recs[3].Note)
	assert.Equal(t, "A", store.recs[3].NewStatus)
}

func TestRecorder_PropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := NewRecorder(&memAppender{err: boom}, nil)

	err := r.ChainInitialized(context.Background(), "100")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "po 100")
}
