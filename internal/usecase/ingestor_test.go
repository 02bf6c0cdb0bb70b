package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppockey/po-approvals/internal/domain"
	"github.com/ppockey/po-approvals/internal/legacy"
)

func claimedRecord(po string, direct int64, lines int) legacy.Record {
	rec := legacy.Record{Header: domain.POHeader{
		PoNumber:     po,
		VendorNumber: "V42",
		DirectAmount: decimal.NewNullDecimal(decimal.NewFromInt(direct)),
	}}
	for i := 1; i <= lines; i++ {
		rec.Lines = append(rec.Lines, domain.POLine{PoNumber: po, LineNumber: i})
	}
	return rec
}

func TestLegacyIngestor_RunPass(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	src := sliceSource{records: []legacy.Record{
		claimedRecord("I1", 60000, 2),
		claimedRecord("I2", 150000, 1),
	}}

	res, err := NewLegacyIngestor(src, store).WithClock(fixedClock).RunPass(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Claimed)
	assert.Equal(t, 2, res.Enqueued)
	assert.Equal(t, 0, res.Failed)

	assert.Equal(t, domain.POWaiting, store.st.poStatus["I1"])
	assert.Len(t, store.st.lines["I1"], 2)
	assert.Equal(t, fixedNow, store.st.headers["I1"].CreatedAt)

	require.Len(t, store.st.outbox, 2)
	ev := store.st.outbox[0]
	assert.Equal(t, domain.EventPONewWaiting, ev.EventType)
	assert.Equal(t, "I1", ev.PoNumber)
	assert.True(t, ev.DirectAmount.Decimal.Equal(decimal.NewFromInt(60000)))
	assert.False(t, ev.IndirectAmount.Valid)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.PayloadJSON, &payload))
	assert.Equal(t, "I1", payload["po_number"])
	assert.EqualValues(t, 2, payload["line_count"])
}

func TestLegacyIngestor_PendingEventNotDuplicated(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	src := sliceSource{records: []legacy.Record{claimedRecord("D1", 60000, 1)}}
	ing := NewLegacyIngestor(src, store).WithClock(fixedClock)

	_, err := ing.RunPass(ctx)
	require.NoError(t, err)
	res, err := ing.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Claimed)
	assert.Equal(t, 0, res.Enqueued)
	assert.Len(t, store.st.outbox, 1)
}

func TestLegacyIngestor_StagingFailureContinues(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.faults["EnqueueOutbox"] = errors.New("unique violation")
	src := sliceSource{records: []legacy.Record{claimedRecord("E1", 60000, 1), claimedRecord("E2", 60000, 1)}}

	res, err := NewLegacyIngestor(src, store).RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Claimed)
	assert.Equal(t, 2, res.Failed)
	assert.Empty(t, store.st.headers, "header upsert rolled back with the enqueue")
}

func TestLegacyIngestor_SourceErrorStopsPass(t *testing.T) {
	store := newMemStore()
	src := sliceSource{
		records: []legacy.Record{claimedRecord("S1", 60000, 1)},
		err:     context.Canceled,
	}

	res, err := NewLegacyIngestor(src, store).RunPass(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Claimed)
	assert.Equal(t, 1, res.Enqueued)
}
