package usecase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppockey/po-approvals/internal/domain"
)

func TestAuthorityResolver_Resolve(t *testing.T) {
	d := decimal.NewFromInt

	tests := []struct {
		name        string
		category    domain.Category
		indirect    *decimal.Decimal
		direct      *decimal.Decimal
		wantType    domain.Category
		wantBracket decimal.Decimal
	}{
		{name: "indirect row", category: domain.CategoryIndirect, indirect: ptr(d(2000)), direct: ptr(d(9000)), wantType: domain.CategoryIndirect, wantBracket: d(2000)},
		{name: "indirect missing", category: domain.CategoryIndirect, direct: ptr(d(9000)), wantType: domain.CategoryIndirect, wantBracket: decimal.Zero},
		{name: "direct row", category: domain.CategoryDirect, indirect: ptr(d(2000)), direct: ptr(d(9000)), wantType: domain.CategoryDirect, wantBracket: d(9000)},
		{name: "direct missing", category: domain.CategoryDirect, indirect: ptr(d(2000)), wantType: domain.CategoryDirect, wantBracket: decimal.Zero},
		{name: "unspecified direct larger", indirect: ptr(d(2000)), direct: ptr(d(9000)), wantType: domain.CategoryDirect, wantBracket: d(9000)},
		{name: "unspecified equal prefers direct", indirect: ptr(d(5000)), direct: ptr(d(5000)), wantType: domain.CategoryDirect, wantBracket: d(5000)},
		{name: "unspecified indirect larger", indirect: ptr(d(9000)), direct: ptr(d(2000)), wantType: domain.CategoryIndirect, wantBracket: d(9000)},
		{name: "unspecified only indirect", indirect: ptr(d(2000)), wantType: domain.CategoryIndirect, wantBracket: d(2000)},
		{name: "unspecified only direct", direct: ptr(d(2000)), wantType: domain.CategoryDirect, wantBracket: d(2000)},
		{name: "unspecified neither", wantType: domain.CategoryDirect, wantBracket: decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newMemStore()
			if tt.indirect != nil {
				store.st.indirect["GM"] = *tt.indirect
			}
			if tt.direct != nil {
				store.st.direct["GM"] = *tt.direct
			}
			stage := domain.ApprovalStage{PoNumber: "1", Sequence: 2, RoleCode: "GM", Category: tt.category}

			got, err := NewAuthorityResolver().Resolve(context.Background(), store, stage, "mary.major@example.com")
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got.AmountType)
			assert.True(t, tt.wantBracket.Equal(got.Bracket), "bracket %s, want %s", got.Bracket, tt.wantBracket)
			assert.Equal(t, "MARYMAJOR", got.Approver)
		})
	}
}

func ptr[T any](v T) *T { return &v }
