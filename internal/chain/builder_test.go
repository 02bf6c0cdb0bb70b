package chain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppockey/po-approvals/internal/domain"
)

func amt(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestBuild(t *testing.T) {
	t.Parallel()

	none := decimal.NullDecimal{}
	tests := []struct {
		name     string
		direct   decimal.NullDecimal
		indirect decimal.NullDecimal
		want     []string
	}{
		{"indirect 1500", none, amt("1500"), []string{"LPM", "GM", "SFC"}},
		{"indirect at lower bound", none, amt("2000"), []string{"LPM", "GM", "SFC"}},
		{"indirect 5000", none, amt("5000"), []string{"LPM", "GM", "SFC", "VP"}},
		{"direct 120000", amt("120000"), none, []string{"LPM", "SFC", "GM"}},
		{"direct 100000 is mid bracket", amt("100000"), none, []string{"LPM"}},
		{"direct 75000", amt("75000"), none, []string{"LPM"}},
		{"direct 60000", amt("60000"), none, []string{"LPM"}},
		{"direct 50000 below bracket", amt("50000"), none, []string{}},
		{"direct and indirect", amt("120000"), amt("5000"), []string{"LPM", "GM", "SFC", "VP"}},
		{"direct mid with small indirect", amt("75000"), amt("100"), []string{"LPM", "GM", "SFC"}},
		{"no amounts", none, none, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Build("4711", tt.direct, tt.indirect)
			assert.Equal(t, tt.want, RoleCodes(got))
			for i, r := range got {
				assert.Equal(t, i+1, r.Sequence, "sequences are dense and 1-based")
			}
		})
	}
}

func TestBuild_CategoryOfFirstContributor(t *testing.T) {
	t.Parallel()

	got := Build("4711", amt("120000"), amt("5000"))
	require.Len(t, got, 4)

	for _, r := range got {
		assert.Equal(t, domain.CategoryIndirect, r.Category, "role %s", r.RoleCode)
	}
	vp := got[3]
	assert.Equal(t, "VP", vp.RoleCode)
	require.True(t, vp.ThresholdFrom.Valid)
	assert.True(t, vp.ThresholdFrom.Decimal.Equal(decimal.NewFromInt(2000)))
	assert.False(t, vp.ThresholdTo.Valid)
}

func TestBuild_DirectThresholds(t *testing.T) {
	t.Parallel()

	got := Build("4711", amt("75000"), decimal.NullDecimal{})
	require.Len(t, got, 1)

	lpm := got[0]
	assert.Equal(t, domain.CategoryDirect, lpm.Category)
	assert.True(t, lpm.ThresholdFrom.Decimal.Equal(decimal.NewFromInt(50000)))
	assert.True(t, lpm.ThresholdTo.Decimal.Equal(decimal.NewFromInt(100000)))
}
