package legacy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDateTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       time.Time
		wantDate int
		wantTime int
	}{
		{"utc", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), 260304, 50607},
		{"end of year", time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), 251231, 235959},
		{"converted to utc", time.Date(2026, 1, 1, 1, 30, 0, 0, time.FixedZone("CET", 3600)), 260101, 3000},
		{"year 2000", time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC), 102, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantDate, EncodeDate(tt.in))
			assert.Equal(t, tt.wantTime, EncodeTime(tt.in))
		})
	}
}

func TestDecodeYMD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		yy, mm, dd int
		want       time.Time
		ok         bool
	}{
		{"pivot low", 26, 3, 15, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"pivot 69", 69, 1, 1, time.Date(2069, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"pivot 70", 70, 1, 1, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"month clamped high", 24, 13, 5, time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC), true},
		{"month and day clamped low", 24, 0, 0, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"day clamped high", 24, 1, 40, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), true},
		{"nonexistent day", 23, 2, 30, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := DecodeYMD(tt.yy, tt.mm, tt.dd)
			require.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestApproverID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"jdoe@example.com", "JDOE"},
		{"", SystemApprover},
		{"   ", SystemApprover},
		{"@example.com", SystemApprover},
		{"so-gbl-ppockey", "SOGBLPPOCK"},
		{"averyveryverylongname@corp.com", "AVERYVERYV"},
		{"j.o'neil_2@corp", "JONEIL2"},
		{"Zoë@corp", "ZO"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := ApproverID(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 10)
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
	assert.Equal(t, "", truncate("abc", 0))
	assert.Equal(t, strings.Repeat("x", 20), truncate(strings.Repeat("x", 25), 20))
}
