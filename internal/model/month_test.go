package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	want := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2025-03", "2025-03-17", "2025-03-31T23:00:00Z"} {
		got, err := ParseMonth(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseMonth("march")
	assert.Error(t, err)
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2024, time.December, 12, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestBillingPeriodState(t *testing.T) {
	var p BillingPeriod
	assert.Equal(t, PeriodOpen, p.State())
	now := time.Now()
	p.FrozenAt = &now
	assert.Equal(t, PeriodFrozen, p.State())
	assert.False(t, p.IsStale())
}
