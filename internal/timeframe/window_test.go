package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLastDays(t *testing.T) {
	w := LastDays(30)

	assert.Equal(t, time.UTC, w.From.Location())
	assert.Equal(t, time.UTC, w.To.Location())
	assert.Equal(t, 30, w.Days())
	assert.True(t, w.From.Before(w.To))
}

func TestLastDaysDefaultsOnNonPositiveInput(t *testing.T) {
	assert.Equal(t, DefaultReportDays, LastDays(0).Days())
	assert.Equal(t, DefaultReportDays, LastDays(-5).Days())
}

func TestWindowContains(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	w := Between(from, to)

	assert.True(t, w.Contains(from))
	assert.True(t, w.Contains(from.Add(12*time.Hour)))
	assert.False(t, w.Contains(to))
	assert.False(t, w.Contains(from.Add(-time.Second)))
}

func TestWindowDaysRoundsUp(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	w := Between(from, from.Add(36*time.Hour))
	assert.Equal(t, 2, w.Days())
}
