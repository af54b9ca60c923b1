// Package analytics computes read-only engagement metrics over the event
// store. Every query is scoped to a single time window so the numbers in a
// report agree with each other.
package analytics

import (
	"math"

	"sitepulse/internal/timeframe"
)

// DefaultLimit caps top-N breakdowns (top pages, exit pages, browsers, ...).
const DefaultLimit = 10

// QueryParams carries the shared parameters for windowed queries.
type QueryParams struct {
	Window timeframe.Window
	Limit  int
}

// NewQueryParams creates query params for a window with the default limit.
func NewQueryParams(window timeframe.Window) QueryParams {
	return QueryParams{
		Window: window,
		Limit:  DefaultLimit,
	}
}

// round2 rounds to two decimal places, matching how rates and averages are
// reported.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
