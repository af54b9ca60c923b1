// Package timeframe provides the trailing time window used by all
// aggregate queries.
package timeframe

import "time"

// DefaultReportDays is the window applied when a caller does not ask for a
// specific number of days.
const DefaultReportDays = 30

// Window is a half-open time range [From, To) in UTC. Every aggregate query
// is scoped to exactly one window so all metrics in a report agree on the
// period they cover.
type Window struct {
	From time.Time
	To   time.Time
}

// LastDays returns a window covering the trailing number of days ending now.
// Non-positive values fall back to DefaultReportDays.
func LastDays(days int) Window {
	if days <= 0 {
		days = DefaultReportDays
	}
	now := time.Now().UTC()
	return Window{
		From: now.AddDate(0, 0, -days),
		To:   now,
	}
}

// Between returns a window covering [from, to) in UTC.
func Between(from, to time.Time) Window {
	return Window{From: from.UTC(), To: to.UTC()}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(w.From) && u.Before(w.To)
}

// Days returns the window length in whole days, rounding up.
func (w Window) Days() int {
	d := w.To.Sub(w.From)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
