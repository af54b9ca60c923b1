package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// UserSplit is the new versus returning session split for a window.
type UserSplit struct {
	NewUsers       int64 `json:"new_users"`
	ReturningUsers int64 `json:"returning_users"`
}

// GetTotalSessions counts sessions started inside the window.
func GetTotalSessions(db *gorm.DB, params QueryParams) (int64, error) {
	var total int64

	query := `
		SELECT COUNT(*)
		FROM sessions
		WHERE start_time >= ? AND start_time < ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error counting sessions: %w", err)
	}

	return total, nil
}

// GetAvgSessionDuration averages the duration of ended sessions in the
// window, in seconds. Sessions without a recorded duration are excluded.
// Returns 0 when no session qualifies.
func GetAvgSessionDuration(db *gorm.DB, params QueryParams) (float64, error) {
	var avg float64

	query := `
		SELECT COALESCE(AVG(duration), 0)
		FROM sessions
		WHERE start_time >= ? AND start_time < ? AND duration IS NOT NULL
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("error calculating avg session duration: %w", err)
	}

	return round2(avg), nil
}

// GetAvgPagesPerSession averages the page view counter over all sessions in
// the window. Returns 0 when there are no sessions.
func GetAvgPagesPerSession(db *gorm.DB, params QueryParams) (float64, error) {
	var avg float64

	query := `
		SELECT COALESCE(AVG(page_views), 0)
		FROM sessions
		WHERE start_time >= ? AND start_time < ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("error calculating avg pages per session: %w", err)
	}

	return round2(avg), nil
}

// GetBounceRate returns the share of bounced sessions in the window as a
// percentage between 0 and 100. Returns 0 when there are no sessions.
func GetBounceRate(db *gorm.DB, params QueryParams) (float64, error) {
	var result struct {
		Bounces int64
		Total   int64
	}

	query := `
		SELECT
			COUNT(CASE WHEN bounce = 1 THEN 1 END) AS bounces,
			COUNT(*) AS total
		FROM sessions
		WHERE start_time >= ? AND start_time < ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&result).Error
	if err != nil {
		return 0, fmt.Errorf("error calculating bounce rate: %w", err)
	}

	if result.Total == 0 {
		return 0, nil
	}
	return round2(float64(result.Bounces) / float64(result.Total) * 100), nil
}

// GetUserSplit counts sessions from new and returning users in the window.
func GetUserSplit(db *gorm.DB, params QueryParams) (UserSplit, error) {
	var result UserSplit

	query := `
		SELECT
			COUNT(CASE WHEN is_new_user = 1 THEN 1 END) AS new_users,
			COUNT(CASE WHEN is_new_user = 0 THEN 1 END) AS returning_users
		FROM sessions
		WHERE start_time >= ? AND start_time < ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&result).Error
	if err != nil {
		return UserSplit{}, fmt.Errorf("error calculating user split: %w", err)
	}

	return result, nil
}
