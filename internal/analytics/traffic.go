package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// SourceSessions is the session count for one traffic source.
type SourceSessions struct {
	Source   string `json:"source"`
	Sessions int64  `json:"sessions"`
}

// PlatformSessions is the session count for one social platform.
type PlatformSessions struct {
	Platform string `json:"platform"`
	Sessions int64  `json:"sessions"`
}

// GetTrafficSourceBreakdown groups the window's sessions by traffic source.
// Every session carries exactly one source, so the breakdown always sums to
// the total session count for the same window.
func GetTrafficSourceBreakdown(db *gorm.DB, params QueryParams) ([]SourceSessions, error) {
	var results []SourceSessions

	query := `
		SELECT traffic_source AS source, COUNT(*) AS sessions
		FROM sessions
		WHERE start_time >= ? AND start_time < ?
		GROUP BY traffic_source
		ORDER BY sessions DESC
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching traffic sources: %w", err)
	}

	if results == nil {
		results = []SourceSessions{}
	}
	return results, nil
}

// GetSocialReferralBreakdown groups social referrals by platform, joined
// through sessions so the window applies to the session start time.
func GetSocialReferralBreakdown(db *gorm.DB, params QueryParams) ([]PlatformSessions, error) {
	var results []PlatformSessions

	query := `
		SELECT sr.platform AS platform, COUNT(*) AS sessions
		FROM social_referrals sr
		JOIN sessions s ON sr.session_id = s.id
		WHERE s.start_time >= ? AND s.start_time < ?
		GROUP BY sr.platform
		ORDER BY sessions DESC
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching social referrals: %w", err)
	}

	if results == nil {
		results = []PlatformSessions{}
	}
	return results, nil
}
