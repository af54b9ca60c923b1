package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// DeviceSessions is the session count for one device type.
type DeviceSessions struct {
	Device   string `json:"device"`
	Sessions int64  `json:"sessions"`
}

// BrowserSessions is the session count for one browser.
type BrowserSessions struct {
	Browser  string `json:"browser"`
	Sessions int64  `json:"sessions"`
}

// GetDeviceBreakdown groups the window's sessions by device type.
func GetDeviceBreakdown(db *gorm.DB, params QueryParams) ([]DeviceSessions, error) {
	var results []DeviceSessions

	query := `
		SELECT device_type AS device, COUNT(*) AS sessions
		FROM sessions
		WHERE start_time >= ? AND start_time < ?
		GROUP BY device_type
		ORDER BY sessions DESC
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching device breakdown: %w", err)
	}

	if results == nil {
		results = []DeviceSessions{}
	}
	return results, nil
}

// GetBrowserBreakdown groups the window's sessions by browser, capped at the
// limit.
func GetBrowserBreakdown(db *gorm.DB, params QueryParams) ([]BrowserSessions, error) {
	var results []BrowserSessions

	query := `
		SELECT browser AS browser, COUNT(*) AS sessions
		FROM sessions
		WHERE start_time >= ? AND start_time < ?
		GROUP BY browser
		ORDER BY sessions DESC
		LIMIT ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To, params.Limit).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching browser breakdown: %w", err)
	}

	if results == nil {
		results = []BrowserSessions{}
	}
	return results, nil
}
