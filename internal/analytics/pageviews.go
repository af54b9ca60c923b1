package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// PageViewCount is one row of the top pages breakdown.
type PageViewCount struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Views int64  `json:"views"`
}

// DailyViews is the page view count for one calendar day. Days without any
// views produce no row.
type DailyViews struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

// GetTotalPageViews counts page views recorded inside the window.
func GetTotalPageViews(db *gorm.DB, params QueryParams) (int64, error) {
	var total int64

	query := `
		SELECT COUNT(*)
		FROM page_views
		WHERE timestamp >= ? AND timestamp < ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error counting page views: %w", err)
	}

	return total, nil
}

// GetTopPages returns the most viewed pages in the window, ordered by view
// count.
func GetTopPages(db *gorm.DB, params QueryParams) ([]PageViewCount, error) {
	var results []PageViewCount

	query := `
		SELECT page_url AS url, page_title AS title, COUNT(*) AS views
		FROM page_views
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY page_url, page_title
		ORDER BY views DESC
		LIMIT ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To, params.Limit).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching top pages: %w", err)
	}

	if results == nil {
		results = []PageViewCount{}
	}
	return results, nil
}

// GetDailyPageViews returns per-day view counts for the window, oldest day
// first.
func GetDailyPageViews(db *gorm.DB, params QueryParams) ([]DailyViews, error) {
	var results []DailyViews

	query := `
		SELECT DATE(timestamp) AS date, COUNT(*) AS views
		FROM page_views
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY DATE(timestamp)
		ORDER BY date
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching daily page views: %w", err)
	}

	if results == nil {
		results = []DailyViews{}
	}
	return results, nil
}
