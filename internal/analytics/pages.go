package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// Significance thresholds: exit rates need enough views to be meaningful,
// time-on-page averages need more than a couple of samples.
const (
	minViewsForExitRate   = 10
	minViewsForTimeOnPage = 5
)

// ExitPageCount is the exit count for one page.
type ExitPageCount struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Exits int64  `json:"exits"`
}

// ExitRate is the per-page exit rate for pages above the view threshold.
type ExitRate struct {
	URL        string  `json:"url"`
	TotalViews int64   `json:"total_views"`
	Exits      int64   `json:"exits"`
	ExitRate   float64 `json:"exit_rate"`
}

// PageTime is the average time on page for one URL.
type PageTime struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	AvgTime float64 `json:"avg_time"`
	Views   int64   `json:"views"`
}

// GetTopExitPages returns the pages most often marked as session exits in
// the window.
func GetTopExitPages(db *gorm.DB, params QueryParams) ([]ExitPageCount, error) {
	var results []ExitPageCount

	query := `
		SELECT page_url AS url, page_title AS title, COUNT(*) AS exits
		FROM page_views
		WHERE timestamp >= ? AND timestamp < ? AND exit_page = 1
		GROUP BY page_url, page_title
		ORDER BY exits DESC
		LIMIT ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To, params.Limit).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching top exit pages: %w", err)
	}

	if results == nil {
		results = []ExitPageCount{}
	}
	return results, nil
}

// GetExitRates returns exit rates per page for pages with at least
// minViewsForExitRate views in the window, highest rate first.
func GetExitRates(db *gorm.DB, params QueryParams) ([]ExitRate, error) {
	var results []ExitRate

	query := `
		SELECT
			page_url AS url,
			COUNT(*) AS total_views,
			COUNT(CASE WHEN exit_page = 1 THEN 1 END) AS exits,
			ROUND(COUNT(CASE WHEN exit_page = 1 THEN 1 END) * 100.0 / COUNT(*), 2) AS exit_rate
		FROM page_views
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY page_url
		HAVING COUNT(*) >= ?
		ORDER BY exit_rate DESC
		LIMIT ?
	`

	err := db.Raw(query,
		params.Window.From,
		params.Window.To,
		minViewsForExitRate,
		params.Limit,
	).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching exit rates: %w", err)
	}

	if results == nil {
		results = []ExitRate{}
	}
	return results, nil
}

// GetAvgTimeOnPage averages reported time on page over the window, in
// seconds. Views that never reported a time are excluded.
func GetAvgTimeOnPage(db *gorm.DB, params QueryParams) (float64, error) {
	var avg float64

	query := `
		SELECT COALESCE(AVG(time_on_page), 0)
		FROM page_views
		WHERE timestamp >= ? AND timestamp < ? AND time_on_page IS NOT NULL
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("error calculating avg time on page: %w", err)
	}

	return round2(avg), nil
}

// GetTimeOnPageByURL returns average time on page per URL for pages with at
// least minViewsForTimeOnPage reporting views, longest first.
func GetTimeOnPageByURL(db *gorm.DB, params QueryParams) ([]PageTime, error) {
	var results []PageTime

	query := `
		SELECT
			page_url AS url,
			page_title AS title,
			ROUND(AVG(time_on_page), 2) AS avg_time,
			COUNT(*) AS views
		FROM page_views
		WHERE timestamp >= ? AND timestamp < ? AND time_on_page IS NOT NULL
		GROUP BY page_url, page_title
		HAVING COUNT(*) >= ?
		ORDER BY avg_time DESC
		LIMIT ?
	`

	err := db.Raw(query,
		params.Window.From,
		params.Window.To,
		minViewsForTimeOnPage,
		params.Limit,
	).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching time on page by url: %w", err)
	}

	if results == nil {
		results = []PageTime{}
	}
	return results, nil
}
