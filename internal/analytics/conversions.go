package analytics

import (
	"fmt"

	"gorm.io/gorm"
)

// ConversionTypeCount is the conversion count for one event type.
type ConversionTypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// GetTotalConversions counts conversions recorded inside the window.
func GetTotalConversions(db *gorm.DB, params QueryParams) (int64, error) {
	var total int64

	query := `
		SELECT COUNT(*)
		FROM conversions
		WHERE timestamp >= ? AND timestamp < ?
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error counting conversions: %w", err)
	}

	return total, nil
}

// GetConversionRate is conversions per session in the window as a
// percentage. Returns 0 when there are no sessions. The rate can exceed 100
// when sessions convert more than once.
func GetConversionRate(db *gorm.DB, params QueryParams) (float64, error) {
	totalConversions, err := GetTotalConversions(db, params)
	if err != nil {
		return 0, err
	}

	totalSessions, err := GetTotalSessions(db, params)
	if err != nil {
		return 0, err
	}

	if totalSessions == 0 {
		return 0, nil
	}
	return round2(float64(totalConversions) / float64(totalSessions) * 100), nil
}

// GetConversionsByType groups the window's conversions by event type.
func GetConversionsByType(db *gorm.DB, params QueryParams) ([]ConversionTypeCount, error) {
	var results []ConversionTypeCount

	query := `
		SELECT event_type AS type, COUNT(*) AS count
		FROM conversions
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY event_type
		ORDER BY count DESC
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching conversions by type: %w", err)
	}

	if results == nil {
		results = []ConversionTypeCount{}
	}
	return results, nil
}

// GetTotalRevenue sums conversion values in the window. Conversions without
// a value are ignored rather than counted as zero.
func GetTotalRevenue(db *gorm.DB, params QueryParams) (float64, error) {
	var total float64

	query := `
		SELECT COALESCE(SUM(value), 0)
		FROM conversions
		WHERE timestamp >= ? AND timestamp < ? AND value IS NOT NULL
	`

	err := db.Raw(query, params.Window.From, params.Window.To).Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error calculating total revenue: %w", err)
	}

	return total, nil
}
