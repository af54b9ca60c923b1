package analytics

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"sitepulse/internal/timeframe"
)

// PageViewMetrics groups the page view block of a report.
type PageViewMetrics struct {
	TotalViews int64           `json:"total_views"`
	TopPages   []PageViewCount `json:"top_pages"`
	DailyViews []DailyViews    `json:"daily_views"`
}

// SessionMetrics groups the session block of a report.
type SessionMetrics struct {
	TotalSessions      int64   `json:"total_sessions"`
	AvgSessionDuration float64 `json:"avg_session_duration"`
	AvgPagesPerSession float64 `json:"avg_pages_per_session"`
	BounceRate         float64 `json:"bounce_rate"`
	NewUsers           int64   `json:"new_users"`
	ReturningUsers     int64   `json:"returning_users"`
}

// TrafficSourceMetrics groups the traffic source block of a report.
type TrafficSourceMetrics struct {
	TrafficSources  []SourceSessions   `json:"traffic_sources"`
	SocialReferrals []PlatformSessions `json:"social_referrals"`
}

// DeviceMetrics groups the device block of a report.
type DeviceMetrics struct {
	DeviceTypes []DeviceSessions  `json:"device_types"`
	Browsers    []BrowserSessions `json:"browsers"`
}

// ConversionMetrics groups the conversion block of a report.
type ConversionMetrics struct {
	TotalConversions  int64                 `json:"total_conversions"`
	ConversionRate    float64               `json:"conversion_rate"`
	ConversionsByType []ConversionTypeCount `json:"conversions_by_type"`
	TotalRevenue      float64               `json:"total_revenue"`
}

// ExitPageMetrics groups the exit page block of a report.
type ExitPageMetrics struct {
	TopExitPages []ExitPageCount `json:"top_exit_pages"`
	ExitRates    []ExitRate      `json:"exit_rates"`
}

// TimeOnPageMetrics groups the time-on-page block of a report.
type TimeOnPageMetrics struct {
	AvgTimeOnPage float64    `json:"avg_time_on_page"`
	TimeByPage    []PageTime `json:"time_by_page"`
}

// Report is the full engagement report for one trailing window. All blocks
// are computed against the same window. An empty window yields zero values
// and empty lists, never an error.
type Report struct {
	ReportPeriod   string               `json:"report_period"`
	GeneratedAt    time.Time            `json:"generated_at"`
	PageViews      PageViewMetrics      `json:"page_views"`
	Sessions       SessionMetrics       `json:"sessions"`
	TrafficSources TrafficSourceMetrics `json:"traffic_sources"`
	Devices        DeviceMetrics        `json:"devices"`
	Conversions    ConversionMetrics    `json:"conversions"`
	ExitPages      ExitPageMetrics      `json:"exit_pages"`
	TimeOnPage     TimeOnPageMetrics    `json:"time_on_page"`
}

// GetPageViewMetrics computes the page view block for a window.
func GetPageViewMetrics(db *gorm.DB, params QueryParams) (PageViewMetrics, error) {
	totalViews, err := GetTotalPageViews(db, params)
	if err != nil {
		return PageViewMetrics{}, err
	}
	topPages, err := GetTopPages(db, params)
	if err != nil {
		return PageViewMetrics{}, err
	}
	dailyViews, err := GetDailyPageViews(db, params)
	if err != nil {
		return PageViewMetrics{}, err
	}

	return PageViewMetrics{
		TotalViews: totalViews,
		TopPages:   topPages,
		DailyViews: dailyViews,
	}, nil
}

// GetSessionMetrics computes the session block for a window.
func GetSessionMetrics(db *gorm.DB, params QueryParams) (SessionMetrics, error) {
	totalSessions, err := GetTotalSessions(db, params)
	if err != nil {
		return SessionMetrics{}, err
	}
	avgDuration, err := GetAvgSessionDuration(db, params)
	if err != nil {
		return SessionMetrics{}, err
	}
	avgPages, err := GetAvgPagesPerSession(db, params)
	if err != nil {
		return SessionMetrics{}, err
	}
	bounceRate, err := GetBounceRate(db, params)
	if err != nil {
		return SessionMetrics{}, err
	}
	split, err := GetUserSplit(db, params)
	if err != nil {
		return SessionMetrics{}, err
	}

	return SessionMetrics{
		TotalSessions:      totalSessions,
		AvgSessionDuration: avgDuration,
		AvgPagesPerSession: avgPages,
		BounceRate:         bounceRate,
		NewUsers:           split.NewUsers,
		ReturningUsers:     split.ReturningUsers,
	}, nil
}

// GetTrafficSourceMetrics computes the traffic source block for a window.
func GetTrafficSourceMetrics(db *gorm.DB, params QueryParams) (TrafficSourceMetrics, error) {
	sources, err := GetTrafficSourceBreakdown(db, params)
	if err != nil {
		return TrafficSourceMetrics{}, err
	}
	social, err := GetSocialReferralBreakdown(db, params)
	if err != nil {
		return TrafficSourceMetrics{}, err
	}

	return TrafficSourceMetrics{
		TrafficSources:  sources,
		SocialReferrals: social,
	}, nil
}

// GetDeviceMetrics computes the device block for a window.
func GetDeviceMetrics(db *gorm.DB, params QueryParams) (DeviceMetrics, error) {
	devices, err := GetDeviceBreakdown(db, params)
	if err != nil {
		return DeviceMetrics{}, err
	}
	browsers, err := GetBrowserBreakdown(db, params)
	if err != nil {
		return DeviceMetrics{}, err
	}

	return DeviceMetrics{
		DeviceTypes: devices,
		Browsers:    browsers,
	}, nil
}

// GetConversionMetrics computes the conversion block for a window.
func GetConversionMetrics(db *gorm.DB, params QueryParams) (ConversionMetrics, error) {
	total, err := GetTotalConversions(db, params)
	if err != nil {
		return ConversionMetrics{}, err
	}
	rate, err := GetConversionRate(db, params)
	if err != nil {
		return ConversionMetrics{}, err
	}
	byType, err := GetConversionsByType(db, params)
	if err != nil {
		return ConversionMetrics{}, err
	}
	revenue, err := GetTotalRevenue(db, params)
	if err != nil {
		return ConversionMetrics{}, err
	}

	return ConversionMetrics{
		TotalConversions:  total,
		ConversionRate:    rate,
		ConversionsByType: byType,
		TotalRevenue:      revenue,
	}, nil
}

// GetExitPageMetrics computes the exit page block for a window.
func GetExitPageMetrics(db *gorm.DB, params QueryParams) (ExitPageMetrics, error) {
	topExits, err := GetTopExitPages(db, params)
	if err != nil {
		return ExitPageMetrics{}, err
	}
	rates, err := GetExitRates(db, params)
	if err != nil {
		return ExitPageMetrics{}, err
	}

	return ExitPageMetrics{
		TopExitPages: topExits,
		ExitRates:    rates,
	}, nil
}

// GetTimeOnPageMetrics computes the time-on-page block for a window.
func GetTimeOnPageMetrics(db *gorm.DB, params QueryParams) (TimeOnPageMetrics, error) {
	avg, err := GetAvgTimeOnPage(db, params)
	if err != nil {
		return TimeOnPageMetrics{}, err
	}
	byPage, err := GetTimeOnPageByURL(db, params)
	if err != nil {
		return TimeOnPageMetrics{}, err
	}

	return TimeOnPageMetrics{
		AvgTimeOnPage: avg,
		TimeByPage:    byPage,
	}, nil
}

// GenerateReport builds the comprehensive report for the trailing number of
// days. Store failures propagate; an empty store does not.
func GenerateReport(db *gorm.DB, logger *slog.Logger, days int) (*Report, error) {
	if days <= 0 {
		days = timeframe.DefaultReportDays
	}
	params := NewQueryParams(timeframe.LastDays(days))

	pageViews, err := GetPageViewMetrics(db, params)
	if err != nil {
		logger.Error("Failed to compute page view metrics", slog.Any("error", err))
		return nil, err
	}
	sessions, err := GetSessionMetrics(db, params)
	if err != nil {
		logger.Error("Failed to compute session metrics", slog.Any("error", err))
		return nil, err
	}
	trafficSources, err := GetTrafficSourceMetrics(db, params)
	if err != nil {
		logger.Error("Failed to compute traffic source metrics", slog.Any("error", err))
		return nil, err
	}
	devices, err := GetDeviceMetrics(db, params)
	if err != nil {
		logger.Error("Failed to compute device metrics", slog.Any("error", err))
		return nil, err
	}
	conversions, err := GetConversionMetrics(db, params)
	if err != nil {
		logger.Error("Failed to compute conversion metrics", slog.Any("error", err))
		return nil, err
	}
	exitPages, err := GetExitPageMetrics(db, params)
	if err != nil {
		logger.Error("Failed to compute exit page metrics", slog.Any("error", err))
		return nil, err
	}
	timeOnPage, err := GetTimeOnPageMetrics(db, params)
	if err != nil {
		logger.Error("Failed to compute time on page metrics", slog.Any("error", err))
		return nil, err
	}

	return &Report{
		ReportPeriod:   fmt.Sprintf("Last %d days", days),
		GeneratedAt:    time.Now().UTC(),
		PageViews:      pageViews,
		Sessions:       sessions,
		TrafficSources: trafficSources,
		Devices:        devices,
		Conversions:    conversions,
		ExitPages:      exitPages,
		TimeOnPage:     timeOnPage,
	}, nil
}
