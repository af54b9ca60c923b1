package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sitepulse/internal/analytics"
	"sitepulse/internal/testsupport"
	"sitepulse/internal/timeframe"
	"sitepulse/internal/tracking"
)

func floatPtr(f float64) *float64 { return &f }

func params30d() analytics.QueryParams {
	return analytics.NewQueryParams(timeframe.LastDays(30))
}

func seedSession(t *testing.T, db *gorm.DB, session tracking.Session) {
	t.Helper()
	require.NoError(t, db.Create(&session).Error)
}

func seedPageView(t *testing.T, db *gorm.DB, view tracking.PageView) {
	t.Helper()
	require.NoError(t, db.Create(&view).Error)
}

func TestReportOnEmptyStore(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	report, err := analytics.GenerateReport(db, logger, 30)
	require.NoError(t, err)

	assert.Equal(t, "Last 30 days", report.ReportPeriod)
	assert.Equal(t, int64(0), report.PageViews.TotalViews)
	assert.Equal(t, int64(0), report.Sessions.TotalSessions)
	assert.Equal(t, 0.0, report.Sessions.BounceRate)
	assert.Equal(t, 0.0, report.Sessions.AvgSessionDuration)
	assert.Equal(t, 0.0, report.Conversions.ConversionRate)
	assert.Equal(t, 0.0, report.Conversions.TotalRevenue)
	assert.Equal(t, 0.0, report.TimeOnPage.AvgTimeOnPage)

	// Breakdown lists must be present and empty, not null.
	require.NotNil(t, report.PageViews.TopPages)
	require.NotNil(t, report.PageViews.DailyViews)
	require.NotNil(t, report.TrafficSources.TrafficSources)
	require.NotNil(t, report.TrafficSources.SocialReferrals)
	require.NotNil(t, report.Devices.DeviceTypes)
	require.NotNil(t, report.Devices.Browsers)
	require.NotNil(t, report.Conversions.ConversionsByType)
	require.NotNil(t, report.ExitPages.TopExitPages)
	require.NotNil(t, report.ExitPages.ExitRates)
	require.NotNil(t, report.TimeOnPage.TimeByPage)
	assert.Empty(t, report.PageViews.TopPages)
	assert.Empty(t, report.TrafficSources.TrafficSources)
}

func TestPageViewMetrics(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedPageView(t, db, tracking.PageView{
			ID: "pv-home-" + string(rune('a'+i)), Timestamp: now.Add(-time.Duration(i) * time.Hour),
			SessionID: "s1", UserID: "u1", PageURL: "/", PageTitle: "Home",
		})
	}
	seedPageView(t, db, tracking.PageView{
		ID: "pv-blog", Timestamp: now.Add(-2 * time.Hour),
		SessionID: "s1", UserID: "u1", PageURL: "/blog", PageTitle: "Blog",
	})
	// Older than the window: must not be counted.
	seedPageView(t, db, tracking.PageView{
		ID: "pv-old", Timestamp: now.AddDate(0, 0, -40),
		SessionID: "s0", UserID: "u1", PageURL: "/", PageTitle: "Home",
	})

	total, err := analytics.GetTotalPageViews(db, params30d())
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	topPages, err := analytics.GetTopPages(db, params30d())
	require.NoError(t, err)
	require.Len(t, topPages, 2)
	assert.Equal(t, "/", topPages[0].URL)
	assert.Equal(t, int64(3), topPages[0].Views)
	assert.Equal(t, "/blog", topPages[1].URL)

	daily, err := analytics.GetDailyPageViews(db, params30d())
	require.NoError(t, err)
	require.NotEmpty(t, daily)
	var sum int64
	for _, d := range daily {
		sum += d.Views
	}
	assert.Equal(t, int64(4), sum)
}

func TestSessionMetrics(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	seedSession(t, db, tracking.Session{
		ID: "s1", UserID: "u1", StartTime: now.Add(-time.Hour),
		PageViews: 3, Duration: floatPtr(10), IsNewUser: true,
	})
	seedSession(t, db, tracking.Session{
		ID: "s2", UserID: "u2", StartTime: now.Add(-2 * time.Hour),
		PageViews: 1, Duration: floatPtr(25), Bounce: false,
	})
	seedSession(t, db, tracking.Session{
		ID: "s3", UserID: "u3", StartTime: now.Add(-3 * time.Hour),
		PageViews: 1, Duration: floatPtr(4), Bounce: true, IsNewUser: true,
	})
	// Still-open session: no duration yet.
	seedSession(t, db, tracking.Session{
		ID: "s4", UserID: "u4", StartTime: now.Add(-10 * time.Minute),
		PageViews: 2,
	})

	metrics, err := analytics.GetSessionMetrics(db, params30d())
	require.NoError(t, err)

	assert.Equal(t, int64(4), metrics.TotalSessions)
	// (10 + 25 + 4) / 3 = 13; the open session has no duration and is
	// excluded from the average.
	assert.Equal(t, 13.0, metrics.AvgSessionDuration)
	// (3 + 1 + 1 + 2) / 4 = 1.75
	assert.Equal(t, 1.75, metrics.AvgPagesPerSession)
	// 1 bounce out of 4 sessions.
	assert.Equal(t, 25.0, metrics.BounceRate)
	assert.Equal(t, int64(2), metrics.NewUsers)
	assert.Equal(t, int64(2), metrics.ReturningUsers)
}

func TestTrafficSourceBreakdownSumsToTotalSessions(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	sources := []string{
		"direct", "direct", "organic_search", "social_twitter",
		"social_facebook", "referral", "email",
	}
	for i, source := range sources {
		seedSession(t, db, tracking.Session{
			ID: "s" + string(rune('a'+i)), UserID: "u1",
			StartTime: now.Add(-time.Duration(i) * time.Hour), TrafficSource: source,
		})
	}

	breakdown, err := analytics.GetTrafficSourceBreakdown(db, params30d())
	require.NoError(t, err)

	total, err := analytics.GetTotalSessions(db, params30d())
	require.NoError(t, err)

	var sum int64
	for _, row := range breakdown {
		sum += row.Sessions
	}
	assert.Equal(t, total, sum)

	// Ordered by session count, direct first with 2.
	require.NotEmpty(t, breakdown)
	assert.Equal(t, "direct", breakdown[0].Source)
	assert.Equal(t, int64(2), breakdown[0].Sessions)
}

func TestSocialReferralBreakdown(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	seedSession(t, db, tracking.Session{ID: "s1", UserID: "u1", StartTime: now.Add(-time.Hour), TrafficSource: "social_twitter"})
	seedSession(t, db, tracking.Session{ID: "s2", UserID: "u2", StartTime: now.Add(-time.Hour), TrafficSource: "social_twitter"})
	seedSession(t, db, tracking.Session{ID: "s3", UserID: "u3", StartTime: now.Add(-time.Hour), TrafficSource: "social_reddit"})
	// A referral whose session started outside the window is ignored.
	seedSession(t, db, tracking.Session{ID: "s-old", UserID: "u4", StartTime: now.AddDate(0, 0, -45), TrafficSource: "social_twitter"})

	for _, row := range []tracking.SocialReferral{
		{SessionID: "s1", Platform: "twitter", Organic: true},
		{SessionID: "s2", Platform: "twitter", Organic: true},
		{SessionID: "s3", Platform: "reddit", Organic: true},
		{SessionID: "s-old", Platform: "twitter", Organic: true},
	} {
		require.NoError(t, db.Create(&row).Error)
	}

	breakdown, err := analytics.GetSocialReferralBreakdown(db, params30d())
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "twitter", breakdown[0].Platform)
	assert.Equal(t, int64(2), breakdown[0].Sessions)
	assert.Equal(t, "reddit", breakdown[1].Platform)
}

func TestConversionMetrics(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		seedSession(t, db, tracking.Session{
			ID: "s" + string(rune('1'+i)), UserID: "u1",
			StartTime: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}

	conversions := []tracking.Conversion{
		{ID: "c1", SessionID: "s1", UserID: "u1", Timestamp: now.Add(-time.Hour), EventType: "newsletter_signup"},
		{ID: "c2", SessionID: "s2", UserID: "u1", Timestamp: now.Add(-time.Hour), EventType: "newsletter_signup", Value: floatPtr(10)},
		{ID: "c3", SessionID: "s3", UserID: "u1", Timestamp: now.Add(-time.Hour), EventType: "download", Value: floatPtr(5.5)},
	}
	for _, c := range conversions {
		require.NoError(t, db.Create(&c).Error)
	}

	metrics, err := analytics.GetConversionMetrics(db, params30d())
	require.NoError(t, err)

	assert.Equal(t, int64(3), metrics.TotalConversions)
	// 3 conversions over 4 sessions.
	assert.Equal(t, 75.0, metrics.ConversionRate)
	// NULL values are ignored, not treated as zero.
	assert.Equal(t, 15.5, metrics.TotalRevenue)

	require.Len(t, metrics.ConversionsByType, 2)
	assert.Equal(t, "newsletter_signup", metrics.ConversionsByType[0].Type)
	assert.Equal(t, int64(2), metrics.ConversionsByType[0].Count)
}

func TestExitRatesRequireMinimumTraffic(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	// /popular has 10 views, 3 of them exits: included at 30%.
	for i := 0; i < 10; i++ {
		seedPageView(t, db, tracking.PageView{
			ID: "pop-" + string(rune('a'+i)), Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SessionID: "s1", UserID: "u1", PageURL: "/popular", PageTitle: "Popular",
			ExitPage: i < 3,
		})
	}
	// /quiet has 9 views, all exits: below the threshold, excluded.
	for i := 0; i < 9; i++ {
		seedPageView(t, db, tracking.PageView{
			ID: "quiet-" + string(rune('a'+i)), Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SessionID: "s2", UserID: "u2", PageURL: "/quiet", PageTitle: "Quiet",
			ExitPage: true,
		})
	}

	rates, err := analytics.GetExitRates(db, params30d())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "/popular", rates[0].URL)
	assert.Equal(t, int64(10), rates[0].TotalViews)
	assert.Equal(t, int64(3), rates[0].Exits)
	assert.Equal(t, 30.0, rates[0].ExitRate)

	topExits, err := analytics.GetTopExitPages(db, params30d())
	require.NoError(t, err)
	// Top exit pages have no view threshold; /quiet leads with 9 exits.
	require.Len(t, topExits, 2)
	assert.Equal(t, "/quiet", topExits[0].URL)
	assert.Equal(t, int64(9), topExits[0].Exits)
}

func TestTimeOnPageMetrics(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	// /article has 5 reporting views averaging 30s: included.
	for i := 0; i < 5; i++ {
		seedPageView(t, db, tracking.PageView{
			ID: "art-" + string(rune('a'+i)), Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SessionID: "s1", UserID: "u1", PageURL: "/article", PageTitle: "Article",
			TimeOnPage: floatPtr(30),
		})
	}
	// /landing has only 4 reporting views: excluded from the per-page list
	// but still part of the overall average.
	for i := 0; i < 4; i++ {
		seedPageView(t, db, tracking.PageView{
			ID: "land-" + string(rune('a'+i)), Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SessionID: "s2", UserID: "u2", PageURL: "/landing", PageTitle: "Landing",
			TimeOnPage: floatPtr(12),
		})
	}
	// A view that never reported time does not drag the average down.
	seedPageView(t, db, tracking.PageView{
		ID: "silent", Timestamp: now.Add(-time.Minute),
		SessionID: "s3", UserID: "u3", PageURL: "/article", PageTitle: "Article",
	})

	avg, err := analytics.GetAvgTimeOnPage(db, params30d())
	require.NoError(t, err)
	// (5*30 + 4*12) / 9 = 22.0
	assert.Equal(t, 22.0, avg)

	byPage, err := analytics.GetTimeOnPageByURL(db, params30d())
	require.NoError(t, err)
	require.Len(t, byPage, 1)
	assert.Equal(t, "/article", byPage[0].URL)
	assert.Equal(t, 30.0, byPage[0].AvgTime)
	assert.Equal(t, int64(5), byPage[0].Views)
}

func TestAvgSessionDurationRounding(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	seedSession(t, db, tracking.Session{ID: "s1", UserID: "u1", StartTime: now.Add(-time.Hour), Duration: floatPtr(10)})
	seedSession(t, db, tracking.Session{ID: "s2", UserID: "u2", StartTime: now.Add(-time.Hour), Duration: floatPtr(10)})
	seedSession(t, db, tracking.Session{ID: "s3", UserID: "u3", StartTime: now.Add(-time.Hour), Duration: floatPtr(10.01)})

	avg, err := analytics.GetAvgSessionDuration(db, params30d())
	require.NoError(t, err)
	// 30.01 / 3 = 10.003333... rounds to 10.0
	assert.Equal(t, 10.0, avg)
}
