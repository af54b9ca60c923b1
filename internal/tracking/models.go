// Package tracking owns the event store: visitors, sessions, page views,
// conversions and social referrals, plus the write operations that maintain
// them.
package tracking

import "time"

// User is one unique visitor. DevicePreferences and ConversionEvents are
// JSON text columns ({"desktop": 3} and ["newsletter_signup", ...]) kept up
// to date with atomic json_set/json_insert updates so concurrent writers
// never lose increments.
type User struct {
	ID                string `gorm:"primaryKey"`
	FirstVisit        time.Time
	LastVisit         time.Time
	TotalSessions     int `gorm:"default:1"`
	TotalPageViews    int `gorm:"default:1"`
	TotalTimeOnSite   float64
	DevicePreferences string
	ConversionEvents  string
}

// Session is one visit. TrafficSource is classified once from the referrer
// at session start and never recomputed. PageViews is maintained with
// incremental counter updates, not recounted from the page_views table.
type Session struct {
	ID              string     `gorm:"primaryKey"`
	UserID          string     `gorm:"index"`
	StartTime       time.Time  `gorm:"index"`
	EndTime         *time.Time
	PageViews       int
	Duration        *float64
	DeviceType      string `gorm:"default:desktop"`
	Browser         string `gorm:"default:unknown"`
	OperatingSystem string `gorm:"default:unknown"`
	TrafficSource   string `gorm:"default:direct"`
	IsNewUser       bool
	Conversions     int
	Bounce          bool
}

// PageView is a single page impression inside a session. TimeOnPage and
// ScrollDepth stay NULL until the client reports them.
type PageView struct {
	ID          string    `gorm:"primaryKey"`
	Timestamp   time.Time `gorm:"index"`
	SessionID   string    `gorm:"index"`
	UserID      string    `gorm:"index"`
	PageURL     string
	PageTitle   string
	Referrer    string
	UserAgent   string
	IPAddress   string
	TimeOnPage  *float64
	ScrollDepth *float64
	ExitPage    bool
}

// Conversion records a goal completion. Value is the optional monetary
// amount; NULL values are excluded from revenue sums.
type Conversion struct {
	ID        string    `gorm:"primaryKey"`
	SessionID string    `gorm:"index"`
	UserID    string    `gorm:"index"`
	Timestamp time.Time `gorm:"index"`
	EventType string
	PageURL   string
	Value     *float64
}

// SocialReferral marks a session that arrived from a social platform. One
// row is written per session when the classified traffic source is social.
type SocialReferral struct {
	SessionID string `gorm:"index"`
	Platform  string `gorm:"index"`
	Campaign  string
	Organic   bool `gorm:"default:true"`
}

// Models returns every tracking model for migration.
func Models() []any {
	return []any{
		&User{},
		&Session{},
		&PageView{},
		&Conversion{},
		&SocialReferral{},
	}
}
