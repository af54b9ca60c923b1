package tracking

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sitepulse/internal/pkg/useragent"
	"sitepulse/internal/traffic"
)

// A session counts as a bounce when it ends with a single page view after
// less than bounceMaxSeconds.
const (
	bouncePageViews  = 1
	bounceMaxSeconds = 10.0
)

// StartSessionInput describes a new visit. Device, Browser and
// OperatingSystem may be left empty when UserAgent is set; they are then
// filled by parsing the user agent.
type StartSessionInput struct {
	UserID          string
	DeviceType      string
	Browser         string
	OperatingSystem string
	Referrer        string
	UserAgent       string
	IsNewUser       bool
}

// TrackPageViewInput describes a single page impression.
type TrackPageViewInput struct {
	SessionID   string
	UserID      string
	PageURL     string
	PageTitle   string
	Referrer    string
	UserAgent   string
	IPAddress   string
	TimeOnPage  *float64
	ScrollDepth *float64
}

// TrackConversionInput describes a goal completion inside a session.
type TrackConversionInput struct {
	SessionID string
	UserID    string
	EventType string
	PageURL   string
	Value     *float64
}

// CreateUser registers a visitor. The operation is idempotent: creating an
// existing user is a no-op that leaves the stored record untouched. When
// userID is empty a new one is generated.
func CreateUser(dbManager cartridge.DBManager, logger *slog.Logger, userID string) (string, error) {
	if userID == "" {
		userID = uuid.NewString()
	}

	now := time.Now().UTC()
	user := &User{
		ID:                userID,
		FirstVisit:        now,
		LastVisit:         now,
		TotalSessions:     1,
		TotalPageViews:    1,
		DevicePreferences: "{}",
		ConversionEvents:  "[]",
	}

	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error
	})
	if err != nil {
		logger.Error("Failed to create user", slog.Any("error", err))
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	return userID, nil
}

// StartSession opens a new visit for a user. The referrer is classified into
// a traffic source exactly once here; social referrers additionally get a
// social_referrals row. Returning visitors get their session counter bumped
// and the session's device type is tallied into the user's device
// preferences.
func StartSession(dbManager cartridge.DBManager, logger *slog.Logger, input StartSessionInput) (string, error) {
	sessionID := uuid.NewString()
	now := time.Now().UTC()

	deviceType, browser, operatingSystem := resolveClientInfo(input)
	source := traffic.Classify(input.Referrer)

	session := &Session{
		ID:              sessionID,
		UserID:          input.UserID,
		StartTime:       now,
		DeviceType:      deviceType,
		Browser:         browser,
		OperatingSystem: operatingSystem,
		TrafficSource:   source,
		IsNewUser:       input.IsNewUser,
	}

	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		if platform, ok := traffic.SocialPlatformOf(source); ok {
			referral := &SocialReferral{
				SessionID: sessionID,
				Platform:  platform,
				Organic:   true,
			}
			if err := tx.Create(referral).Error; err != nil {
				return err
			}
		}

		if !input.IsNewUser {
			if err := tx.Exec(
				"UPDATE users SET total_sessions = total_sessions + 1 WHERE id = ?",
				input.UserID,
			).Error; err != nil {
				return err
			}
		}

		return bumpDevicePreference(tx, input.UserID, deviceType)
	})
	if err != nil {
		logger.Error("Failed to start session", slog.Any("error", err), slog.String("user_id", input.UserID))
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	logger.Debug("Started session",
		slog.String("session_id", sessionID),
		slog.String("traffic_source", source))
	return sessionID, nil
}

// TrackPageView stores a page view and bumps the session and user counters
// in the same transaction, so the view row and both counters always move
// together. Counter updates on unknown session or user ids match zero rows
// and are silently absorbed.
func TrackPageView(dbManager cartridge.DBManager, logger *slog.Logger, input TrackPageViewInput) (string, error) {
	pageViewID := uuid.NewString()
	now := time.Now().UTC()

	pageView := &PageView{
		ID:          pageViewID,
		Timestamp:   now,
		SessionID:   input.SessionID,
		UserID:      input.UserID,
		PageURL:     input.PageURL,
		PageTitle:   input.PageTitle,
		Referrer:    input.Referrer,
		UserAgent:   input.UserAgent,
		IPAddress:   input.IPAddress,
		TimeOnPage:  input.TimeOnPage,
		ScrollDepth: input.ScrollDepth,
	}

	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(pageView).Error; err != nil {
			return err
		}

		if err := tx.Exec(
			"UPDATE sessions SET page_views = page_views + 1, end_time = ? WHERE id = ?",
			now, input.SessionID,
		).Error; err != nil {
			return err
		}

		return tx.Exec(
			"UPDATE users SET total_page_views = total_page_views + 1, last_visit = ? WHERE id = ?",
			now, input.UserID,
		).Error
	})
	if err != nil {
		logger.Error("Failed to track page view", slog.Any("error", err), slog.String("session_id", input.SessionID))
		return "", fmt.Errorf("failed to track page view: %w", err)
	}

	return pageViewID, nil
}

// EndSession closes a session. When duration is nil it is derived from the
// session start time. The bounce flag is decided here and only here: a
// single page view with a duration under ten seconds. An unknown session id
// is a silent no-op.
func EndSession(dbManager cartridge.DBManager, logger *slog.Logger, sessionID string, duration *float64) error {
	db := dbManager.GetConnection()
	now := time.Now().UTC()

	var session Session
	if err := db.Select("user_id", "page_views", "start_time").
		Where("id = ?", sessionID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Ignoring end for unknown session", slog.String("session_id", sessionID))
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	seconds := 0.0
	if duration != nil {
		seconds = *duration
	} else {
		seconds = now.Sub(session.StartTime).Seconds()
	}

	bounce := session.PageViews == bouncePageViews && seconds < bounceMaxSeconds

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Exec(
			"UPDATE sessions SET end_time = ?, duration = ?, bounce = ? WHERE id = ?",
			now, seconds, bounce, sessionID,
		).Error; err != nil {
			return err
		}

		return tx.Exec(
			"UPDATE users SET total_time_on_site = total_time_on_site + ? WHERE id = ?",
			seconds, session.UserID,
		).Error
	})
	if err != nil {
		logger.Error("Failed to end session", slog.Any("error", err), slog.String("session_id", sessionID))
		return fmt.Errorf("failed to end session: %w", err)
	}

	return nil
}

// TrackConversion stores a conversion, bumps the session conversion counter
// and appends the event type to the user's conversion history with an atomic
// JSON append.
func TrackConversion(dbManager cartridge.DBManager, logger *slog.Logger, input TrackConversionInput) (string, error) {
	conversionID := uuid.NewString()
	now := time.Now().UTC()

	conversion := &Conversion{
		ID:        conversionID,
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Timestamp: now,
		EventType: input.EventType,
		PageURL:   input.PageURL,
		Value:     input.Value,
	}

	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(conversion).Error; err != nil {
			return err
		}

		if err := tx.Exec(
			"UPDATE sessions SET conversions = conversions + 1 WHERE id = ?",
			input.SessionID,
		).Error; err != nil {
			return err
		}

		return tx.Exec(
			`UPDATE users
			 SET conversion_events = json_insert(COALESCE(NULLIF(conversion_events, ''), '[]'), '$[#]', ?)
			 WHERE id = ?`,
			input.EventType, input.UserID,
		).Error
	})
	if err != nil {
		logger.Error("Failed to track conversion", slog.Any("error", err), slog.String("session_id", input.SessionID))
		return "", fmt.Errorf("failed to track conversion: %w", err)
	}

	return conversionID, nil
}

// MarkExitPage flags a page view as the last page of its session. Unknown
// page view ids are a silent no-op.
func MarkExitPage(dbManager cartridge.DBManager, logger *slog.Logger, pageViewID string) error {
	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE page_views SET exit_page = 1 WHERE id = ?", pageViewID).Error
	})
	if err != nil {
		logger.Error("Failed to mark exit page", slog.Any("error", err), slog.String("page_view_id", pageViewID))
		return fmt.Errorf("failed to mark exit page: %w", err)
	}
	return nil
}

// UpdateTimeOnPage records the seconds a visitor spent on a page. Unknown
// page view ids are a silent no-op.
func UpdateTimeOnPage(dbManager cartridge.DBManager, logger *slog.Logger, pageViewID string, seconds float64) error {
	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE page_views SET time_on_page = ? WHERE id = ?", seconds, pageViewID).Error
	})
	if err != nil {
		logger.Error("Failed to update time on page", slog.Any("error", err), slog.String("page_view_id", pageViewID))
		return fmt.Errorf("failed to update time on page: %w", err)
	}
	return nil
}

// resolveClientInfo fills missing device fields from the user agent and
// applies defaults for anything still unknown.
func resolveClientInfo(input StartSessionInput) (string, string, string) {
	deviceType := input.DeviceType
	browser := input.Browser
	operatingSystem := input.OperatingSystem

	if input.UserAgent != "" && (deviceType == "" || browser == "" || operatingSystem == "") {
		parsed := useragent.Parse(input.UserAgent)
		if !parsed.Bot {
			if deviceType == "" {
				deviceType = parsed.Device
			}
			if browser == "" {
				browser = parsed.Browser
			}
			if operatingSystem == "" {
				operatingSystem = parsed.OS
			}
		}
	}

	if deviceType == "" {
		deviceType = useragent.DeviceDesktop
	}
	if browser == "" {
		browser = "unknown"
	}
	if operatingSystem == "" {
		operatingSystem = "unknown"
	}

	return deviceType, browser, operatingSystem
}

// bumpDevicePreference increments the per-device session tally on the user
// row with a single atomic JSON update.
func bumpDevicePreference(tx *gorm.DB, userID, deviceType string) error {
	// Double quotes would break the JSON path expression.
	key := strings.ReplaceAll(deviceType, `"`, "")
	path := fmt.Sprintf(`$."%s"`, key)

	return tx.Exec(
		`UPDATE users
		 SET device_preferences = json_set(
			 COALESCE(NULLIF(device_preferences, ''), '{}'),
			 ?,
			 COALESCE(json_extract(COALESCE(NULLIF(device_preferences, ''), '{}'), ?), 0) + 1
		 )
		 WHERE id = ?`,
		path, path, userID,
	).Error
}
