package v1

import (
	"encoding/json"
	"net/http"
	"strings"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/pkg/useragent"
	"sitepulse/internal/tracking"
)

// Event types accepted by the track endpoint.
const (
	EventTypePageView     = "page_view"
	EventTypeSessionStart = "session_start"
	EventTypeSessionEnd   = "session_end"
	EventTypePageExit     = "page_exit"
	EventTypeConversion   = "conversion"
	EventTypeUserCreate   = "user_create"
)

const (
	msgEventAccepted  = "Event accepted"
	msgEventIgnored   = "Event ignored"
	errInvalidRequest = "Invalid request"
)

// TrackEventParams is the body of the track endpoint. Which fields matter
// depends on event_type; unused fields are ignored.
type TrackEventParams struct {
	EventType string `json:"event_type"`

	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	PageViewID string `json:"page_view_id"`

	PageURL   string `json:"page_url"`
	PageTitle string `json:"page_title"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`

	DeviceType      string `json:"device_type"`
	Browser         string `json:"browser"`
	OperatingSystem string `json:"operating_system"`
	IsNewUser       bool   `json:"is_new_user"`

	ConversionType string   `json:"conversion_type"`
	Value          *float64 `json:"value"`
	Duration       *float64 `json:"duration"`
	TimeOnPage     *float64 `json:"time_on_page"`
	ScrollDepth    *float64 `json:"scroll_depth"`
}

// TrackEventPublicAPIHandler dispatches a tracking event to the matching
// ingestion operation. Accepted events answer 202 with the generated id;
// events from known bot user agents are dropped but still answer 202 so
// trackers never retry them.
func TrackEventPublicAPIHandler(ctx *cartridge.Context) error {
	var params TrackEventParams
	if err := ctx.Ctx.BodyParser(&params); err != nil {
		ctx.Logger.Debug("Failed to parse track request", slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": errInvalidRequest,
		})
	}

	userAgent := resolveUserAgent(ctx, params)
	if userAgent != "" && useragent.Parse(userAgent).Bot {
		ctx.Logger.Debug("Dropping bot event", slog.String("user_agent", userAgent))
		return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
			"message": msgEventIgnored,
			"status":  http.StatusAccepted,
		})
	}

	id, err := dispatchTrackEvent(ctx, params, userAgent)
	if err != nil {
		return handleTrackError(ctx, params.EventType, err)
	}

	resp := fiber.Map{
		"message": msgEventAccepted,
		"status":  http.StatusAccepted,
	}
	if id != "" {
		resp["id"] = id
	}
	return ctx.Status(http.StatusAccepted).JSON(resp)
}

// TrackEventBeaconHandler handles events sent via navigator.sendBeacon.
// Beacon requests fire during page unload and the browser never reads the
// response, so this always answers 202.
func TrackEventBeaconHandler(ctx *cartridge.Context) error {
	var params TrackEventParams
	// Beacon payloads arrive as text/plain, BodyParser would reject them.
	if err := json.Unmarshal(ctx.Body(), &params); err != nil {
		ctx.Logger.Debug("Failed to parse beacon request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	userAgent := resolveUserAgent(ctx, params)
	if userAgent != "" && useragent.Parse(userAgent).Bot {
		ctx.Logger.Debug("Dropping bot beacon event", slog.String("user_agent", userAgent))
		return ctx.SendStatus(http.StatusAccepted)
	}

	if _, err := dispatchTrackEvent(ctx, params, userAgent); err != nil {
		ctx.Logger.Error("Failed to process beacon event",
			slog.Any("error", err),
			slog.String("event_type", params.EventType))
	}

	return ctx.SendStatus(http.StatusAccepted)
}

func dispatchTrackEvent(ctx *cartridge.Context, params TrackEventParams, userAgent string) (string, error) {
	switch params.EventType {
	case EventTypeUserCreate:
		return tracking.CreateUser(ctx.DBManager, ctx.Logger, params.UserID)

	case EventTypeSessionStart:
		return tracking.StartSession(ctx.DBManager, ctx.Logger, tracking.StartSessionInput{
			UserID:          params.UserID,
			DeviceType:      params.DeviceType,
			Browser:         params.Browser,
			OperatingSystem: params.OperatingSystem,
			Referrer:        params.Referrer,
			UserAgent:       userAgent,
			IsNewUser:       params.IsNewUser,
		})

	case EventTypePageView:
		return tracking.TrackPageView(ctx.DBManager, ctx.Logger, tracking.TrackPageViewInput{
			SessionID:   params.SessionID,
			UserID:      params.UserID,
			PageURL:     params.PageURL,
			PageTitle:   params.PageTitle,
			Referrer:    params.Referrer,
			UserAgent:   userAgent,
			IPAddress:   getClientIP(ctx.Ctx),
			TimeOnPage:  params.TimeOnPage,
			ScrollDepth: params.ScrollDepth,
		})

	case EventTypeSessionEnd:
		return "", tracking.EndSession(ctx.DBManager, ctx.Logger, params.SessionID, params.Duration)

	case EventTypePageExit:
		if err := tracking.MarkExitPage(ctx.DBManager, ctx.Logger, params.PageViewID); err != nil {
			return "", err
		}
		if params.TimeOnPage != nil {
			return "", tracking.UpdateTimeOnPage(ctx.DBManager, ctx.Logger, params.PageViewID, *params.TimeOnPage)
		}
		return "", nil

	case EventTypeConversion:
		return tracking.TrackConversion(ctx.DBManager, ctx.Logger, tracking.TrackConversionInput{
			SessionID: params.SessionID,
			UserID:    params.UserID,
			EventType: params.ConversionType,
			PageURL:   params.PageURL,
			Value:     params.Value,
		})

	default:
		return "", fiber.NewError(http.StatusBadRequest, "Unknown event type: "+params.EventType)
	}
}

func handleTrackError(ctx *cartridge.Context, eventType string, err error) error {
	if fiberErr, ok := err.(*fiber.Error); ok {
		return ctx.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	ctx.Logger.Error("Failed to process event",
		slog.Any("error", err),
		slog.String("event_type", eventType))

	if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
		return ctx.Status(599).JSON(fiber.Map{}) // custom status code, client retries
	}

	return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to process event",
		"code":  "TRACKING_ERROR",
	})
}

// resolveUserAgent picks the user agent for an event: the payload value
// wins, then the X-Forwarded-User-Agent header set by proxying SDKs, then
// the plain request header.
func resolveUserAgent(ctx *cartridge.Context, params TrackEventParams) string {
	if params.UserAgent != "" {
		return params.UserAgent
	}
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		return forwardedUA
	}
	return ctx.Get("User-Agent")
}
