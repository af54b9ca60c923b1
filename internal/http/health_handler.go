package http

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"sitepulse/internal/tracking"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	DBStatus         string    `json:"db_status"`
	PageViewsTracked int64     `json:"page_views_tracked"`
}

// HealthIndexAction handles the health check endpoint
func HealthIndexAction(ctx *cartridge.Context) error {
	dbStatus := "ok"
	var pageViewsTracked int64

	db := ctx.DBManager.GetConnection()
	if db == nil {
		dbStatus = "error"
		ctx.Logger.Error("Database connection unavailable")
	} else {
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database connection error", slog.Any("error", err))
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error"
			ctx.Logger.Error("Database ping failed", slog.Any("error", err))
		} else if err := db.Model(&tracking.PageView{}).Count(&pageViewsTracked).Error; err != nil {
			// Count failure is not fatal for the health check
			ctx.Logger.Warn("Failed to count tracked page views", slog.Any("error", err))
		}
	}

	health := HealthStatus{
		Status:           "ok",
		Timestamp:        time.Now(),
		DBStatus:         dbStatus,
		PageViewsTracked: pageViewsTracked,
	}

	if dbStatus != "ok" {
		health.Status = "degraded"
	}

	return ctx.JSON(health)
}
