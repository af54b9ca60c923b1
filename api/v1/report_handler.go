package v1

import (
	"net/http"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"sitepulse/internal/analytics"
	"sitepulse/internal/timeframe"
)

// GetReportHandler returns the full analytics report for the last N days
// (query parameter "days", default 30).
func GetReportHandler(ctx *cartridge.Context) error {
	days := ctx.Ctx.QueryInt("days", timeframe.DefaultReportDays)

	report, err := analytics.GenerateReport(ctx.DBManager.GetConnection(), ctx.Logger, days)
	if err != nil {
		ctx.Logger.Error("Failed to generate report",
			slog.Any("error", err),
			slog.Int("days", days))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate report",
			"code":  "REPORT_ERROR",
		})
	}

	return ctx.JSON(report)
}
