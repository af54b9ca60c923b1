package jobs

import (
	"log/slog"
	"time"

	"sitepulse/internal/config"
	"sitepulse/internal/database"
	"sitepulse/internal/tracking"
)

// CleanupJob prunes raw page views past the retention period. Sessions and
// users are aggregates of past behavior and are never deleted.
type CleanupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run removes page views older than the retention period. This keeps the
// store size bounded; all derived counters on sessions and users survive.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.PageViewsRetentionDays
	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Debug("Starting cleanup of old page views",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	// Count rows to be deleted first
	var countToDelete int64
	if err := db.Model(&tracking.PageView{}).
		Where("timestamp < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old page views", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old page views to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("timestamp < ?", cutoffDate).
			Limit(batchSize).
			Delete(&tracking.PageView{})

		if result.Error != nil {
			j.logger.Error("Failed to delete old page views",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up old page views",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
