// Package internal contains core application functionality
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"sitepulse/internal/config"
	"sitepulse/internal/database"
	"sitepulse/internal/jobs"
	"sitepulse/internal/traffic"
)

// Application wraps cartridge.Application with sitepulse-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // sitepulse-specific DB manager with migration methods
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	// Create logger
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize database manager (sitepulse-specific with migration methods)
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Override the built-in traffic source table when one is configured
	if cfg.TrafficSourcesPath != "" {
		table, err := traffic.LoadSourceTable(cfg.TrafficSourcesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load traffic sources: %w", err)
		}
		traffic.SetSourceTable(table)
	}

	// Initialize background jobs
	scheduler, err := jobs.NewScheduler(dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	// Sec-Fetch-Site validation is a global middleware, so it must be turned
	// off on the server config: tracking events arrive from server-side SDKs
	// and sendBeacon calls that carry no browser fetch metadata and would
	// all be rejected otherwise.
	serverCfg := cartridge.DefaultServerConfig()
	serverCfg.EnableSecFetchSite = false

	// Create the cartridge application using NewApplication
	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		ServerConfig:      serverCfg,
		RouteMountFunc:    MountAppRoutes,
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
	}, nil
}
