// main.go - HTTP server application
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitepulse/internal"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

func main() {
	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Could not build application: %v", err)
	}

	if err := app.DBManager.MigrateDatabase(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	if err := app.StartAsync(); err != nil {
		log.Fatalf("Could not start server: %v", err)
	}
	log.Println("sitepulse is up")

	waitForShutdownSignal(app)
}

// waitForShutdownSignal blocks until a termination signal arrives, then shuts
// the application down with a bounded grace period.
func waitForShutdownSignal(app *internal.Application) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigChan
	log.Printf("Caught %v, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
	log.Println("Goodbye")
}
