package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/db"
	"shift-sync-backend/internal/logging"
	"shift-sync-backend/internal/mailer"
	"shift-sync-backend/internal/notifier"
	"shift-sync-backend/internal/store"
)

// processshifts is the scheduled batch entry point that sends the
// clock-in notification for every unprocessed shift with a clock-in.
// A failed send leaves its shift unprocessed for the next run.
func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "process-shifts")

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	appStore := store.NewGormStore(gormDB)
	brevoClient := mailer.NewClient(&cfg.Mailer, logger)
	notify := notifier.New(appStore, brevoClient, &cfg.Mailer, &cfg.Forward, cfg.Sync.Timezone, logger)

	if err := notify.ProcessPending(context.Background()); err != nil {
		logger.Error("failed to process shifts", "error", err)
		os.Exit(1)
	}

	logger.Info("successfully processed shifts")
}
