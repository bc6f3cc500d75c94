package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/db"
	"shift-sync-backend/internal/logging"
	"shift-sync-backend/internal/parim"
	"shift-sync-backend/internal/store"
	syncsvc "shift-sync-backend/internal/sync"
)

// fetchshifts is the scheduled batch entry point that pulls today's
// shifts from the upstream API into the store. Per-record failures are
// logged and counted; only a top-level failure exits non-zero.
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

	logger := logging.New(cfg.Logging).With("component", "fetch-shifts")

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	appStore := store.NewGormStore(gormDB)
	parimClient := parim.NewClient(&cfg.Parim, appStore, logger)
	engine := syncsvc.NewEngine(parimClient, appStore, logger)

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Sync.Timezone, "error", err)
		os.Exit(1)
	}

	start, end := syncsvc.TodayWindow(time.Now(), loc)
	if _, err := engine.ProcessNewShifts(context.Background(), start, end); err != nil {
		logger.Error("shift fetch failed", "error", err)
		os.Exit(1)
	}

	logger.Info("successfully processed shifts")
}
