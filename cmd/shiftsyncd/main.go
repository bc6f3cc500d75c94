package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/api"
	"shift-sync-backend/internal/db"
	"shift-sync-backend/internal/forward"
	"shift-sync-backend/internal/logging"
	"shift-sync-backend/internal/mailer"
	"shift-sync-backend/internal/notifier"
	"shift-sync-backend/internal/parim"
	"shift-sync-backend/internal/store"
	syncsvc "shift-sync-backend/internal/sync"
)

func main() {
	// A .env file is optional; real deployments set the environment.
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

	logger := logging.New(cfg.Logging)
	logger.Info("configuration loaded", "path", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	logger.Info("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	parimClient := parim.NewClient(&cfg.Parim, appStore, logger.With("component", "parim"))
	brevoClient := mailer.NewClient(&cfg.Mailer, logger.With("component", "mailer"))

	engine := syncsvc.NewEngine(parimClient, appStore, logger.With("component", "sync"))
	notify := notifier.New(appStore, brevoClient, &cfg.Mailer, &cfg.Forward, cfg.Sync.Timezone, logger.With("component", "notifier"))

	syncService := syncsvc.NewService(&cfg.Sync, engine, notify, logger.With("component", "sync"))
	go syncService.Run(ctx)

	workflow := forward.NewWorkflow(appStore, brevoClient, &cfg.Mailer, &cfg.Forward, cfg.Sync.Timezone, logger.With("component", "forward"))

	router := api.NewRouter(cfg, workflow, logger.With("component", "api"))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server gracefully stopped")
}
