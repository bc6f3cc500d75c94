package sync

import (
	"context"
	"log/slog"
	"time"

	"shift-sync-backend/config"
)

// Notifier is the processing step run after each sync cycle.
type Notifier interface {
	ProcessPending(ctx context.Context) error
}

// Service runs the sync engine and the notifier on a fixed interval.
// Each cycle is a plain sequential pass; the external scheduler shape of
// the batch commands is preserved, just driven by a timer.
type Service struct {
	cfg      *config.SyncConfig
	engine   *Engine
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates the periodic sync service.
func NewService(cfg *config.SyncConfig, engine *Engine, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, engine: engine, notifier: notifier, logger: logger}
}

// Run starts the sync loop. It performs one cycle immediately and then
// one per interval until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("sync loop is disabled, not starting")
		return
	}
	s.logger.Info("starting sync loop", "interval", s.cfg.Interval)

	s.runOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync loop shutting down")
			return
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.logger.Error("invalid sync timezone, falling back to UTC", "timezone", s.cfg.Timezone, "error", err)
		loc = time.UTC
	}

	start, end := TodayWindow(time.Now(), loc)
	if _, err := s.engine.ProcessNewShifts(ctx, start, end); err != nil {
		// Fatal to this cycle only; the next tick retries the same window.
		s.logger.Error("sync cycle failed", "error", err)
		return
	}

	if err := s.notifier.ProcessPending(ctx); err != nil {
		s.logger.Error("notification pass failed", "error", err)
	}
}
