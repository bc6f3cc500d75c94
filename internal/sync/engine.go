package sync

import (
	"context"
	"log/slog"
	"time"

	"shift-sync-backend/internal/store"
)

// ShiftFetcher is the slice of the upstream client the engine needs.
type ShiftFetcher interface {
	FetchShifts(ctx context.Context, windowStart, windowEnd time.Time) ([]store.RawShift, error)
}

// Report summarizes one sync run.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Engine pulls shift records for a window and upserts them one by one.
type Engine struct {
	fetcher ShiftFetcher
	store   store.Store
	logger  *slog.Logger
}

// NewEngine creates a sync engine.
func NewEngine(fetcher ShiftFetcher, s store.Store, logger *slog.Logger) *Engine {
	return &Engine{fetcher: fetcher, store: s, logger: logger}
}

// ProcessNewShifts fetches the window and upserts each record. A failure
// on one record is logged and counted but does not abort the batch; a
// fetch failure aborts the whole run without touching the store.
// Re-running the same window is safe because the upsert is keyed.
func (e *Engine) ProcessNewShifts(ctx context.Context, windowStart, windowEnd time.Time) (Report, error) {
	e.logger.Info("starting shift sync",
		"window_start", windowStart,
		"window_end", windowEnd)

	shifts, err := e.fetcher.FetchShifts(ctx, windowStart, windowEnd)
	if err != nil {
		return Report{}, err
	}

	e.logger.Info("retrieved shifts from upstream", "count", len(shifts))

	report := Report{Attempted: len(shifts)}
	for _, shift := range shifts {
		if err := e.store.UpsertShift(ctx, shift); err != nil {
			report.Failed++
			e.logger.Error("failed to save shift",
				"shift_uuid", shift.ShiftUUID,
				"error", err)
			continue
		}
		report.Succeeded++
	}

	e.logger.Info("finished shift sync",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed)
	return report, nil
}

// TodayWindow returns the batch window convention: today at 00:00:00
// through 23:59:00 in the given location.
func TodayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 0, 0, loc)
	return start, end
}
