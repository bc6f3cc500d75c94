package sync

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift-sync-backend/internal/store"
)

type fakeFetcher struct {
	shifts []store.RawShift
	err    error
	calls  int
}

func (f *fakeFetcher) FetchShifts(_ context.Context, _, _ time.Time) ([]store.RawShift, error) {
	f.calls++
	return f.shifts, f.err
}

// upsertRecorder implements store.Store, failing upserts for selected uuids.
type upsertRecorder struct {
	store.Store
	upserts []string
	failFor map[string]error
}

func (r *upsertRecorder) UpsertShift(_ context.Context, shift store.RawShift) error {
	r.upserts = append(r.upserts, shift.ShiftUUID)
	if err, ok := r.failFor[shift.ShiftUUID]; ok {
		return err
	}
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessNewShifts_Counts(t *testing.T) {
	fetcher := &fakeFetcher{shifts: []store.RawShift{
		{ShiftUUID: "a"},
		{ShiftUUID: ""}, // rejected by the store
		{ShiftUUID: "c"},
	}}
	recorder := &upsertRecorder{failFor: map[string]error{
		"": &store.ValidationError{Reason: "missing shift_uuid"},
	}}

	engine := NewEngine(fetcher, recorder, discard())
	report, err := engine.ProcessNewShifts(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, Report{Attempted: 3, Succeeded: 2, Failed: 1}, report)
	// The failing record must not stop the ones after it.
	assert.Equal(t, []string{"a", "", "c"}, recorder.upserts)
}

func TestProcessNewShifts_PersistenceFailureContinues(t *testing.T) {
	fetcher := &fakeFetcher{shifts: []store.RawShift{
		{ShiftUUID: "a"},
		{ShiftUUID: "b"},
	}}
	recorder := &upsertRecorder{failFor: map[string]error{
		"a": &store.PersistenceError{Op: "upsert", ShiftUUID: "a", Err: assert.AnError},
	}}

	engine := NewEngine(fetcher, recorder, discard())
	report, err := engine.ProcessNewShifts(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, Report{Attempted: 2, Succeeded: 1, Failed: 1}, report)
}

func TestProcessNewShifts_FetchFailureAborts(t *testing.T) {
	fetcher := &fakeFetcher{err: assert.AnError}
	recorder := &upsertRecorder{}

	engine := NewEngine(fetcher, recorder, discard())
	_, err := engine.ProcessNewShifts(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Empty(t, recorder.upserts, "a failed fetch must not touch the store")
}

func TestTodayWindow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	now := time.Date(2025, 6, 15, 13, 45, 12, 0, time.UTC)
	start, end := TodayWindow(now, loc)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 6, 15, 23, 59, 0, 0, loc), end)
}
