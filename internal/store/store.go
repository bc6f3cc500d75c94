package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shift-sync-backend/internal/model"
)

// Store defines the interface for all database operations on shifts and
// the upstream audit log.
type Store interface {
	UpsertShift(ctx context.Context, shift RawShift) error
	FindUnprocessedWithClockIn(ctx context.Context) ([]model.Shift, error)
	MarkProcessed(ctx context.Context, shiftUUID string) error
	IssueForwardToken(ctx context.Context, shiftUUID string, ttl time.Duration) (string, error)
	FindByToken(ctx context.Context, token string) (*TokenLookup, error)
	RecordForward(ctx context.Context, shiftUUID, email string) error
	LogUpstreamCall(ctx context.Context, entry model.UpstreamCallLog) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// NewGormStoreWithClock creates a store with an injected clock, used by
// tests that need to move time past a token expiry.
func NewGormStoreWithClock(db *gorm.DB, now func() time.Time) Store {
	return &gormStore{db: db, now: now}
}

// UpsertShift inserts or updates a shift keyed by shift_uuid. Re-ingesting
// an existing uuid refreshes actual_clock_in and the raw payload in place;
// processing and forwarding state is left untouched.
func (s *gormStore) UpsertShift(ctx context.Context, shift RawShift) error {
	if shift.ShiftUUID == "" {
		return &ValidationError{Reason: "missing shift_uuid"}
	}

	raw := shift.Raw
	if len(raw) == 0 {
		encoded, err := json.Marshal(shift)
		if err != nil {
			return &ValidationError{Reason: fmt.Sprintf("payload not encodable: %v", err)}
		}
		raw = encoded
	}

	row := model.Shift{
		ShiftUUID:     shift.ShiftUUID,
		ActualClockIn: unixPtr(shift.ActualClockIn),
		RawData:       datatypes.JSON(raw),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shift_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"actual_clock_in", "raw_data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return &PersistenceError{Op: "upsert", ShiftUUID: shift.ShiftUUID, Err: err}
	}
	return nil
}

// FindUnprocessedWithClockIn returns shifts that have a clock-in recorded
// but no notification sent yet, in no guaranteed order.
func (s *gormStore) FindUnprocessedWithClockIn(ctx context.Context) ([]model.Shift, error) {
	var shifts []model.Shift
	err := s.db.WithContext(ctx).
		Where("processed = ? AND actual_clock_in IS NOT NULL", false).
		Find(&shifts).Error
	if err != nil {
		return nil, &PersistenceError{Op: "find unprocessed", Err: err}
	}
	return shifts, nil
}

// MarkProcessed records that a clock-in notification was delivered.
func (s *gormStore) MarkProcessed(ctx context.Context, shiftUUID string) error {
	err := s.db.WithContext(ctx).Model(&model.Shift{}).
		Where("shift_uuid = ?", shiftUUID).
		Update("processed", true).Error
	if err != nil {
		return &PersistenceError{Op: "mark processed", ShiftUUID: shiftUUID, Err: err}
	}
	return nil
}

// IssueForwardToken generates a fresh random token and stamps the expiry.
// A shift holds at most one live token; a prior token is overwritten.
func (s *gormStore) IssueForwardToken(ctx context.Context, shiftUUID string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate forward token: %w", err)
	}
	expiresAt := s.now().Add(ttl)

	res := s.db.WithContext(ctx).Model(&model.Shift{}).
		Where("shift_uuid = ?", shiftUUID).
		Updates(map[string]any{
			"forward_token":      token,
			"forward_expires_at": expiresAt,
		})
	if res.Error != nil {
		return "", &PersistenceError{Op: "issue token", ShiftUUID: shiftUUID, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return "", &PersistenceError{Op: "issue token", ShiftUUID: shiftUUID, Err: gorm.ErrRecordNotFound}
	}
	return token, nil
}

// FindByToken resolves a forward token to its shift. Valid is computed
// against the expiry at call time.
func (s *gormStore) FindByToken(ctx context.Context, token string) (*TokenLookup, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	var shift model.Shift
	err := s.db.WithContext(ctx).Where("forward_token = ?", token).First(&shift).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find by token", Err: err}
	}

	lookup := &TokenLookup{
		ShiftUUID: shift.ShiftUUID,
		RawData:   json.RawMessage(shift.RawData),
		Valid:     shift.ForwardExpiresAt != nil && s.now().Before(*shift.ForwardExpiresAt),
		Forwarded: shift.ForwardedAt != nil,
	}
	if shift.ForwardEmail != nil {
		lookup.ForwardEmail = *shift.ForwardEmail
	}
	return lookup, nil
}

// RecordForward marks the forward as completed. The update is conditional
// on forwarded_at still being null so a racing duplicate confirm cannot
// overwrite the first completion.
func (s *gormStore) RecordForward(ctx context.Context, shiftUUID, email string) error {
	res := s.db.WithContext(ctx).Model(&model.Shift{}).
		Where("shift_uuid = ? AND forwarded_at IS NULL", shiftUUID).
		Updates(map[string]any{
			"forward_email": email,
			"forwarded_at":  s.now(),
		})
	if res.Error != nil {
		return &PersistenceError{Op: "record forward", ShiftUUID: shiftUUID, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyForwarded
	}
	return nil
}

// LogUpstreamCall appends one row to the upstream request audit log.
func (s *gormStore) LogUpstreamCall(ctx context.Context, entry model.UpstreamCallLog) error {
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return &PersistenceError{Op: "log upstream call", Err: err}
	}
	return nil
}

// newToken returns 16 bytes of cryptographic randomness as lowercase hex.
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func unixPtr(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}
