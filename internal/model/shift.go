package model

import (
	"time"

	"gorm.io/datatypes"
)

// Shift represents one shift record mirrored from the upstream Parim API.
//
// actual_clock_in and the forward_* columns are pointers so that "never
// happened" is distinguishable from a zero timestamp.
type Shift struct {
	ID            int64          `gorm:"primaryKey;autoIncrement"`
	ShiftUUID     string         `gorm:"uniqueIndex;size:64;not null"`
	ActualClockIn *time.Time     `gorm:"index"`
	RawData       datatypes.JSON `gorm:"not null"`

	// Processed flips to true only after a clock-in notification has
	// actually been delivered.
	Processed bool `gorm:"not null;default:false"`

	ForwardToken     *string    `gorm:"uniqueIndex;size:64"`
	ForwardExpiresAt *time.Time
	ForwardEmail     *string    `gorm:"size:320"`
	ForwardedAt      *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
