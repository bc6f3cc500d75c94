package model

import "time"

// UpstreamCallLog is the append-only audit trail of requests made to the
// Parim API. Rows are written for successes and failures alike and are
// never updated or deleted.
type UpstreamCallLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Endpoint     string    `gorm:"size:256;not null"`
	RequestData  string    `gorm:"type:text"`
	ResponseData string    `gorm:"type:text"`
	StatusCode   int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
}
