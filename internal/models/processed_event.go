package models

import "time"

// ProcessedEvent records a gateway event id we have already accepted.
// The gateway delivers at least once; the unique event id turns that into
// effectively-once processing — a redelivery short-circuits before the
// classifier runs.
type ProcessedEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"event_id"`
	EventType string    `gorm:"type:varchar(100);not null" json:"event_type"`
	Outcome   string    `gorm:"type:varchar(100)" json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}
