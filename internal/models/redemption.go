package models

import "time"

// Redemption links a gift card to the booking it discounted. The unique
// (code, booking) pair means a replayed gateway event that re-references
// the same card against the same booking cannot spend it twice.
type Redemption struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	GiftCardCode string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_redemption_once,priority:1" json:"gift_card_code"`
	BookingID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_redemption_once,priority:2" json:"booking_id"`
	UserID       string    `gorm:"type:varchar(64);not null" json:"user_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}
