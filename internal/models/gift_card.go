package models

import "time"

type GiftCardStatus string

const (
	GiftCardActive   GiftCardStatus = "active"
	GiftCardDepleted GiftCardStatus = "depleted"
	GiftCardExpired  GiftCardStatus = "expired"
)

// GiftCard is a stored-value instrument. RemainingBalance only ever moves
// down, and only through a redemption. Cards are never deleted; depleted and
// expired cards stay around for audit.
type GiftCard struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	Code             string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Amount           int64          `gorm:"not null" json:"amount"`
	RemainingBalance int64          `gorm:"not null" json:"remaining_balance"`
	PurchaserUserID  *string        `gorm:"type:varchar(64);index" json:"purchaser_user_id,omitempty"`
	RecipientEmail   *string        `gorm:"type:varchar(255)" json:"recipient_email,omitempty"`
	Status           GiftCardStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ExpiresAt        time.Time      `gorm:"not null" json:"expires_at"`

	StripeCheckoutSessionID string `gorm:"type:varchar(255)" json:"stripe_checkout_session_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GiftCard) TableName() string {
	return "gift_cards"
}

// Redeemable reports whether the card can discount a payment right now.
func (g *GiftCard) Redeemable(now time.Time) bool {
	return g.Status == GiftCardActive && g.RemainingBalance > 0 && now.Before(g.ExpiresAt)
}
