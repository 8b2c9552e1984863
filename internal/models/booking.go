package models

import "time"

type BookingStatus string

const (
	StatusPending     BookingStatus = "pending"
	StatusDepositPaid BookingStatus = "deposit_paid"
	StatusFullyPaid   BookingStatus = "fully_paid"
	StatusCompleted   BookingStatus = "completed"
	StatusCancelled   BookingStatus = "cancelled"
)

// statusRank orders the forward path of the lifecycle. Cancelled sits outside
// the ordering and is reachable from any non-terminal status.
var statusRank = map[BookingStatus]int{
	StatusPending:     0,
	StatusDepositPaid: 1,
	StatusFullyPaid:   2,
	StatusCompleted:   3,
}

// CanTransitionTo reports whether a booking may move from s to next.
// Statuses only move forward; the one exception is an explicit cancellation.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == StatusCancelled {
		return false
	}
	if next == StatusCancelled {
		return s != StatusCompleted
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Booking is one customer/trip-session commitment. All amounts are cents.
// Trip snapshot fields are denormalized at payment time so the booking
// survives later edits to the tour content.
type Booking struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string        `gorm:"not null;index:idx_booking_lookup,priority:1" json:"user_id"`
	TourID    string        `gorm:"not null;index:idx_booking_lookup,priority:2" json:"tour_id"`
	SessionID string        `gorm:"not null;index:idx_booking_lookup,priority:3" json:"session_id"`
	Status    BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_booking_lookup,priority:4" json:"status"`

	Quantity      int   `gorm:"not null;default:1" json:"quantity"`
	DepositAmount int64 `gorm:"not null" json:"deposit_amount"`
	TotalAmount   int64 `gorm:"not null" json:"total_amount"`
	AmountPaid    int64 `gorm:"not null" json:"amount_paid"`

	DepositDueDate *time.Time `json:"deposit_due_date,omitempty"`
	BalanceDueDate *time.Time `json:"balance_due_date,omitempty"`

	StripePaymentIntentID   string `gorm:"type:varchar(255)" json:"stripe_payment_intent_id"`
	StripeCheckoutSessionID string `gorm:"type:varchar(255)" json:"stripe_checkout_session_id"`

	TourTitle       string     `gorm:"type:varchar(255)" json:"tour_title"`
	TourDestination string     `gorm:"type:varchar(255)" json:"tour_destination"`
	SessionDate     *time.Time `json:"session_date,omitempty"`
	SessionEndDate  *time.Time `json:"session_end_date,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_booking_lookup,priority:5" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
