package dto

import (
	"time"

	"github.com/alpinetrails/payment-engine/internal/models"
)

// WebhookResponse is the acknowledgement returned to the payment gateway.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventType string `json:"eventType"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// ErrorResponse is the structured error body on 4xx/5xx. Timestamp lets
// support correlate a customer report with gateway delivery logs.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type BookingResponse struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	TourID          string               `json:"tour_id"`
	SessionID       string               `json:"session_id"`
	Status          models.BookingStatus `json:"status"`
	Quantity        int                  `json:"quantity"`
	DepositAmount   int64                `json:"deposit_amount"`
	TotalAmount     int64                `json:"total_amount"`
	AmountPaid      int64                `json:"amount_paid"`
	BalanceDueDate  *time.Time           `json:"balance_due_date,omitempty"`
	TourTitle       string               `json:"tour_title,omitempty"`
	TourDestination string               `json:"tour_destination,omitempty"`
	SessionDate     *time.Time           `json:"session_date,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

type RedemptionResponse struct {
	BookingID string    `json:"booking_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type GiftCardResponse struct {
	Code             string                `json:"code"`
	Amount           int64                 `json:"amount"`
	RemainingBalance int64                 `json:"remaining_balance"`
	Status           models.GiftCardStatus `json:"status"`
	ExpiresAt        time.Time             `json:"expires_at"`
	Redemptions      []RedemptionResponse  `json:"redemptions"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		TourID:          b.TourID,
		SessionID:       b.SessionID,
		Status:          b.Status,
		Quantity:        b.Quantity,
		DepositAmount:   b.DepositAmount,
		TotalAmount:     b.TotalAmount,
		AmountPaid:      b.AmountPaid,
		BalanceDueDate:  b.BalanceDueDate,
		TourTitle:       b.TourTitle,
		TourDestination: b.TourDestination,
		SessionDate:     b.SessionDate,
		CreatedAt:       b.CreatedAt,
	}
}

func ToGiftCardResponse(card *models.GiftCard, redemptions []models.Redemption) GiftCardResponse {
	resp := GiftCardResponse{
		Code:             card.Code,
		Amount:           card.Amount,
		RemainingBalance: card.RemainingBalance,
		Status:           card.Status,
		ExpiresAt:        card.ExpiresAt,
		Redemptions:      make([]RedemptionResponse, 0, len(redemptions)),
	}
	for _, r := range redemptions {
		resp.Redemptions = append(resp.Redemptions, RedemptionResponse{
			BookingID: r.BookingID,
			Amount:    r.Amount,
			CreatedAt: r.CreatedAt,
		})
	}
	return resp
}
