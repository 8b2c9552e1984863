package notify

import (
	"context"
	"log"
	"time"

	"github.com/alpinetrails/payment-engine/internal/models"
)

// publishTimeout bounds every outbound publish so a slow broker cannot hold
// the webhook handler open.
const publishTimeout = 3 * time.Second

// Publisher is the transport the dispatcher pushes notification jobs
// through (satisfied by pkg/rabbitmq.Publisher).
type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher sends operator and customer notifications best-effort. Every
// method swallows and logs failures: notification problems must never roll
// back or delay a ledger write.
type Dispatcher struct {
	publisher     Publisher
	operatorEmail string
}

func NewDispatcher(publisher Publisher, operatorEmail string) *Dispatcher {
	return &Dispatcher{publisher: publisher, operatorEmail: operatorEmail}
}

type bookingNotification struct {
	Kind            string `json:"kind"`
	To              string `json:"to"`
	CustomerEmail   string `json:"customer_email,omitempty"`
	BookingID       string `json:"booking_id"`
	UserID          string `json:"user_id"`
	TourTitle       string `json:"tour_title"`
	TourDestination string `json:"tour_destination"`
	AmountPaid      int64  `json:"amount_paid"`
	TotalAmount     int64  `json:"total_amount"`
	Status          string `json:"status"`
}

type giftCardNotification struct {
	To      string `json:"to"`
	Code    string `json:"code"`
	Amount  int64  `json:"amount"`
	Expires string `json:"expires_at"`
}

// DepositReceived alerts the operator that a new booking was created.
func (d *Dispatcher) DepositReceived(ctx context.Context, booking *models.Booking, customerEmail string) {
	d.publish(ctx, "notify.booking.deposit", bookingNotification{
		Kind:            "deposit_received",
		To:              d.operatorEmail,
		CustomerEmail:   customerEmail,
		BookingID:       booking.ID,
		UserID:          booking.UserID,
		TourTitle:       booking.TourTitle,
		TourDestination: booking.TourDestination,
		AmountPaid:      booking.AmountPaid,
		TotalAmount:     booking.TotalAmount,
		Status:          string(booking.Status),
	})
}

// BalanceSettled alerts the operator that an existing booking is fully paid.
func (d *Dispatcher) BalanceSettled(ctx context.Context, booking *models.Booking, customerEmail string) {
	d.publish(ctx, "notify.booking.balance", bookingNotification{
		Kind:            "balance_settled",
		To:              d.operatorEmail,
		CustomerEmail:   customerEmail,
		BookingID:       booking.ID,
		UserID:          booking.UserID,
		TourTitle:       booking.TourTitle,
		TourDestination: booking.TourDestination,
		AmountPaid:      booking.AmountPaid,
		TotalAmount:     booking.TotalAmount,
		Status:          string(booking.Status),
	})
}

// GiftCardIssued delivers the freshly minted code to the recipient.
func (d *Dispatcher) GiftCardIssued(ctx context.Context, card *models.GiftCard) {
	if card.RecipientEmail == nil || *card.RecipientEmail == "" {
		return
	}
	d.publish(ctx, "notify.giftcard.issued", giftCardNotification{
		To:      *card.RecipientEmail,
		Code:    card.Code,
		Amount:  card.Amount,
		Expires: card.ExpiresAt.Format(time.RFC3339),
	})
}

func (d *Dispatcher) publish(ctx context.Context, routingKey string, payload any) {
	if d == nil || d.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.publisher.PublishWithContext(ctx, routingKey, payload); err != nil {
		log.Printf("[Notify] publish %s failed: %v", routingKey, err)
	}
}
