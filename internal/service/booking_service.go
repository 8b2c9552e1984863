package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/alpinetrails/payment-engine/internal/gateway"
	"github.com/alpinetrails/payment-engine/internal/metrics"
	"github.com/alpinetrails/payment-engine/internal/models"
	"github.com/alpinetrails/payment-engine/internal/notify"
	"github.com/alpinetrails/payment-engine/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNoDepositOnFile = errors.New("no deposit-paid booking on file for this user, tour and session")
	ErrBookingNotFound = errors.New("booking not found")
	ErrCannotCancel    = errors.New("booking is already completed or cancelled")
)

// balanceDueLead is how far ahead of departure the balance falls due. When
// the trip date is unknown the due date falls back to the same lead from now.
const balanceDueLead = 30 * 24 * time.Hour

// BookingService is the booking lifecycle manager: it creates a booking on
// the first (deposit) payment and settles an existing one on the second
// (balance) payment. Gift-card application, profile enrichment and
// notifications run after the primary write and never roll it back.
type BookingService interface {
	HandleDeposit(ctx context.Context, payment *gateway.TourPayment) (*models.Booking, error)
	HandleBalance(ctx context.Context, payment *gateway.TourPayment) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CancelBooking(ctx context.Context, id string) (*models.Booking, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	giftCards   GiftCardService
	profiles    ProfileService
	dispatcher  *notify.Dispatcher
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	giftCards GiftCardService,
	profiles ProfileService,
	dispatcher *notify.Dispatcher,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		giftCards:   giftCards,
		profiles:    profiles,
		dispatcher:  dispatcher,
	}
}

// HandleDeposit creates the booking for a verified deposit payment. The
// customer has already been charged, so an insert failure here is the one
// error that must reach an operator with enough detail to reconcile by hand.
func (s *bookingService) HandleDeposit(ctx context.Context, payment *gateway.TourPayment) (*models.Booking, error) {
	expectedTotal := payment.SessionPrice * int64(payment.Quantity)
	residual := expectedTotal - payment.ChargedAmount
	if residual < 0 {
		residual = 0
	}
	discount := s.resolveDiscount(ctx, payment, residual)
	totalPaid := payment.ChargedAmount + discount

	status := models.StatusDepositPaid
	if totalPaid >= expectedTotal {
		status = models.StatusFullyPaid
	}

	now := time.Now()
	balanceDue := now.Add(balanceDueLead)
	if payment.SessionDate != nil {
		balanceDue = payment.SessionDate.Add(-balanceDueLead)
	}

	booking := &models.Booking{
		ID:                      uuid.NewString(),
		UserID:                  payment.UserID,
		TourID:                  payment.TourID,
		SessionID:               payment.SessionID,
		Status:                  status,
		Quantity:                payment.Quantity,
		DepositAmount:           payment.ChargedAmount,
		TotalAmount:             expectedTotal,
		AmountPaid:              totalPaid,
		DepositDueDate:          &now,
		BalanceDueDate:          &balanceDue,
		StripePaymentIntentID:   payment.PaymentIntentID,
		StripeCheckoutSessionID: payment.CheckoutSessionID,
		TourTitle:               payment.TourTitle,
		TourDestination:         payment.TourDestination,
		SessionDate:             payment.SessionDate,
		SessionEndDate:          payment.SessionEndDate,
	}

	if err := s.bookingRepo.Create(ctx, s.bookingRepo.GetDB(), booking); err != nil {
		metrics.ReconciliationFailures.WithLabelValues("booking_insert").Inc()
		return nil, fmt.Errorf("insert booking for payment %s (user %s): %w",
			payment.PaymentIntentID, payment.UserID, err)
	}

	s.applyGiftCard(ctx, payment, discount, booking.ID)
	s.enrichProfile(ctx, payment)
	s.dispatcher.DepositReceived(ctx, booking, payment.CustomerEmail)

	return booking, nil
}

// HandleBalance settles the remaining amount against the most recent
// deposit-paid booking for the (user, tour, session) triple. The lookup and
// update share one transaction so two racing balance events cannot settle
// two different rows.
func (s *bookingService) HandleBalance(ctx context.Context, payment *gateway.TourPayment) (*models.Booking, error) {
	var (
		booking  *models.Booking
		discount int64
	)

	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.bookingRepo.FindLatestDepositPaidForUpdate(ctx, tx,
			payment.UserID, payment.TourID, payment.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoDepositOnFile
			}
			return err
		}

		residual := found.TotalAmount - found.AmountPaid - payment.ChargedAmount
		if residual < 0 {
			residual = 0
		}
		discount = s.resolveDiscount(ctx, payment, residual)

		found.AmountPaid += payment.ChargedAmount + discount
		if found.Status.CanTransitionTo(models.StatusFullyPaid) {
			found.Status = models.StatusFullyPaid
		}
		found.StripePaymentIntentID = payment.PaymentIntentID
		found.StripeCheckoutSessionID = payment.CheckoutSessionID

		if err := s.bookingRepo.Save(ctx, tx, found); err != nil {
			return err
		}
		booking = found
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNoDepositOnFile) {
			metrics.ReconciliationFailures.WithLabelValues("balance_settlement").Inc()
		}
		return nil, err
	}

	s.applyGiftCard(ctx, payment, discount, booking.ID)
	s.enrichProfile(ctx, payment)
	s.dispatcher.BalanceSettled(ctx, booking, payment.CustomerEmail)

	return booking, nil
}

// CancelBooking is the operator's escape hatch for a booking that will not
// go ahead. Money already taken stays on the ledger; refunds are settled at
// the gateway, not here.
func (s *bookingService) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(models.StatusCancelled) {
		return nil, ErrCannotCancel
	}

	if err := s.bookingRepo.UpdateStatus(ctx, s.bookingRepo.GetDB(), id, models.StatusCancelled); err != nil {
		return nil, err
	}
	booking.Status = models.StatusCancelled
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// resolveDiscount returns the gift value counted into amount_paid. The
// discount set at checkout-session creation wins; when only a code is
// present the card's live balance caps it against what remains owed after
// the current charge, so the gift never pushes amount_paid past the total.
func (s *bookingService) resolveDiscount(ctx context.Context, payment *gateway.TourPayment, payable int64) int64 {
	if payment.GiftCardCode == "" {
		return 0
	}
	if payment.GiftCardDiscount > 0 {
		return payment.GiftCardDiscount
	}

	card, _, err := s.giftCards.GetByCode(ctx, payment.GiftCardCode)
	if err != nil {
		log.Printf("[Booking] gift card %s lookup failed: %v", payment.GiftCardCode, err)
		return 0
	}
	if !card.Redeemable(time.Now()) || payable <= 0 {
		return 0
	}
	if card.RemainingBalance < payable {
		return card.RemainingBalance
	}
	return payable
}

// applyGiftCard decrements the card after the primary write committed.
// Failure leaves the booking in place for manual reconciliation.
func (s *bookingService) applyGiftCard(ctx context.Context, payment *gateway.TourPayment, discount int64, bookingID string) {
	if payment.GiftCardCode == "" || discount <= 0 {
		return
	}

	result, err := s.giftCards.Redeem(ctx, payment.GiftCardCode, discount, payment.UserID, bookingID)
	if err != nil {
		metrics.ReconciliationFailures.WithLabelValues("gift_card_redemption").Inc()
		log.Printf("[Booking] gift card %s redemption failed for booking %s: %v",
			payment.GiftCardCode, bookingID, err)
		return
	}
	if result.Discount != discount {
		log.Printf("[Booking] gift card %s covered %d of the expected %d for booking %s",
			payment.GiftCardCode, result.Discount, discount, bookingID)
	}
}

func (s *bookingService) enrichProfile(ctx context.Context, payment *gateway.TourPayment) {
	if err := s.profiles.Enrich(ctx, payment.UserID, payment.Profile); err != nil {
		log.Printf("[Booking] profile enrichment failed for user %s: %v", payment.UserID, err)
	}
}
