package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/alpinetrails/payment-engine/internal/dto"
	"github.com/alpinetrails/payment-engine/internal/gateway"
	"github.com/alpinetrails/payment-engine/internal/metrics"
	"github.com/alpinetrails/payment-engine/internal/models"
	"github.com/alpinetrails/payment-engine/internal/notify"
	"github.com/alpinetrails/payment-engine/internal/repository"
	"github.com/alpinetrails/payment-engine/internal/service"
	"github.com/labstack/echo/v4"
)

const signatureHeader = "Stripe-Signature"

type WebhookHandler struct {
	secret     string
	events     repository.ProcessedEventRepository
	giftCards  service.GiftCardService
	bookings   service.BookingService
	dispatcher *notify.Dispatcher
}

func NewWebhookHandler(
	secret string,
	events repository.ProcessedEventRepository,
	giftCards service.GiftCardService,
	bookings service.BookingService,
	dispatcher *notify.Dispatcher,
) *WebhookHandler {
	return &WebhookHandler{
		secret:     secret,
		events:     events,
		giftCards:  giftCards,
		bookings:   bookings,
		dispatcher: dispatcher,
	}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/stripe", h.HandleWebhook)
}

// HandleWebhook is the single entry point for gateway notifications:
// verify the raw body, claim the event id, classify, dispatch. Every path
// returns a structured response; nothing is mutated before verification.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest,
			dto.ErrorResponse{Error: "unreadable request body"})
	}

	event, err := gateway.VerifyEvent(payload, c.Request().Header.Get(signatureHeader), h.secret)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return echo.NewHTTPError(http.StatusBadRequest,
			dto.ErrorResponse{Error: "webhook signature verification failed"})
	}

	// At-least-once delivery: the unique event id turns redeliveries into
	// no-ops answered with the original outcome.
	claimed, err := h.events.Claim(ctx, &models.ProcessedEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError,
			dto.ErrorResponse{Error: "event deduplication failed", Details: fmt.Sprintf("event %s", event.ID)})
	}
	if !claimed {
		metrics.WebhookEvents.WithLabelValues("unknown", "duplicate").Inc()
		processed := false
		if original, err := h.events.FindByEventID(ctx, event.ID); err == nil {
			processed = strings.HasPrefix(original.Outcome, "processed")
		}
		return c.JSON(http.StatusOK, dto.WebhookResponse{
			Received:  true,
			EventType: string(event.Type),
			Processed: processed,
			Duplicate: true,
		})
	}

	classified, err := gateway.Classify(event)
	if err != nil {
		h.recordOutcome(ctx, event.ID, "rejected")
		metrics.WebhookEvents.WithLabelValues("unroutable", "rejected").Inc()
		return echo.NewHTTPError(http.StatusBadRequest,
			dto.ErrorResponse{Error: "unroutable checkout event", Details: err.Error()})
	}

	switch classified.Route {
	case gateway.RouteIgnored:
		h.recordOutcome(ctx, event.ID, "ignored")
		metrics.WebhookEvents.WithLabelValues(string(classified.Route), "ignored").Inc()
		return c.JSON(http.StatusOK, dto.WebhookResponse{
			Received:  true,
			EventType: string(event.Type),
			Processed: false,
		})

	case gateway.RouteGiftCard:
		return h.handleGiftCard(c, classified)

	case gateway.RouteDeposit:
		return h.handleDeposit(c, classified)

	case gateway.RouteBalance:
		return h.handleBalance(c, classified)
	}

	// Unreachable: the classifier only emits the routes above.
	return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true, EventType: string(event.Type)})
}

func (h *WebhookHandler) handleGiftCard(c echo.Context, classified *gateway.Event) error {
	ctx := c.Request().Context()
	purchase := classified.GiftCard

	card, err := h.giftCards.Issue(ctx, purchase)
	if err != nil {
		h.recordOutcome(ctx, classified.ID, "failed")
		metrics.WebhookEvents.WithLabelValues(string(classified.Route), "failed").Inc()
		metrics.ReconciliationFailures.WithLabelValues("gift_card_issuance").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "gift card issuance failed",
			Details: fmt.Sprintf("checkout session %s, payment %s", purchase.CheckoutSessionID, purchase.PaymentIntentID),
		})
	}

	h.dispatcher.GiftCardIssued(ctx, card)
	h.recordOutcome(ctx, classified.ID, "processed:gift_card")
	metrics.WebhookEvents.WithLabelValues(string(classified.Route), "processed").Inc()
	log.Printf("[Webhook] issued gift card %s (%d cents)", card.Code, card.Amount)

	return c.JSON(http.StatusOK, dto.WebhookResponse{
		Received:  true,
		EventType: classified.Type,
		Processed: true,
	})
}

func (h *WebhookHandler) handleDeposit(c echo.Context, classified *gateway.Event) error {
	ctx := c.Request().Context()
	payment := classified.Payment

	booking, err := h.bookings.HandleDeposit(ctx, payment)
	if err != nil {
		h.recordOutcome(ctx, classified.ID, "failed")
		metrics.WebhookEvents.WithLabelValues(string(classified.Route), "failed").Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "booking creation failed after successful charge",
			Details: fmt.Sprintf("payment %s, user %s", payment.PaymentIntentID, payment.UserID),
		})
	}

	h.recordOutcome(ctx, classified.ID, "processed:deposit")
	metrics.WebhookEvents.WithLabelValues(string(classified.Route), "processed").Inc()
	log.Printf("[Webhook] created booking %s (%s) for user %s", booking.ID, booking.Status, booking.UserID)

	return c.JSON(http.StatusOK, dto.WebhookResponse{
		Received:  true,
		EventType: classified.Type,
		Processed: true,
	})
}

func (h *WebhookHandler) handleBalance(c echo.Context, classified *gateway.Event) error {
	ctx := c.Request().Context()
	payment := classified.Payment

	booking, err := h.bookings.HandleBalance(ctx, payment)
	if err != nil {
		h.recordOutcome(ctx, classified.ID, "failed")
		metrics.WebhookEvents.WithLabelValues(string(classified.Route), "failed").Inc()

		if errors.Is(err, service.ErrNoDepositOnFile) {
			return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "no deposit on file for this balance payment",
				Details: fmt.Sprintf("payment %s, user %s, tour %s", payment.PaymentIntentID, payment.UserID, payment.TourID),
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "balance settlement failed after successful charge",
			Details: fmt.Sprintf("payment %s, user %s", payment.PaymentIntentID, payment.UserID),
		})
	}

	h.recordOutcome(ctx, classified.ID, "processed:balance")
	metrics.WebhookEvents.WithLabelValues(string(classified.Route), "processed").Inc()
	log.Printf("[Webhook] settled booking %s, amount_paid=%d", booking.ID, booking.AmountPaid)

	return c.JSON(http.StatusOK, dto.WebhookResponse{
		Received:  true,
		EventType: classified.Type,
		Processed: true,
	})
}

func (h *WebhookHandler) recordOutcome(ctx context.Context, eventID, outcome string) {
	if err := h.events.RecordOutcome(ctx, eventID, outcome); err != nil {
		log.Printf("[Webhook] recording outcome for event %s failed: %v", eventID, err)
	}
}
