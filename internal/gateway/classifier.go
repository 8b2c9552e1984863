package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
)

const checkoutSessionCompleted = "checkout.session.completed"

var (
	ErrMissingMetadata    = errors.New("missing required checkout metadata")
	ErrUnknownPaymentType = errors.New("unknown payment type")
	ErrAnonymousUser      = errors.New("anonymous user on a paid flow")
	ErrInvalidAmount      = errors.New("invalid amount in metadata")
)

// checkoutSession is the slice of the gateway's session object this engine
// consumes. payment_intent arrives as a bare id on webhook payloads.
type checkoutSession struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`

	CustomerDetails *struct {
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address *struct {
			Line1      string `json:"line1"`
			Line2      string `json:"line2"`
			City       string `json:"city"`
			PostalCode string `json:"postal_code"`
			Country    string `json:"country"`
		} `json:"address"`
	} `json:"customer_details"`

	CustomFields []struct {
		Key  string `json:"key"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"custom_fields"`
}

// Classify routes a verified gateway event to exactly one handling path.
// Event types other than checkout.session.completed are acknowledged and
// ignored. An unroutable completed session (missing or invalid metadata) is
// an error: the caller must reject it without any partial write.
func Classify(event stripe.Event) (*Event, error) {
	if string(event.Type) != checkoutSessionCompleted {
		return &Event{ID: event.ID, Type: string(event.Type), Route: RouteIgnored}, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: completed session without a data object", ErrMissingMetadata)
	}

	var session checkoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w", err)
	}

	if session.Metadata["type"] == "gift_card" {
		purchase, err := classifyGiftCard(event.ID, &session)
		if err != nil {
			return nil, err
		}
		return &Event{ID: event.ID, Type: string(event.Type), Route: RouteGiftCard, GiftCard: purchase}, nil
	}

	payment, route, err := classifyTourPayment(event.ID, &session)
	if err != nil {
		return nil, err
	}
	return &Event{ID: event.ID, Type: string(event.Type), Route: route, Payment: payment}, nil
}

func classifyGiftCard(eventID string, session *checkoutSession) (*GiftCardPurchase, error) {
	amount, err := parseMajorUnits(session.Metadata["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: gift card amount %q", ErrInvalidAmount, session.Metadata["amount"])
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: gift card amount must be positive", ErrInvalidAmount)
	}

	purchase := &GiftCardPurchase{
		EventID:           eventID,
		CheckoutSessionID: session.ID,
		PaymentIntentID:   session.PaymentIntent,
		Amount:            amount,
	}
	if userID := session.Metadata["userId"]; userID != "" && userID != "anonymous" {
		purchase.PurchaserUserID = userID
	}
	if session.CustomerDetails != nil {
		purchase.RecipientEmail = session.CustomerDetails.Email
	}
	return purchase, nil
}

func classifyTourPayment(eventID string, session *checkoutSession) (*TourPayment, Route, error) {
	md := session.Metadata

	var route Route
	switch md["paymentType"] {
	case "deposit":
		route = RouteDeposit
	case "balance":
		route = RouteBalance
	case "":
		return nil, "", fmt.Errorf("%w: paymentType", ErrMissingMetadata)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownPaymentType, md["paymentType"])
	}

	userID := md["userId"]
	if userID == "" || userID == "anonymous" {
		return nil, "", ErrAnonymousUser
	}
	if md["tourId"] == "" || md["sessionId"] == "" {
		return nil, "", fmt.Errorf("%w: tourId/sessionId", ErrMissingMetadata)
	}

	quantity, err := strconv.Atoi(md["quantity"])
	if err != nil || quantity < 1 {
		return nil, "", fmt.Errorf("%w: quantity %q", ErrMissingMetadata, md["quantity"])
	}

	sessionPrice, err := parseMajorUnits(md["sessionPrice"])
	if err != nil {
		return nil, "", fmt.Errorf("%w: sessionPrice %q", ErrInvalidAmount, md["sessionPrice"])
	}

	payment := &TourPayment{
		EventID:           eventID,
		CheckoutSessionID: session.ID,
		PaymentIntentID:   session.PaymentIntent,
		UserID:            userID,
		TourID:            md["tourId"],
		SessionID:         md["sessionId"],
		Quantity:          quantity,
		SessionPrice:      sessionPrice,
		ChargedAmount:     session.AmountTotal,
		GiftCardCode:      md["giftCardCode"],
		TourTitle:         md["tourTitle"],
		TourDestination:   md["tourDestination"],
		SessionDate:       parseSessionDate(md["sessionDate"]),
		SessionEndDate:    parseSessionDate(md["sessionEndDate"]),
	}

	// Optional fields set at session creation; a malformed value is dropped
	// rather than failing a payment that already succeeded at the gateway.
	if v, err := strconv.ParseInt(md["giftCardDiscount"], 10, 64); err == nil && v > 0 {
		payment.GiftCardDiscount = v
	}
	if v, err := strconv.ParseInt(md["originalAmount"], 10, 64); err == nil && v > 0 {
		payment.OriginalAmount = v
	}

	if session.CustomerDetails != nil {
		payment.CustomerEmail = session.CustomerDetails.Email
		payment.Profile.Phone = session.CustomerDetails.Phone
		if addr := session.CustomerDetails.Address; addr != nil {
			payment.Profile.AddressLine1 = addr.Line1
			payment.Profile.AddressLine2 = addr.Line2
			payment.Profile.City = addr.City
			payment.Profile.PostalCode = addr.PostalCode
			payment.Profile.Country = addr.Country
		}
	}
	for _, field := range session.CustomFields {
		switch field.Key {
		case "fiscal_code", "fiscalCode":
			payment.Profile.FiscalCode = field.Text.Value
		case "vat_number", "vatNumber":
			payment.Profile.VATNumber = field.Text.Value
		case "phone":
			if field.Text.Value != "" {
				payment.Profile.Phone = field.Text.Value
			}
		}
	}

	return payment, route, nil
}

// parseMajorUnits converts a decimal string in major units ("1000", "49.90")
// to cents without going through floating point.
func parseMajorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if units < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	cents := units * 100
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("amount %q: at most two decimal places", s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		sub, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
		cents += sub
	}
	return cents, nil
}

func parseSessionDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
