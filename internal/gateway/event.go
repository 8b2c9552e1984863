package gateway

import "time"

// Route is the terminal handling path the classifier selected.
type Route string

const (
	RouteGiftCard Route = "gift_card"
	RouteDeposit  Route = "tour_deposit"
	RouteBalance  Route = "tour_balance"
	RouteIgnored  Route = "ignored"
)

// ProfileFields are the billing fields captured by the gateway's checkout
// form (custom fields plus customer details), to be copied onto the paying
// user's profile best-effort.
type ProfileFields struct {
	FiscalCode   string
	VATNumber    string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	PostalCode   string
	Country      string
}

// GiftCardPurchase is a verified, validated gift-card checkout.
// Amount is in cents.
type GiftCardPurchase struct {
	EventID           string
	CheckoutSessionID string
	PaymentIntentID   string
	Amount            int64
	PurchaserUserID   string // empty when bought anonymously
	RecipientEmail    string
}

// TourPayment is a verified, validated deposit or balance checkout.
// All amounts are cents; SessionPrice is the per-person price captured
// server-side when the checkout session was created.
type TourPayment struct {
	EventID           string
	CheckoutSessionID string
	PaymentIntentID   string

	UserID    string
	TourID    string
	SessionID string

	Quantity      int
	SessionPrice  int64
	ChargedAmount int64

	GiftCardCode     string
	GiftCardDiscount int64
	OriginalAmount   int64

	TourTitle       string
	TourDestination string
	SessionDate     *time.Time
	SessionEndDate  *time.Time

	CustomerEmail string
	Profile       ProfileFields
}

// Event is the classifier's output: exactly one route, with the matching
// variant populated. Downstream components consume only these variants,
// never raw metadata lookups.
type Event struct {
	ID       string
	Type     string
	Route    Route
	GiftCard *GiftCardPurchase
	Payment  *TourPayment
}
