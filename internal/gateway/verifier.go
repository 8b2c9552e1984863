package gateway

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

var ErrMissingSignature = errors.New("missing signature header")

// VerifyEvent authenticates the raw webhook body against the signature
// header before anything parses it. Verification failure means the payload
// is untrusted and nothing downstream may run.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	if sigHeader == "" {
		return stripe.Event{}, ErrMissingSignature
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook signature verification: %w", err)
	}
	return event, nil
}
