package services

import (
	"bytes"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

// Gateway is the slice of the Stripe API the reconciler needs. It exists so
// handler logic can be exercised against a fake in tests.
type Gateway interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
	GetCheckoutSession(id string) (*stripe.CheckoutSession, error)
	// FindSessionByPaymentIntent returns the checkout session associated with
	// a payment intent, or nil when none exists.
	FindSessionByPaymentIntent(paymentIntentID string) (*stripe.CheckoutSession, error)
}

type StripeService struct {
	SecretKey  string
	WebhookKey string
}

func NewStripeService(secretKey, webhookKey string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{SecretKey: secretKey, WebhookKey: webhookKey}
}

// ParseWebhook reads the raw body and verifies the Stripe-Signature header.
// Verification failure is the only error the webhook endpoint surfaces to
// the caller.
func (s *StripeService) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, s.WebhookKey)
}

func (s *StripeService) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("line_items")
	params.AddExpand("customer_details")
	params.AddExpand("payment_intent")
	return session.Get(id, params)
}

func (s *StripeService) FindSessionByPaymentIntent(paymentIntentID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Limit = stripe.Int64(1)

	iter := session.List(params)
	for iter.Next() {
		return iter.CheckoutSession(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
