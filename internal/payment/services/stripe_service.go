package services

import (
	"errors"
	"fmt"

	"brewhub/internal/config"
	"brewhub/internal/logger"
	"brewhub/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
	ErrInvalidSignature       = errors.New("invalid webhook signature")
)

// StripeService handles integration with the Stripe payment gateway.
type StripeService struct {
	client        *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	log           *logger.Logger
}

// NewStripeService creates a new instance of StripeService
func NewStripeService(cfg config.StripeConfig, log *logger.Logger) (*StripeService, error) {
	if cfg.SecretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY not configured")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(cfg.SecretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeService{
		client:        sc,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		log:           log,
	}, nil
}

// CreateCheckoutSession creates a hosted Stripe Checkout session for an
// order. The order id travels in the session metadata and comes back in
// the checkout.session.completed webhook.
func (s *StripeService) CreateCheckoutSession(order *models.Order) (*stripe.CheckoutSession, error) {
	if order.Total <= 0 {
		s.log.Error("STRIPE", fmt.Sprintf("Invalid amount for order %s: %.2f", order.OrderID, order.Total))
		return nil, fmt.Errorf("invalid checkout amount: %.2f", order.Total)
	}

	// Stripe wants the smallest currency unit
	amountInCents := int64(order.Total*100 + 0.5)

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("BrewHub order for %s", order.PickupName)),
					},
					UnitAmount: stripe.Int64(amountInCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("order_id", order.OrderID)

	s.log.Info("STRIPE", fmt.Sprintf("Creating checkout session for order %s, amount: %.2f usd", order.OrderID, order.Total))
	sess, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	s.log.Info("STRIPE", fmt.Sprintf("Checkout session created: %s (order: %s)", sess.ID, order.OrderID))
	return sess, nil
}

// VerifyWebhook checks the Stripe-Signature header against the raw body
// and returns the parsed event. Unsigned or tampered payloads are
// rejected with ErrInvalidSignature.
func (s *StripeService) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.log.Error("STRIPE", fmt.Sprintf("Webhook signature verification failed: %v", err))
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}
