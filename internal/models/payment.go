package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is one checkout attempt against the payment provider. Stored
// by the payment gateway service, keyed by the Stripe checkout session.
type Payment struct {
	PaymentID   string        `json:"payment_id"`
	OrderID     string        `json:"order_id"`
	Status      PaymentStatus `json:"status"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	SessionID   string        `json:"session_id,omitempty"`
	CreatedDate time.Time     `json:"created_date"`
	UpdatedDate time.Time     `json:"updated_date,omitempty"`
}

type CheckoutSessionRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

type CheckoutSessionResponse struct {
	PaymentID  string `json:"payment_id"`
	OrderID    string `json:"order_id"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}
