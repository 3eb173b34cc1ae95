package storage

import "brewhub/internal/models"

// Store persists checkout attempts.
type Store interface {
	CreatePayment(payment models.Payment) error
	GetPaymentByOrderID(orderID string) (*models.Payment, error)
	UpdatePaymentStatus(orderID string, status models.PaymentStatus, sessionID string) error
	Close() error
}
