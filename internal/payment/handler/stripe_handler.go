package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"brewhub/internal/logger"
	"brewhub/internal/models"
	paymentredis "brewhub/internal/payment/redis"
	"brewhub/internal/payment/services"
	"brewhub/internal/payment/storage"
	"brewhub/internal/tracking"
	"brewhub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
)

const maxWebhookBodyBytes = 65536

// OrderReader looks up orders so checkout amounts always come from the
// database, never from the request.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*models.OrderWithItems, error)
}

// TrackingAuthority applies the paid transition for an order.
type TrackingAuthority interface {
	MarkPaid(ctx context.Context, orderID string) error
}

// DeliveryDeduper claims webhook event ids. Satisfied by the Redis
// deduper.
type DeliveryDeduper interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

var _ DeliveryDeduper = (*paymentredis.Deduper)(nil)

type StripeHandler struct {
	stripeService *services.StripeService
	paymentStore  storage.Store
	deduper       DeliveryDeduper
	orders        OrderReader
	trackingSvc   TrackingAuthority
	logger        *logger.Logger
}

func NewStripeHandler(stripeService *services.StripeService, paymentStore storage.Store, deduper DeliveryDeduper, orders OrderReader, trackingSvc TrackingAuthority, log *logger.Logger) *StripeHandler {
	return &StripeHandler{
		stripeService: stripeService,
		paymentStore:  paymentStore,
		deduper:       deduper,
		orders:        orders,
		trackingSvc:   trackingSvc,
		logger:        log,
	}
}

// CreateCheckoutSession creates a Stripe Checkout session for an order
// and records a pending payment.
func (h *StripeHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	orderData, err := h.orders.GetOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		h.logger.Info("PAYMENT", fmt.Sprintf("No order found for checkout: %s", req.OrderID))
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request", "No order found for this order_id"))
		return
	}

	if orderData.Order.Paid {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Order already paid", fmt.Sprintf("Order %s has already been paid", req.OrderID)))
		return
	}

	sess, err := h.stripeService.CreateCheckoutSession(&orderData.Order)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout session creation failed", err.Error()))
		return
	}

	payment := models.Payment{
		PaymentID:   utils.GeneratePaymentID(),
		OrderID:     req.OrderID,
		Status:      models.PaymentPending,
		Amount:      orderData.Order.Total,
		Currency:    "usd",
		SessionID:   sess.ID,
		CreatedDate: time.Now().UTC(),
	}
	if err := h.paymentStore.CreatePayment(payment); err != nil {
		h.logger.Error("PAYMENT", fmt.Sprintf("Failed to store pending payment: %v", err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Payment record creation failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Checkout session created", models.CheckoutSessionResponse{
		PaymentID:  payment.PaymentID,
		OrderID:    req.OrderID,
		SessionID:  sess.ID,
		SessionURL: sess.URL,
	}))
}

// Webhook receives Stripe event deliveries. Signature failures are the
// caller's fault and get a 4xx so Stripe retries with a fixed payload;
// downstream processing failures after a verified event are acked with
// 200 and recovered from logs, except an unknown order which signals a
// real inconsistency.
func (h *StripeHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	event, err := h.stripeService.VerifyWebhook(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Webhook verification failed", "invalid signature"))
		return
	}

	if event.Type != "checkout.session.completed" {
		h.logger.Debug("PAYMENT", fmt.Sprintf("Ignoring webhook event type %s", event.Type))
		c.JSON(http.StatusOK, utils.SuccessResponse("Event ignored", nil))
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "malformed checkout session"))
		return
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		h.logger.Info("PAYMENT", fmt.Sprintf("Session %s completed without payment (status: %s)", sess.ID, sess.PaymentStatus))
		c.JSON(http.StatusOK, utils.SuccessResponse("Event ignored", nil))
		return
	}

	orderID := sess.Metadata["order_id"]
	if orderID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", "missing order_id metadata"))
		return
	}

	first, err := h.deduper.FirstDelivery(c.Request.Context(), event.ID)
	if err != nil {
		// fail open: a missing dedup record only risks a redundant
		// MarkPaid, which is itself idempotent
		h.logger.Warn("PAYMENT", fmt.Sprintf("Dedup check failed for event %s: %v", event.ID, err))
		first = true
	}
	if !first {
		h.logger.Info("PAYMENT", fmt.Sprintf("Duplicate webhook delivery for event %s (order: %s)", event.ID, orderID))
		c.JSON(http.StatusOK, utils.SuccessResponse("Event already processed", nil))
		return
	}

	if err := h.trackingSvc.MarkPaid(c.Request.Context(), orderID); err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			h.logger.Error("PAYMENT", fmt.Sprintf("Webhook for unknown order %s (event: %s)", orderID, event.ID))
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Webhook processing failed", "internal error"))
			return
		}
		h.logger.Error("PAYMENT", fmt.Sprintf("Failed to apply paid transition for order %s: %v", orderID, err))
		c.JSON(http.StatusOK, utils.SuccessResponse("Event received", nil))
		return
	}

	if err := h.paymentStore.UpdatePaymentStatus(orderID, models.PaymentSuccess, sess.ID); err != nil {
		h.logger.Error("PAYMENT", fmt.Sprintf("Failed to update payment record for order %s: %v", orderID, err))
	}

	h.logger.Info("PAYMENT", fmt.Sprintf("Order %s marked paid via webhook event %s", orderID, event.ID))
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment processed", nil))
}
