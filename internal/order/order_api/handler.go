package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"brewhub/internal/logger"
	"brewhub/internal/models"
	"brewhub/internal/order"
	"brewhub/internal/pickup"
	"brewhub/internal/tracking"
)

type Handler struct {
	OrderService    *order.OrderService
	TrackingService *tracking.TrackingService
	QR              *pickup.QRGenerator
	Logger          *logger.Logger
}

func NewHandler(orderService *order.OrderService, trackingService *tracking.TrackingService, qr *pickup.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{
		OrderService:    orderService,
		TrackingService: trackingService,
		QR:              qr,
		Logger:          log,
	}
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "PlaceOrder: received request")

	var orderReq models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	response, err := h.OrderService.PlaceOrder(r.Context(), orderReq)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: %v", err))
		if errors.Is(err, order.ErrInvalidOrder) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to place order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PlaceOrder: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("PlaceOrder: order %s created", response.OrderID))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("GetOrder: orderId=%s", orderID))

	orderData, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		http.Error(w, "Failed to load order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orderData); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: failed to encode response: %v", err))
	}
}

// GetPickupQR returns the order's encrypted pickup pass as a QR PNG.
// Only orders that have reached READY have a scannable pass.
func (h *Handler) GetPickupQR(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("GetPickupQR: orderId=%s", orderID))

	orderData, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetPickupQR: %v", err))
		http.Error(w, "Failed to load order", http.StatusInternalServerError)
		return
	}

	snapshot, err := h.TrackingService.Snapshot(r.Context(), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPickupQR: failed to load tracking: %v", err))
		http.Error(w, "Failed to load tracking state", http.StatusInternalServerError)
		return
	}

	if snapshot.ReadyAt == nil {
		http.Error(w, "Order is not ready for pickup yet", http.StatusConflict)
		return
	}

	png, err := h.QR.GenerateEncryptedQR(pickup.Pass{
		OrderID:    orderID,
		PickupName: orderData.Order.PickupName,
		PickupCode: orderData.Order.PickupCode,
		IssuedAt:   orderData.Order.CreatedAt,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPickupQR: failed to generate QR: %v", err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPickupQR: failed to write response: %v", err))
	}
}
