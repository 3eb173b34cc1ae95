package tracking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"brewhub/internal/auth"
	"brewhub/internal/logger"
	"brewhub/internal/models"
	"brewhub/internal/tracking"
)

type Handler struct {
	TrackingService *tracking.TrackingService
	Publisher       *tracking.LiveStatusPublisher
	Logger          *logger.Logger
}

func NewHandler(trackingService *tracking.TrackingService, publisher *tracking.LiveStatusPublisher, log *logger.Logger) *Handler {
	return &Handler{
		TrackingService: trackingService,
		Publisher:       publisher,
		Logger:          log,
	}
}

// AdvanceTracking moves an order to its next status on behalf of a
// staff caller and returns the updated snapshot.
func (h *Handler) AdvanceTracking(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("AdvanceTracking: orderId=%s", orderID))

	snapshot, err := h.TrackingService.Advance(r.Context(), orderID, callerRole(r))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AdvanceTracking: %v", err))

		switch {
		case errors.Is(err, tracking.ErrForbidden):
			http.Error(w, "Only staff may advance an order", http.StatusForbidden)
		case errors.Is(err, tracking.ErrNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, tracking.ErrNotAdvanceable):
			http.Error(w, "Order is already picked up", http.StatusConflict)
		case errors.Is(err, tracking.ErrConflict):
			http.Error(w, "Order was advanced by someone else, reload and retry", http.StatusConflict)
		default:
			http.Error(w, "Failed to advance order", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AdvanceTracking: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("AdvanceTracking: order %s now %s", orderID, snapshot.Status))
}

// GetTrackingSnapshot returns the same shape as the stream's initial
// emission, for one-time readers (order history, active-order banner).
func (h *Handler) GetTrackingSnapshot(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("GetTrackingSnapshot: orderId=%s", orderID))

	snapshot, err := h.TrackingService.Snapshot(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetTrackingSnapshot: %v", err))
		http.Error(w, "Failed to load tracking state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetTrackingSnapshot: failed to encode response: %v", err))
	}
}

// callerRole prefers the role the auth middleware put into the context
// and falls back to the bearer token's role claim when the route is
// mounted without the middleware (local development).
func callerRole(r *http.Request) models.Role {
	if role := auth.RoleFromContext(r.Context()); role != models.RoleCustomer {
		return role
	}

	token, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		return models.RoleCustomer
	}

	role, err := auth.ExtractRoleFromJWT(token)
	if err != nil {
		return models.RoleCustomer
	}
	return role
}
