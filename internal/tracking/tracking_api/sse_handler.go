package tracking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"brewhub/internal/tracking"
)

// StreamTracking holds a one-way text stream open and pushes a full
// snapshot whenever the order's status changes. The connection closes
// after the terminal snapshot or when the client goes away; transient
// store errors mid-stream never tear it down.
func (h *Handler) StreamTracking(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)

	// Cancelled when the client disconnects; the publisher's poll loop
	// hangs off this context and nothing else.
	ctx := r.Context()

	snapshots, err := h.Publisher.Subscribe(ctx, orderID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			fmt.Fprintf(w, "event: error\ndata: {\"error\":\"order not found\"}\n\n")
			flusher.Flush()
			return
		}
		h.Logger.Error("STREAM", fmt.Sprintf("Failed to open stream for order %s: %v", orderID, err))
		fmt.Fprintf(w, "event: error\ndata: {\"error\":\"failed to open stream\"}\n\n")
		flusher.Flush()
		return
	}

	h.Logger.LogStream(orderID, "client connected")

	for {
		select {
		case snapshot, ok := <-snapshots:
			if !ok {
				h.Logger.LogStream(orderID, "stream closed")
				return
			}

			jsonData, err := json.Marshal(snapshot)
			if err != nil {
				h.Logger.Error("STREAM", fmt.Sprintf("Failed to serialize snapshot for order %s: %v", orderID, err))
				continue
			}

			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.LogStream(orderID, "client disconnected")
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
