package models

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the fulfillment state of an order. The progression is
// strictly forward: PLACED → PREPARING → READY → PICKED_UP.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "PLACED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusPickedUp  OrderStatus = "PICKED_UP"
)

// statusSuccessor is the total transition table. PICKED_UP has no entry.
var statusSuccessor = map[OrderStatus]OrderStatus{
	StatusPlaced:    StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusPickedUp,
}

// Next returns the single legal successor of a status. ok is false for
// the terminal status and for unknown values.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := statusSuccessor[s]
	return next, ok
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPickedUp
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPlaced, StatusPreparing, StatusReady, StatusPickedUp:
		return true
	}
	return false
}

// EventLabel returns the customer-facing notice written to the event
// log when a status is entered.
func (s OrderStatus) EventLabel() string {
	switch s {
	case StatusPreparing:
		return "Barista started preparing your order"
	case StatusReady:
		return "Your order is ready for pickup"
	case StatusPickedUp:
		return "Order picked up"
	default:
		return "Order placed"
	}
}

// OrderTracking is the status record for one order, one row per order.
// placed_at is set at creation; the other timestamps are written exactly
// once, the moment their status is entered.
type OrderTracking struct {
	bun.BaseModel `bun:"table:order_tracking"`

	OrderID     string      `bun:"order_id,pk" json:"order_id"`
	Status      OrderStatus `bun:"status,notnull" json:"status"`
	PlacedAt    time.Time   `bun:"placed_at,notnull" json:"placed_at"`
	PreparingAt *time.Time  `bun:"preparing_at,nullzero" json:"preparing_at"`
	ReadyAt     *time.Time  `bun:"ready_at,nullzero" json:"ready_at"`
	PickedUpAt  *time.Time  `bun:"picked_up_at,nullzero" json:"picked_up_at"`
}

// OrderEvent is one append-only log entry tied to an order's tracking
// record. Rows are never mutated or deleted.
type OrderEvent struct {
	bun.BaseModel `bun:"table:order_events"`

	ID        int64       `bun:"id,pk,autoincrement" json:"id"`
	OrderID   string      `bun:"order_id,notnull" json:"order_id"`
	Status    OrderStatus `bun:"status,notnull" json:"status"`
	Label     string      `bun:"label,notnull" json:"label"`
	CreatedAt time.Time   `bun:"created_at,notnull" json:"created_at"`
}

// TrackingSnapshot is the full tracking state as returned by the read
// endpoint and emitted by the live stream. Every emission is complete:
// current status, all four timestamps (null where not reached) and the
// entire event list in ascending order.
type TrackingSnapshot struct {
	OrderID     string       `json:"order_id"`
	Status      OrderStatus  `json:"status"`
	PlacedAt    time.Time    `json:"placed_at"`
	PreparingAt *time.Time   `json:"preparing_at"`
	ReadyAt     *time.Time   `json:"ready_at"`
	PickedUpAt  *time.Time   `json:"picked_up_at"`
	Events      []OrderEvent `json:"events"`
}

// StatusChangeEvent is the payload published to Kafka on every
// successful transition.
type StatusChangeEvent struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	Timestamp time.Time   `json:"timestamp"`
}
