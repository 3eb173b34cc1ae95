package models

import (
	"time"

	"github.com/uptrace/bun"
)

type DrinkSize string

const (
	SizeSmall  DrinkSize = "SMALL"
	SizeMedium DrinkSize = "MEDIUM"
	SizeLarge  DrinkSize = "LARGE"
)

func (s DrinkSize) IsValid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

type MilkType string

const (
	MilkWhole MilkType = "WHOLE"
	MilkSkim  MilkType = "SKIM"
	MilkOat   MilkType = "OAT"
	MilkSoy   MilkType = "SOY"
	MilkNone  MilkType = "NONE"
)

func (m MilkType) IsValid() bool {
	switch m {
	case MilkWhole, MilkSkim, MilkOat, MilkSoy, MilkNone:
		return true
	}
	return false
}

// Order is one purchase transaction. It owns its cart items and exactly
// one tracking record, both created in the same transaction.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID       string    `bun:"order_id,pk" json:"order_id"`
	Paid          bool      `bun:"paid" json:"paid"`
	CustomerName  string    `bun:"customer_name,notnull" json:"customer_name"`
	CustomerEmail string    `bun:"customer_email,notnull" json:"customer_email"`
	CustomerPhone string    `bun:"customer_phone,nullzero" json:"customer_phone,omitempty"`
	PickupName    string    `bun:"pickup_name,notnull" json:"pickup_name"`
	PickupCode    string    `bun:"pickup_code,notnull" json:"pickup_code"`
	Total         float64   `bun:"total,notnull" json:"total"`
	LoyaltyPoints *int      `bun:"loyalty_points,nullzero" json:"loyalty_points"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// CartItem is one ordered line. The customization fields are a
// point-in-time snapshot; the unit price is captured at creation from
// the menu item's base price plus the modifier tables and the row is
// never updated afterwards.
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	OrderID    string    `bun:"order_id,notnull" json:"order_id"`
	MenuItemID string    `bun:"menu_item_id,notnull" json:"menu_item_id"`
	Size       DrinkSize `bun:"size,notnull" json:"size"`
	Quantity   int       `bun:"quantity,notnull" json:"quantity"`
	Milk       MilkType  `bun:"milk,notnull" json:"milk"`
	SugarLevel int       `bun:"sugar_level,notnull" json:"sugar_level"`
	Shots      int       `bun:"shots,notnull" json:"shots"`
	UnitPrice  float64   `bun:"unit_price,notnull" json:"unit_price"`
}

type CartItemRequest struct {
	MenuItemID string    `json:"menu_item_id"`
	Size       DrinkSize `json:"size"`
	Quantity   int       `json:"quantity"`
	Milk       MilkType  `json:"milk"`
	SugarLevel int       `json:"sugar_level"`
	Shots      int       `json:"shots"`
}

type OrderRequest struct {
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
	PickupName    string            `json:"pickup_name"`
	Items         []CartItemRequest `json:"items"`
}

type OrderResponse struct {
	OrderID    string      `json:"order_id"`
	Status     OrderStatus `json:"status"`
	Total      float64     `json:"total"`
	PickupName string      `json:"pickup_name"`
	CreatedAt  time.Time   `json:"created_at"`
}

// OrderWithItems is the shape returned by the order read endpoint.
type OrderWithItems struct {
	Order Order      `json:"order"`
	Items []CartItem `json:"items"`
}
