package models

import (
	"github.com/uptrace/bun"
)

// MenuItem is one drink on the menu. Only the base price lives here;
// the final line price is base price plus the modifier tables below.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID        string  `bun:"id,pk" json:"id"`
	Name      string  `bun:"name,notnull" json:"name"`
	BasePrice float64 `bun:"base_price,notnull" json:"base_price"`
	Available bool    `bun:"available" json:"available"`
}

// Modifier tables. Cart items snapshot the computed price at creation,
// so changing these only affects new orders.
var sizeSurcharge = map[DrinkSize]float64{
	SizeSmall:  0.0,
	SizeMedium: 0.50,
	SizeLarge:  1.00,
}

var milkSurcharge = map[MilkType]float64{
	MilkWhole: 0.0,
	MilkSkim:  0.0,
	MilkOat:   0.70,
	MilkSoy:   0.60,
	MilkNone:  0.0,
}

// extraShotPrice is charged per espresso shot beyond the first.
const extraShotPrice = 0.80

// UnitPrice computes the price of one drink with the given
// customization applied to this menu item.
func (m *MenuItem) UnitPrice(size DrinkSize, milk MilkType, shots int) float64 {
	price := m.BasePrice + sizeSurcharge[size] + milkSurcharge[milk]
	if shots > 1 {
		price += float64(shots-1) * extraShotPrice
	}
	return price
}
