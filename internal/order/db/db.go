package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"brewhub/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateOrderWithItems inserts the order, its cart items and its
// tracking record as one transaction. An order is never observable
// without its tracking record.
func (d *DB) CreateOrderWithItems(ctx context.Context, order models.Order, items []models.CartItem, trackingRecord models.OrderTracking) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&trackingRecord).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}

// GetOrderByID fetches one order by its ID.
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetCartItemsByOrder fetches all line items for an order in insertion
// order.
func (d *DB) GetCartItemsByOrder(ctx context.Context, orderID string) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := d.Bun.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetMenuItem fetches one menu item by its ID.
func (d *DB) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := d.Bun.NewSelect().
		Model(&item).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
