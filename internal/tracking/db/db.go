package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"

	"brewhub/internal/models"
	"brewhub/internal/tracking"
)

type DB struct {
	Bun *bun.DB
}

// GetTracking fetches the tracking record for one order.
func (d *DB) GetTracking(ctx context.Context, orderID string) (*models.OrderTracking, error) {
	var t models.OrderTracking
	err := d.Bun.NewSelect().
		Model(&t).
		Where("order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetEvents fetches an order's event log, oldest first.
func (d *DB) GetEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	events := []models.OrderEvent{}
	err := d.Bun.NewSelect().
		Model(&events).
		Where("order_id = ?", orderID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// timestampColumn maps a status to the column written when it is
// entered. placed_at is written at order creation, never here.
func timestampColumn(s models.OrderStatus) string {
	switch s {
	case models.StatusPreparing:
		return "preparing_at"
	case models.StatusReady:
		return "ready_at"
	default:
		return "picked_up_at"
	}
}

// ApplyTransition performs one forward transition as a single
// transaction: a conditional status update guarded by the expected
// current status, the event append, and (for the webhook path) the
// order's paid flag. Zero rows matched by the guard means a concurrent
// advance got there first; nothing is written and ErrConflict is
// returned.
func (d *DB) ApplyTransition(ctx context.Context, orderID string, from, to models.OrderStatus, at time.Time, markPaid bool) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.OrderTracking)(nil)).
			Set("status = ?", to).
			Set("? = ?", bun.Ident(timestampColumn(to)), at).
			Where("order_id = ?", orderID).
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return tracking.ErrConflict
		}

		event := models.OrderEvent{
			OrderID:   orderID,
			Status:    to,
			Label:     to.EventLabel(),
			CreatedAt: at,
		}
		if _, err := tx.NewInsert().Model(&event).Exec(ctx); err != nil {
			return err
		}

		if markPaid {
			_, err = tx.NewUpdate().
				Model((*models.Order)(nil)).
				Set("paid = ?", true).
				Where("order_id = ?", orderID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}

		return nil
	})
}
