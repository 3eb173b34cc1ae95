package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brewhub/internal/logger"
	"brewhub/internal/models"
)

type DBLayer interface {
	GetTracking(ctx context.Context, orderID string) (*models.OrderTracking, error)
	GetEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error)
	ApplyTransition(ctx context.Context, orderID string, from, to models.OrderStatus, at time.Time, markPaid bool) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// TrackingService is the single writer of tracking state. Every
// successful transition writes the status, its timestamp and exactly
// one event row atomically; readers never observe one without the
// other.
type TrackingService struct {
	DB          DBLayer
	Kafka       KafkaPublisher
	StatusTopic string
	Logger      *logger.Logger
}

func NewTrackingService(db DBLayer, kafka KafkaPublisher, statusTopic string, log *logger.Logger) *TrackingService {
	return &TrackingService{DB: db, Kafka: kafka, StatusTopic: statusTopic, Logger: log}
}

// Advance moves an order's tracking record to its single legal next
// status on behalf of a staff caller. The role gate runs before any
// lookup; a terminal record fails with ErrNotAdvanceable and performs
// no writes.
func (s *TrackingService) Advance(ctx context.Context, orderID string, role models.Role) (*models.TrackingSnapshot, error) {
	if !role.CanAdvanceTracking() {
		return nil, ErrForbidden
	}

	t, err := s.DB.GetTracking(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load tracking record: %w", err)
	}

	next, ok := t.Status.Next()
	if !ok {
		return nil, ErrNotAdvanceable
	}

	now := time.Now().UTC()
	if err := s.DB.ApplyTransition(ctx, orderID, t.Status, next, now, false); err != nil {
		return nil, err
	}

	s.Logger.LogTracking(orderID, string(t.Status), string(next))
	s.publishStatusChange(orderID, next, string(role), now)

	return s.Snapshot(ctx, orderID)
}

// MarkPaid is the webhook-driven initial transition: it marks the order
// paid and advances PLACED to PREPARING through the same conditional
// write as staff advances, with a system-initiated event. Redelivered
// webhooks find the record already past PLACED and are a no-op.
func (s *TrackingService) MarkPaid(ctx context.Context, orderID string) error {
	t, err := s.DB.GetTracking(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load tracking record: %w", err)
	}

	if t.Status != models.StatusPlaced {
		s.Logger.Info("TRACKING", fmt.Sprintf("MarkPaid: order %s already at %s, nothing to do", orderID, t.Status))
		return nil
	}

	now := time.Now().UTC()
	err = s.DB.ApplyTransition(ctx, orderID, models.StatusPlaced, models.StatusPreparing, now, true)
	if errors.Is(err, ErrConflict) {
		// Raced with another delivery of the same webhook; the
		// transition already happened.
		return nil
	}
	if err != nil {
		return err
	}

	s.Logger.LogTracking(orderID, string(models.StatusPlaced), string(models.StatusPreparing))
	s.publishStatusChange(orderID, models.StatusPreparing, "system", now)

	return nil
}

// Snapshot returns the full tracking state: current status, all four
// timestamps and the complete event list in ascending order. The read
// endpoint and the live stream both emit exactly this shape.
func (s *TrackingService) Snapshot(ctx context.Context, orderID string) (*models.TrackingSnapshot, error) {
	t, err := s.DB.GetTracking(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load tracking record: %w", err)
	}

	events, err := s.DB.GetEvents(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event log: %w", err)
	}

	return &models.TrackingSnapshot{
		OrderID:     t.OrderID,
		Status:      t.Status,
		PlacedAt:    t.PlacedAt,
		PreparingAt: t.PreparingAt,
		ReadyAt:     t.ReadyAt,
		PickedUpAt:  t.PickedUpAt,
		Events:      events,
	}, nil
}

func (s *TrackingService) publishStatusChange(orderID string, status models.OrderStatus, changedBy string, at time.Time) {
	if s.Kafka == nil {
		return
	}

	event := models.StatusChangeEvent{
		OrderID:   orderID,
		Status:    status,
		ChangedBy: changedBy,
		Timestamp: at,
	}

	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to marshal status change for order %s: %v", orderID, err))
		return
	}

	if err := s.Kafka.Publish(s.StatusTopic, orderID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish status change for order %s: %v", orderID, err))
	}
}
