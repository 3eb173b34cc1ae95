package tracking

import (
	"context"
	"fmt"
	"time"

	"brewhub/internal/logger"
	"brewhub/internal/models"
)

// SnapshotSource is what the publisher polls. Satisfied by
// TrackingService.
type SnapshotSource interface {
	Snapshot(ctx context.Context, orderID string) (*models.TrackingSnapshot, error)
}

// LiveStatusPublisher gives each open connection its own view of an
// order's tracking state. There is no shared fan-out: every
// subscription runs an independent poll loop against storage, so N
// connections cost N loops. That bounds scalability but keeps the
// delivery path trivial.
type LiveStatusPublisher struct {
	Source   SnapshotSource
	Interval time.Duration
	Logger   *logger.Logger
}

func NewLiveStatusPublisher(source SnapshotSource, interval time.Duration, log *logger.Logger) *LiveStatusPublisher {
	return &LiveStatusPublisher{Source: source, Interval: interval, Logger: log}
}

// Subscribe fetches the current snapshot synchronously (ErrNotFound
// surfaces here, before any stream state exists) and returns a channel
// that carries it immediately, followed by a full fresh snapshot each
// time the status changes. The channel closes after the terminal
// snapshot has been delivered, or when ctx is cancelled.
func (p *LiveStatusPublisher) Subscribe(ctx context.Context, orderID string) (<-chan models.TrackingSnapshot, error) {
	initial, err := p.Source.Snapshot(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ch := make(chan models.TrackingSnapshot, 1)
	ch <- *initial

	if initial.Status.IsTerminal() {
		close(ch)
		return ch, nil
	}

	go p.poll(ctx, orderID, initial.Status, ch)
	return ch, nil
}

func (p *LiveStatusPublisher) poll(ctx context.Context, orderID string, lastEmitted models.OrderStatus, ch chan models.TrackingSnapshot) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	defer close(ch)

	for {
		select {
		case <-ctx.Done():
			p.Logger.LogStream(orderID, "subscriber disconnected, releasing poll loop")
			return

		case <-ticker.C:
			snapshot, err := p.Source.Snapshot(ctx, orderID)
			if err != nil {
				// A failed poll is treated as "no change observed";
				// the next tick retries instead of tearing the
				// stream down.
				p.Logger.LogStream(orderID, fmt.Sprintf("poll failed, retrying next tick: %v", err))
				continue
			}

			if snapshot.Status == lastEmitted {
				continue
			}
			lastEmitted = snapshot.Status

			select {
			case ch <- *snapshot:
			case <-ctx.Done():
				return
			}

			if snapshot.Status.IsTerminal() {
				p.Logger.LogStream(orderID, "terminal status emitted, closing stream")
				return
			}
		}
	}
}
