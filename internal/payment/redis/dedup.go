package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const eventKeyPrefix = "stripe_event:"

// Deduper records webhook event ids in Redis so redelivered events are
// processed exactly once. SetNX is the claim: whoever sets the key
// first owns the delivery.
type Deduper struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{Client: client, TTL: ttl}
}

// FirstDelivery claims an event id. It returns true exactly once per id
// within the TTL window.
func (d *Deduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.Client.SetNX(ctx, eventKeyPrefix+eventID, "1", d.TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
