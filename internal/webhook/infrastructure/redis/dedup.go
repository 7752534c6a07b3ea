package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orderflow/settlement/internal/webhook/domain"
)

// Dedup records provider event IDs with SETNX, so check-and-insert is atomic
// on the redis side and shared across service replicas. The TTL plays the
// role of the bounded retention window: provider retries arrive within
// minutes, far inside any sensible TTL.
type Dedup struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDedup(rdb *redis.Client, ttl time.Duration) *Dedup {
	return &Dedup{rdb: rdb, ttl: ttl}
}

func (d *Dedup) key(eventID string) string {
	return "webhook:evt:" + eventID
}

func (d *Dedup) FirstSeen(ctx context.Context, ev domain.Event) (bool, error) {
	return d.rdb.SetNX(ctx, d.key(ev.ProviderEventID), "1", d.ttl).Result()
}

func (d *Dedup) Forget(ctx context.Context, providerEventID string) error {
	return d.rdb.Del(ctx, d.key(providerEventID)).Err()
}
