package memory

import (
	"context"
	"sync"

	"github.com/orderflow/settlement/internal/webhook/domain"
)

// Dedup is a bounded, insertion-ordered set of provider event IDs: a ring
// buffer of IDs plus a membership map, both guarded by one mutex so
// check-and-insert is a single atomic step. When the ring wraps, the oldest
// ID is evicted first. Eviction of a genuinely old ID means its redelivery
// is treated as new; the order status guard keeps that harmless.
type Dedup struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	ring  []string
	next  int
	count int
}

func NewDedup(capacity int) *Dedup {
	if capacity <= 0 {
		capacity = 1
	}
	return &Dedup{
		seen: make(map[string]struct{}, capacity),
		ring: make([]string, capacity),
	}
}

func (d *Dedup) FirstSeen(ctx context.Context, ev domain.Event) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[ev.ProviderEventID]; ok {
		return false, nil
	}

	if d.count == len(d.ring) {
		delete(d.seen, d.ring[d.next])
	} else {
		d.count++
	}
	d.ring[d.next] = ev.ProviderEventID
	d.next = (d.next + 1) % len(d.ring)
	d.seen[ev.ProviderEventID] = struct{}{}
	return true, nil
}

func (d *Dedup) Forget(ctx context.Context, providerEventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// The ring slot keeps the stale ID until it cycles out; membership is
	// what FirstSeen consults, so dropping it here is enough.
	delete(d.seen, providerEventID)
	return nil
}

// Len reports how many IDs are currently deduplicated.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
