package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/orderflow/settlement/internal/webhook/domain"
)

func ev(id string) domain.Event {
	return domain.Event{ProviderEventID: id}
}

func TestDedup_FirstSeen(t *testing.T) {
	d := NewDedup(8)

	first, err := d.FirstSeen(context.Background(), ev("e1"))
	if err != nil || !first {
		t.Fatalf("expected first sighting, got first=%v err=%v", first, err)
	}
	first, err = d.FirstSeen(context.Background(), ev("e1"))
	if err != nil || first {
		t.Fatalf("expected duplicate, got first=%v err=%v", first, err)
	}
}

// Oldest-first eviction: once the cap is exceeded the oldest ID is treated
// as new again while recent IDs stay deduplicated.
func TestDedup_BoundedEviction(t *testing.T) {
	d := NewDedup(3)

	for i := 1; i <= 4; i++ {
		if first, _ := d.FirstSeen(context.Background(), ev(fmt.Sprintf("e%d", i))); !first {
			t.Fatalf("e%d should be new", i)
		}
	}
	if d.Len() != 3 {
		t.Fatalf("expected 3 retained IDs, got %d", d.Len())
	}

	// e1 was evicted; its redelivery counts as new.
	if first, _ := d.FirstSeen(context.Background(), ev("e1")); !first {
		t.Error("evicted ID must be treated as new")
	}
	// e3 and e4 are still inside the window.
	if first, _ := d.FirstSeen(context.Background(), ev("e3")); first {
		t.Error("recent ID must stay deduplicated")
	}
	if first, _ := d.FirstSeen(context.Background(), ev("e4")); first {
		t.Error("recent ID must stay deduplicated")
	}
}

func TestDedup_Forget(t *testing.T) {
	d := NewDedup(8)
	_, _ = d.FirstSeen(context.Background(), ev("e1"))
	if err := d.Forget(context.Background(), "e1"); err != nil {
		t.Fatal(err)
	}
	if first, _ := d.FirstSeen(context.Background(), ev("e1")); !first {
		t.Error("forgotten ID must be treated as new")
	}
}

// Concurrent check-and-insert of one ID: exactly one caller wins.
func TestDedup_ConcurrentFirstSeen(t *testing.T) {
	const callers = 32
	d := NewDedup(64)

	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := d.FirstSeen(context.Background(), ev("contested"))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results <- first
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for first := range results {
		if first {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}
