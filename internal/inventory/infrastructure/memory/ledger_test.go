package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/orderflow/settlement/internal/inventory/domain"
)

func TestLedger_TryDecrement(t *testing.T) {
	l := NewLedger()
	l.SetStock("p1", 5)

	ok, err := l.TryDecrement(context.Background(), "p1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected decrement to succeed")
	}

	avail, _ := l.Available(context.Background(), "p1")
	if avail != 2 {
		t.Errorf("expected 2 available, got %d", avail)
	}
}

func TestLedger_TryDecrement_Insufficient(t *testing.T) {
	l := NewLedger()
	l.SetStock("p1", 2)

	ok, err := l.TryDecrement(context.Background(), "p1", 3)
	if err != nil {
		t.Fatalf("insufficient stock must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("expected decrement to fail")
	}

	avail, _ := l.Available(context.Background(), "p1")
	if avail != 2 {
		t.Errorf("failed decrement must not change stock, got %d", avail)
	}
}

func TestLedger_Increment_UnknownProduct(t *testing.T) {
	l := NewLedger()
	err := l.Increment(context.Background(), "ghost", 1)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestLedger_FailWith(t *testing.T) {
	l := NewLedger()
	l.SetStock("p1", 5)
	infra := errors.New("connection reset")
	l.FailWith(infra)

	if _, err := l.TryDecrement(context.Background(), "p1", 1); !errors.Is(err, infra) {
		t.Fatalf("expected injected error, got: %v", err)
	}
}

// No oversell: with stock S and N > S concurrent single-unit decrements,
// exactly S succeed and availability never goes negative.
func TestLedger_ConcurrentDecrements_NoOversell(t *testing.T) {
	const stock = 7
	const callers = 50

	l := NewLedger()
	l.SetStock("p1", stock)

	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryDecrement(context.Background(), "p1", 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != stock {
		t.Errorf("expected exactly %d successful decrements, got %d", stock, wins)
	}
	avail, _ := l.Available(context.Background(), "p1")
	if avail != 0 {
		t.Errorf("expected 0 remaining, got %d", avail)
	}
}
