package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/orderflow/settlement/internal/inventory/infrastructure/memory"
	"github.com/orderflow/settlement/internal/order/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCoordinator_Reserve_AllItems(t *testing.T) {
	ledger := memory.NewLedger()
	ledger.SetStock("a", 10)
	ledger.SetStock("b", 5)
	c := NewCoordinator(testLogger(), ledger)

	res, err := c.Reserve(context.Background(), "o1", []domain.LineItem{
		{ProductID: "b", Quantity: 2},
		{ProductID: "a", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Reserved {
		t.Fatal("expected reservation to succeed")
	}

	if avail, _ := ledger.Available(context.Background(), "a"); avail != 7 {
		t.Errorf("product a: expected 7, got %d", avail)
	}
	if avail, _ := ledger.Available(context.Background(), "b"); avail != 3 {
		t.Errorf("product b: expected 3, got %d", avail)
	}
}

// All-or-nothing: when the second item fails, the first item's stock is
// fully restored.
func TestCoordinator_Reserve_RollbackOnPartialFailure(t *testing.T) {
	ledger := memory.NewLedger()
	ledger.SetStock("a", 10)
	ledger.SetStock("b", 1)
	c := NewCoordinator(testLogger(), ledger)

	res, err := c.Reserve(context.Background(), "o1", []domain.LineItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reserved {
		t.Fatal("expected reservation to fail")
	}
	if len(res.Insufficient) != 1 {
		t.Fatalf("expected 1 insufficient item, got %d", len(res.Insufficient))
	}
	short := res.Insufficient[0]
	if short.ProductID != "b" || short.Requested != 5 || short.Available != 1 {
		t.Errorf("unexpected shortfall report: %+v", short)
	}

	if avail, _ := ledger.Available(context.Background(), "a"); avail != 10 {
		t.Errorf("product a must be restored to 10, got %d", avail)
	}
	if avail, _ := ledger.Available(context.Background(), "b"); avail != 1 {
		t.Errorf("product b must stay at 1, got %d", avail)
	}
}

func TestCoordinator_Reserve_InfrastructureError(t *testing.T) {
	ledger := memory.NewLedger()
	ledger.SetStock("a", 10)
	c := NewCoordinator(testLogger(), ledger)

	infra := errors.New("storage timeout")
	ledger.FailWith(infra)

	_, err := c.Reserve(context.Background(), "o1", []domain.LineItem{{ProductID: "a", Quantity: 1}})
	if !errors.Is(err, infra) {
		t.Fatalf("infrastructure failure must surface as an error, got: %v", err)
	}
}

func TestCoordinator_Release(t *testing.T) {
	ledger := memory.NewLedger()
	ledger.SetStock("a", 10)
	c := NewCoordinator(testLogger(), ledger)

	items := []domain.LineItem{{ProductID: "a", Quantity: 4}}
	if _, err := c.Reserve(context.Background(), "o1", items); err != nil {
		t.Fatal(err)
	}
	if err := c.Release(context.Background(), "o1", items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avail, _ := ledger.Available(context.Background(), "a"); avail != 10 {
		t.Errorf("expected 10 after release, got %d", avail)
	}
}

// Stock 1, two concurrent single-unit reservations: exactly one wins, final
// stock is 0.
func TestCoordinator_Reserve_ContentionLastUnit(t *testing.T) {
	ledger := memory.NewLedger()
	ledger.SetStock("a", 1)
	c := NewCoordinator(testLogger(), ledger)

	var wg sync.WaitGroup
	outcomes := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			res, err := c.Reserve(context.Background(), orderID, []domain.LineItem{{ProductID: "a", Quantity: 1}})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			outcomes <- res.Reserved
		}(string(rune('x' + i)))
	}
	wg.Wait()
	close(outcomes)

	wins := 0
	for ok := range outcomes {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if avail, _ := ledger.Available(context.Background(), "a"); avail != 0 {
		t.Errorf("expected 0 remaining, got %d", avail)
	}
}
