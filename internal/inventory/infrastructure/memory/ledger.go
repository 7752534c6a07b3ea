package memory

import (
	"context"
	"sync"

	"github.com/orderflow/settlement/internal/inventory/domain"
)

// Ledger is the in-process stock ledger. The mutex makes each conditional
// decrement a single linearized operation, the same guarantee the postgres
// ledger gets from a conditional UPDATE.
type Ledger struct {
	mu    sync.Mutex
	stock map[string]int
	fail  error
}

func NewLedger() *Ledger {
	return &Ledger{stock: make(map[string]int)}
}

// SetStock seeds or replaces a product's availability.
func (l *Ledger) SetStock(productID string, qty int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[productID] = qty
}

// FailWith makes every subsequent call return err, simulating storage loss.
func (l *Ledger) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

func (l *Ledger) TryDecrement(ctx context.Context, productID string, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return false, l.fail
	}
	avail, ok := l.stock[productID]
	if !ok || avail < qty {
		return false, nil
	}
	l.stock[productID] = avail - qty
	return true, nil
}

func (l *Ledger) Increment(ctx context.Context, productID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}
	if _, ok := l.stock[productID]; !ok {
		return domain.ErrProductNotFound
	}
	l.stock[productID] += qty
	return nil
}

func (l *Ledger) Available(ctx context.Context, productID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return 0, l.fail
	}
	avail, ok := l.stock[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	return avail, nil
}
