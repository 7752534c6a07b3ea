package memory

import (
	"context"
	"sync"
	"time"

	"github.com/orderflow/settlement/internal/order/domain"
	"github.com/orderflow/settlement/pkg/outbox"
)

// Repository is the in-process order store. Guarded writes hold the mutex
// across check and mutate, giving the same linearization the postgres
// repository gets from conditional UPDATEs. Event payloads that would go to
// the outbox table are collected for inspection by tests.
type Repository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	events []outbox.Record
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to domain.Status, event []byte, traceparent string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}

	now := time.Now().UTC()
	o.Status = to
	o.UpdatedAt = now
	switch to {
	case domain.StatusReserved:
		o.ReservedAt = &now
	case domain.StatusPaid:
		o.PaidAt = &now
	case domain.StatusCancelled, domain.StatusFailed, domain.StatusCompleted:
		o.TerminatedAt = &now
	}
	r.orders[id] = o
	r.record(id, domain.EventTypeFor(to), event, traceparent)
	return true, nil
}

func (r *Repository) AttachPaymentIntent(ctx context.Context, id, intentID, clientSecret string, event []byte, traceparent string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != domain.StatusReserved || o.PaymentIntentID != "" {
		return false, nil
	}

	o.Status = domain.StatusAwaitingPayment
	o.PaymentIntentID = intentID
	o.ClientSecret = clientSecret
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	r.record(id, domain.EventTypeFor(domain.StatusAwaitingPayment), event, traceparent)
	return true, nil
}

func (r *Repository) MarkStockReleased(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.StockReleased {
		return false, nil
	}
	o.StockReleased = true
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return true, nil
}

func (r *Repository) ListAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusAwaitingPayment && o.UpdatedAt.Before(cutoff) {
			out = append(out, o)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *Repository) record(id, eventType string, payload []byte, traceparent string) {
	r.events = append(r.events, outbox.Record{
		ID:            int64(len(r.events) + 1),
		AggregateType: "order",
		AggregateID:   id,
		Type:          eventType,
		Payload:       payload,
		Traceparent:   traceparent,
		CreatedAt:     time.Now().UTC(),
		Status:        outbox.StatusPending,
	})
}

// Events returns the state-changed events recorded so far.
func (r *Repository) Events() []outbox.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]outbox.Record, len(r.events))
	copy(out, r.events)
	return out
}
