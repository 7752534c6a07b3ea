package application

import (
	"context"
	"time"

	inventory "github.com/orderflow/settlement/internal/inventory/application"
	"github.com/orderflow/settlement/internal/order/domain"
)

// OrderRepository persists orders. TransitionStatus and AttachPaymentIntent
// are conditional writes keyed on the expected prior status: they return
// (false, nil) when the guard does not match, and implementations must make
// check-and-mutate a single atomic operation. When a guarded write applies,
// the event payload is recorded for publication in the same transaction.
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.Status, event []byte, traceparent string) (bool, error)
	AttachPaymentIntent(ctx context.Context, id, intentID, clientSecret string, event []byte, traceparent string) (bool, error)
	MarkStockReleased(ctx context.Context, id string) (bool, error)
	ListAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
}

// Reserver is the reservation coordinator as the order service sees it.
type Reserver interface {
	Reserve(ctx context.Context, orderID string, items []domain.LineItem) (inventory.Result, error)
	Release(ctx context.Context, orderID string, items []domain.LineItem) error
}

// Intent is what the payment provider hands back when an intent opens.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentOpener creates the provider-side payment intent for an order.
type IntentOpener interface {
	Open(ctx context.Context, orderID string, amountCents int64, currency string) (Intent, error)
}
