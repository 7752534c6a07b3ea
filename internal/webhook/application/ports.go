package application

import (
	"context"

	"github.com/orderflow/settlement/internal/webhook/domain"
)

// Dedup remembers recently seen provider event IDs. FirstSeen is an atomic
// check-and-insert: of N concurrent calls with the same ID exactly one
// returns true. Forget removes an ID so a provider retry can be reprocessed
// after a transient failure on our side.
type Dedup interface {
	FirstSeen(ctx context.Context, ev domain.Event) (bool, error)
	Forget(ctx context.Context, providerEventID string) error
}

// OrderTransitions is the slice of the order service the reconciler drives.
// Both calls are guarded by expected-prior-status and report (false, nil)
// when the guard rejects.
type OrderTransitions interface {
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	FailPayment(ctx context.Context, orderID, reason string) (bool, error)
}
