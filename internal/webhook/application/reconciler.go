package application

import (
	"context"
	"errors"
	"log/slog"

	orderdomain "github.com/orderflow/settlement/internal/order/domain"
	"github.com/orderflow/settlement/internal/webhook/domain"
)

// Reconciler turns possibly-duplicated provider deliveries into at-most-once
// order transitions. Dedup decides which delivery of an event runs side
// effects; the order status guard decides whether a logically stale event
// still applies. Out-of-order deliveries for one order are therefore safe
// without any ordering logic here.
type Reconciler struct {
	log    *slog.Logger
	dedup  Dedup
	orders OrderTransitions
}

func NewReconciler(log *slog.Logger, dedup Dedup, orders OrderTransitions) *Reconciler {
	return &Reconciler{log: log, dedup: dedup, orders: orders}
}

// Handle processes one delivery. A non-nil error means the event was NOT
// durably recorded and the provider must retry; every other case is an
// acknowledgeable outcome.
func (r *Reconciler) Handle(ctx context.Context, ev domain.Event) (domain.Outcome, error) {
	first, err := r.dedup.FirstSeen(ctx, ev)
	if err != nil {
		return "", err
	}
	if !first {
		r.log.Info("duplicate webhook", "event_id", ev.ProviderEventID, "order_id", ev.OrderID)
		return domain.OutcomeDuplicate, nil
	}

	var applied bool
	switch ev.Type {
	case domain.EventPaymentSucceeded:
		applied, err = r.orders.MarkPaid(ctx, ev.OrderID)
	case domain.EventPaymentFailed:
		applied, err = r.orders.FailPayment(ctx, ev.OrderID, "provider reported failure")
	default:
		r.log.Info("ignoring webhook type", "event_id", ev.ProviderEventID, "type", ev.Type)
		return domain.OutcomeIgnored, nil
	}

	if errors.Is(err, orderdomain.ErrNotFound) {
		r.log.Warn("webhook for unknown order", "event_id", ev.ProviderEventID, "order_id", ev.OrderID)
		return domain.OutcomeOrderNotFound, nil
	}
	if err != nil {
		// The transition did not run; drop the dedup entry so the provider's
		// retry is not swallowed as a duplicate.
		if ferr := r.dedup.Forget(ctx, ev.ProviderEventID); ferr != nil {
			r.log.Error("dedup forget failed", "event_id", ev.ProviderEventID, "err", ferr)
		}
		return "", err
	}
	if !applied {
		// Status guard rejected: the order already moved on, e.g. a stale
		// failure arriving after the order was paid.
		r.log.Info("webhook rejected by status guard", "event_id", ev.ProviderEventID, "order_id", ev.OrderID, "type", ev.Type)
		return domain.OutcomeOrderNotFound, nil
	}

	r.log.Info("webhook applied", "event_id", ev.ProviderEventID, "order_id", ev.OrderID, "type", ev.Type)
	return domain.OutcomeApplied, nil
}
