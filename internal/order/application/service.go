package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/settlement/internal/order/domain"
	"github.com/orderflow/settlement/pkg/tracing"
)

// Service drives the order lifecycle. All status moves funnel through the
// repository's guarded conditional writes, so concurrent webhooks, timeout
// sweeps and checkout steps race safely: exactly one wins, the rest see a
// guard miss.
type Service struct {
	log     *slog.Logger
	repo    OrderRepository
	stock   Reserver
	intents IntentOpener
}

func NewService(log *slog.Logger, repo OrderRepository, stock Reserver, intents IntentOpener) *Service {
	return &Service{log: log, repo: repo, stock: stock, intents: intents}
}

// CreateOrder runs the checkout path: persist a pending order, reserve stock
// all-or-nothing, open the provider intent, and move to awaiting_payment.
// The intent call deliberately happens after the reserved transition commits;
// no lock or transaction spans the provider round trip.
func (s *Service) CreateOrder(ctx context.Context, items []domain.LineItem, currency string) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, fmt.Errorf("order has no line items")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("product %s: quantity must be positive", item.ProductID)
		}
	}

	o := domain.NewOrder(uuid.NewString(), currency, items)
	if err := s.repo.Create(ctx, o); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	res, err := s.stock.Reserve(ctx, o.ID, o.Items)
	if err != nil {
		// Infrastructure fault: the coordinator already rolled the ledger
		// back, the order stays pending and the caller may retry.
		return domain.Order{}, fmt.Errorf("reserve stock: %w", err)
	}
	if !res.Reserved {
		if _, err := s.transition(ctx, o.ID, domain.StatusPending, domain.StatusCancelled, o); err != nil {
			s.log.Error("cancel after failed reservation", "order_id", o.ID, "err", err)
		}
		return domain.Order{}, &domain.InsufficientStockError{Items: res.Insufficient}
	}

	if _, err := s.transition(ctx, o.ID, domain.StatusPending, domain.StatusReserved, o); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.StatusReserved

	intent, err := s.intents.Open(ctx, o.ID, o.TotalCents, o.Currency)
	if err != nil {
		// An order must never sit reserved holding stock without a payment
		// intent. Same path as a payment failure.
		s.releaseStock(ctx, o)
		if _, ferr := s.transition(ctx, o.ID, domain.StatusReserved, domain.StatusFailed, o); ferr != nil {
			s.log.Error("fail after intent error", "order_id", o.ID, "err", ferr)
		}
		return domain.Order{}, fmt.Errorf("open payment intent: %w", err)
	}

	event := s.eventPayload(o.ID, domain.StatusAwaitingPayment, domain.StatusReserved, o)
	applied, err := s.repo.AttachPaymentIntent(ctx, o.ID, intent.ID, intent.ClientSecret, event, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Order{}, fmt.Errorf("attach payment intent: %w", err)
	}
	if !applied {
		// Guard miss means the order already carries an intent; return what
		// is persisted rather than the one we just opened.
		return s.repo.Get(ctx, o.ID)
	}

	o.Status = domain.StatusAwaitingPayment
	o.PaymentIntentID = intent.ID
	o.ClientSecret = intent.ClientSecret
	s.log.Info("order awaiting payment", "order_id", o.ID, "intent_id", intent.ID)
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// MarkPaid applies the provider's success outcome: awaiting_payment -> paid.
func (s *Service) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	applied, err := s.transitionLenient(ctx, orderID, domain.StatusAwaitingPayment, domain.StatusPaid, o)
	if applied {
		s.log.Info("order paid", "order_id", orderID)
	}
	return applied, err
}

// FailPayment applies a failure or timeout outcome: awaiting_payment ->
// failed, then returns the order's stock to the ledger. Safe to race with a
// success webhook; only one caller's guard matches.
func (s *Service) FailPayment(ctx context.Context, orderID, reason string) (bool, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	applied, err := s.transitionLenient(ctx, orderID, domain.StatusAwaitingPayment, domain.StatusFailed, o)
	if err != nil {
		return false, err
	}
	if applied {
		s.log.Info("order failed", "order_id", orderID, "reason", reason)
		s.releaseStock(ctx, o)
	}
	return applied, nil
}

// BeginFulfillment and CompleteFulfillment are guard-only transitions driven
// by external fulfillment collaborators.
func (s *Service) BeginFulfillment(ctx context.Context, orderID string) (bool, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	return s.transitionLenient(ctx, orderID, domain.StatusPaid, domain.StatusFulfilling, o)
}

func (s *Service) CompleteFulfillment(ctx context.Context, orderID string) (bool, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	return s.transitionLenient(ctx, orderID, domain.StatusFulfilling, domain.StatusCompleted, o)
}

// releaseStock returns an order's line items to the ledger at most once. The
// released flag is flipped with a conditional write, so a concurrent second
// caller sees a guard miss and does nothing.
func (s *Service) releaseStock(ctx context.Context, o domain.Order) {
	applied, err := s.repo.MarkStockReleased(ctx, o.ID)
	if err != nil {
		s.log.Error("mark stock released", "order_id", o.ID, "err", err)
		return
	}
	if !applied {
		return
	}
	if err := s.stock.Release(ctx, o.ID, o.Items); err != nil {
		s.log.Error("release stock", "order_id", o.ID, "err", err)
	}
}

// transition applies a guarded status move and treats a guard miss as an
// InvalidTransitionError.
func (s *Service) transition(ctx context.Context, id string, from, to domain.Status, o domain.Order) (bool, error) {
	applied, err := s.transitionLenient(ctx, id, from, to, o)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, &domain.InvalidTransitionError{OrderID: id, From: from, To: to}
	}
	return true, nil
}

// transitionLenient applies a guarded status move; a guard miss is reported
// as (false, nil) for callers that tolerate losing the race.
func (s *Service) transitionLenient(ctx context.Context, id string, from, to domain.Status, o domain.Order) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, &domain.InvalidTransitionError{OrderID: id, From: from, To: to}
	}
	event := s.eventPayload(id, to, from, o)
	applied, err := s.repo.TransitionStatus(ctx, id, from, to, event, tracing.Traceparent(ctx))
	if err != nil {
		return false, fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
	return applied, nil
}

func (s *Service) eventPayload(id string, to, from domain.Status, o domain.Order) []byte {
	payload, err := json.Marshal(domain.StateChanged{
		OrderID:    id,
		Status:     to,
		Previous:   from,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("marshal state change", "order_id", id, "err", err)
	}
	return payload
}
