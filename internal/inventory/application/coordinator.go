package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	invdomain "github.com/orderflow/settlement/internal/inventory/domain"
	"github.com/orderflow/settlement/internal/order/domain"
)

// Result is the outcome of one all-or-nothing reservation attempt. When
// Reserved is false, Insufficient lists every line item that could not be
// covered; availability figures are a best-effort snapshot for the buyer.
type Result struct {
	Reserved     bool
	Insufficient []invdomain.InsufficientItem
}

// Coordinator performs multi-item reservations against the stock ledger.
// Items are always attempted in ascending product ID order so concurrent
// multi-item orders contend for products in the same sequence.
type Coordinator struct {
	log    *slog.Logger
	ledger StockLedger
}

func NewCoordinator(log *slog.Logger, ledger StockLedger) *Coordinator {
	return &Coordinator{log: log, ledger: ledger}
}

// Reserve decrements stock for every line item or for none of them. On the
// first item that fails, everything already taken in this attempt is
// incremented back before returning. A non-nil error means an infrastructure
// fault; the ledger is rolled back and the caller may retry.
func (c *Coordinator) Reserve(ctx context.Context, orderID string, items []domain.LineItem) (Result, error) {
	sorted := make([]domain.LineItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	taken := make([]domain.LineItem, 0, len(sorted))
	for i, item := range sorted {
		ok, err := c.ledger.TryDecrement(ctx, item.ProductID, item.Quantity)
		if err != nil {
			c.rollback(ctx, orderID, taken)
			return Result{}, err
		}
		if !ok {
			c.rollback(ctx, orderID, taken)
			return Result{Insufficient: c.shortfall(ctx, sorted[i:])}, nil
		}
		taken = append(taken, item)
	}

	c.log.Info("stock reserved", "order_id", orderID, "items", len(sorted))
	return Result{Reserved: true}, nil
}

// Release returns every line item of an order to the ledger. Idempotence is
// enforced by the caller via the order's stock-released guard; this call
// itself is unconditional.
func (c *Coordinator) Release(ctx context.Context, orderID string, items []domain.LineItem) error {
	var errs []error
	for _, item := range items {
		if err := c.ledger.Increment(ctx, item.ProductID, item.Quantity); err != nil {
			c.log.Error("stock release failed", "order_id", orderID, "product_id", item.ProductID, "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		c.log.Info("stock released", "order_id", orderID, "items", len(items))
	}
	return errors.Join(errs...)
}

func (c *Coordinator) rollback(ctx context.Context, orderID string, taken []domain.LineItem) {
	for _, item := range taken {
		if err := c.ledger.Increment(ctx, item.ProductID, item.Quantity); err != nil {
			// Increment only fails on unknown product or infrastructure loss;
			// nothing more can be done here beyond surfacing it.
			c.log.Error("reservation rollback failed", "order_id", orderID, "product_id", item.ProductID, "err", err)
		}
	}
}

// shortfall reports which of the remaining items cannot be covered right now,
// starting with the one that just failed.
func (c *Coordinator) shortfall(ctx context.Context, remaining []domain.LineItem) []invdomain.InsufficientItem {
	var out []invdomain.InsufficientItem
	for _, item := range remaining {
		avail, err := c.ledger.Available(ctx, item.ProductID)
		if err != nil {
			avail = 0
		}
		if avail < item.Quantity {
			out = append(out, invdomain.InsufficientItem{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: avail,
			})
		}
	}
	return out
}
