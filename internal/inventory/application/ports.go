package application

import "context"

// StockLedger is the single write path to product availability.
//
// TryDecrement atomically takes qty units iff at least that many are
// available; (false, nil) is the normal insufficient-stock outcome, while a
// non-nil error always means infrastructure failure and is retryable.
// Implementations must perform the check and the decrement as one conditional
// write, never as separate read and write round trips.
type StockLedger interface {
	TryDecrement(ctx context.Context, productID string, qty int) (bool, error)
	Increment(ctx context.Context, productID string, qty int) error
	Available(ctx context.Context, productID string) (int, error)
}
