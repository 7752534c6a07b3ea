package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/settlement/internal/inventory/domain"
)

// Ledger backs the stock ledger with postgres. Every decrement is a single
// conditional UPDATE so concurrent callers for the same product are
// serialized by the row lock, never by a read-then-write pair.
type Ledger struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewLedger(log *slog.Logger, pool *pgxpool.Pool) *Ledger {
	return &Ledger{log: log, pool: pool}
}

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS product_stock (
		product_id TEXT PRIMARY KEY,
		available  INTEGER NOT NULL CHECK (available >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (l *Ledger) TryDecrement(ctx context.Context, productID string, qty int) (bool, error) {
	ct, err := l.pool.Exec(ctx, `
		UPDATE product_stock
		SET available = available - $2, updated_at = now()
		WHERE product_id = $1 AND available >= $2`,
		productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (l *Ledger) Increment(ctx context.Context, productID string, qty int) error {
	ct, err := l.pool.Exec(ctx, `
		UPDATE product_stock
		SET available = available + $2, updated_at = now()
		WHERE product_id = $1`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (l *Ledger) Available(ctx context.Context, productID string) (int, error) {
	var avail int
	err := l.pool.QueryRow(ctx,
		`SELECT available FROM product_stock WHERE product_id = $1`, productID).
		Scan(&avail)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return avail, nil
}

// UpsertStock is the catalog-facing seed path; settlement itself never calls
// it outside of provisioning.
func (l *Ledger) UpsertStock(ctx context.Context, productID string, qty int) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO product_stock (product_id, available)
		VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET available = $2, updated_at = now()`,
		productID, qty)
	return err
}
