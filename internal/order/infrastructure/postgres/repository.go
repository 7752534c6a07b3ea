package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/settlement/internal/order/domain"
)

// Repository persists orders in postgres. Guarded writes are single
// conditional UPDATEs keyed on the expected prior status; the outbox row for
// the resulting state-changed event commits in the same transaction.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS orders (
		id                TEXT PRIMARY KEY,
		status            TEXT NOT NULL,
		total_cents       BIGINT NOT NULL,
		currency          TEXT NOT NULL,
		payment_intent_id TEXT,
		client_secret     TEXT,
		stock_released    BOOLEAN NOT NULL DEFAULT false,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL,
		reserved_at       TIMESTAMPTZ,
		paid_at           TIMESTAMPTZ,
		terminated_at     TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS order_items (
		order_id         TEXT NOT NULL REFERENCES orders(id),
		product_id       TEXT NOT NULL,
		quantity         INTEGER NOT NULL,
		unit_price_cents BIGINT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	);
	CREATE INDEX IF NOT EXISTS idx_orders_status_updated ON orders (status, updated_at);
	CREATE TABLE IF NOT EXISTS outbox (
		id          BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		type        TEXT NOT NULL,
		payload     BYTEA,
		traceparent TEXT,
		status      TEXT NOT NULL DEFAULT 'pending',
		relay_id    TEXT,
		lease_until TIMESTAMPTZ,
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_error  TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, status, total_cents, currency, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.Status, o.TotalCents, o.Currency, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPriceCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, status, total_cents, currency,
		       COALESCE(payment_intent_id, ''), COALESCE(client_secret, ''),
		       stock_released, created_at, updated_at, reserved_at, paid_at, terminated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.Status, &o.TotalCents, &o.Currency,
			&o.PaymentIntentID, &o.ClientSecret,
			&o.StockReleased, &o.CreatedAt, &o.UpdatedAt, &o.ReservedAt, &o.PaidAt, &o.TerminatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, quantity, unit_price_cents
		FROM order_items WHERE order_id = $1
		ORDER BY product_id`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to domain.Status, event []byte, traceparent string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3,
		    updated_at = now(),
		    reserved_at   = CASE WHEN $3 = 'reserved' THEN now() ELSE reserved_at END,
		    paid_at       = CASE WHEN $3 = 'paid' THEN now() ELSE paid_at END,
		    terminated_at = CASE WHEN $3 IN ('cancelled','failed','completed') THEN now() ELSE terminated_at END
		WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, r.checkExists(ctx, id)
	}

	if err := enqueueEvent(ctx, tx, id, domain.EventTypeFor(to), event, traceparent); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *Repository) AttachPaymentIntent(ctx context.Context, id, intentID, clientSecret string, event []byte, traceparent string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = 'awaiting_payment', payment_intent_id = $2, client_secret = $3, updated_at = now()
		WHERE id = $1 AND status = 'reserved' AND payment_intent_id IS NULL`,
		id, intentID, clientSecret)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, r.checkExists(ctx, id)
	}

	if err := enqueueEvent(ctx, tx, id, domain.EventTypeFor(domain.StatusAwaitingPayment), event, traceparent); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *Repository) MarkStockReleased(ctx context.Context, id string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders SET stock_released = true, updated_at = now()
		WHERE id = $1 AND stock_released = false`, id)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, r.checkExists(ctx, id)
	}
	return true, nil
}

func (r *Repository) ListAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, status, total_cents, currency, updated_at
		FROM orders
		WHERE status = 'awaiting_payment' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalCents, &o.Currency, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) checkExists(ctx context.Context, id string) error {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM orders WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func enqueueEvent(ctx context.Context, tx pgx.Tx, orderID, eventType string, payload []byte, traceparent string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ('order', $1, $2, $3, $4, 'pending')`,
		orderID, eventType, payload, traceparent)
	return err
}
