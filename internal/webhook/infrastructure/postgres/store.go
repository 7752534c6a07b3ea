package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/settlement/internal/webhook/domain"
)

// Store is the durable dedup record: one row per provider event, inserted
// with ON CONFLICT DO NOTHING so the membership test and the insert are a
// single statement. Rows beyond the cap are trimmed oldest-first.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
	cap  int
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool, capacity int) *Store {
	return &Store{log: log, pool: pool, cap: capacity}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS webhook_events (
		id                BIGSERIAL PRIMARY KEY,
		provider_event_id TEXT NOT NULL UNIQUE,
		event_type        TEXT NOT NULL,
		order_id          TEXT NOT NULL,
		received_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (s *Store) FirstSeen(ctx context.Context, ev domain.Event) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events (provider_event_id, event_type, order_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_event_id) DO NOTHING`,
		ev.ProviderEventID, ev.Type, ev.OrderID)
	if err != nil {
		return false, err
	}
	first := ct.RowsAffected() == 1
	if first {
		s.trim(ctx)
	}
	return first, nil
}

func (s *Store) Forget(ctx context.Context, providerEventID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM webhook_events WHERE provider_event_id = $1`, providerEventID)
	return err
}

// trim drops the oldest rows once the table exceeds the cap. Best effort; a
// failed trim only delays eviction until the next insert.
func (s *Store) trim(ctx context.Context) {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM webhook_events
		WHERE id <= COALESCE(
			(SELECT id FROM webhook_events ORDER BY id DESC OFFSET $1 LIMIT 1),
			0
		)`, s.cap)
	if err != nil {
		s.log.Error("webhook event trim failed", "err", err)
	}
}
