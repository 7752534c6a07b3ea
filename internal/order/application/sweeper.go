package application

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper moves orders stuck in awaiting_payment past the configured deadline
// to failed, releasing their stock. It races safely with late webhooks
// because both go through the same status-guarded transition.
type Sweeper struct {
	log      *slog.Logger
	repo     OrderRepository
	svc      *Service
	deadline time.Duration
	interval time.Duration
	batch    int
}

func NewSweeper(log *slog.Logger, repo OrderRepository, svc *Service, deadline, interval time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		repo:     repo,
		svc:      svc,
		deadline: deadline,
		interval: interval,
		batch:    100,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopping")
			return nil
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep fails every order whose payment deadline has lapsed. Exposed for the
// timeout tests; Run calls it on each tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.deadline)
	orders, err := s.repo.ListAwaitingPaymentBefore(ctx, cutoff, s.batch)
	if err != nil {
		s.log.Error("sweep list failed", "err", err)
		return
	}
	for _, o := range orders {
		applied, err := s.svc.FailPayment(ctx, o.ID, "payment deadline exceeded")
		if err != nil {
			s.log.Error("sweep fail order", "order_id", o.ID, "err", err)
			continue
		}
		if applied {
			s.log.Info("order timed out", "order_id", o.ID)
		}
	}
}
