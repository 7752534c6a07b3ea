package application

import (
	"context"
	"fmt"
	"log/slog"

	orderapp "github.com/orderflow/settlement/internal/order/application"
	"github.com/orderflow/settlement/internal/payment/domain"
)

// ProviderClient is the external payment provider's create-intent surface.
type ProviderClient interface {
	CreateIntent(ctx context.Context, req domain.IntentRequest) (domain.Intent, error)
}

// Bridge opens provider payment intents for orders. Exactly-once persistence
// of the returned identifiers is enforced downstream by the order
// repository's guarded attach, so a duplicate Open for the same order opens
// an orphan intent at worst, never a second charge.
type Bridge struct {
	log      *slog.Logger
	provider ProviderClient
}

func NewBridge(log *slog.Logger, provider ProviderClient) *Bridge {
	return &Bridge{log: log, provider: provider}
}

func (b *Bridge) Open(ctx context.Context, orderID string, amountCents int64, currency string) (orderapp.Intent, error) {
	intent, err := b.provider.CreateIntent(ctx, domain.IntentRequest{
		AmountCents: amountCents,
		Currency:    currency,
		Metadata:    map[string]string{"order_id": orderID},
	})
	if err != nil {
		b.log.Error("create intent failed", "order_id", orderID, "err", err)
		return orderapp.Intent{}, fmt.Errorf("%w: %w", domain.ErrProviderUnreachable, err)
	}

	b.log.Info("payment intent opened", "order_id", orderID, "intent_id", intent.ID)
	return orderapp.Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
