package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	inventory "github.com/orderflow/settlement/internal/inventory/application"
	invmemory "github.com/orderflow/settlement/internal/inventory/infrastructure/memory"
	orderapp "github.com/orderflow/settlement/internal/order/application"
	orderdomain "github.com/orderflow/settlement/internal/order/domain"
	ordermemory "github.com/orderflow/settlement/internal/order/infrastructure/memory"
	"github.com/orderflow/settlement/internal/webhook/application"
	whmemory "github.com/orderflow/settlement/internal/webhook/infrastructure/memory"
)

type stubIntents struct{}

func (stubIntents) Open(ctx context.Context, orderID string, amountCents int64, currency string) (orderapp.Intent, error) {
	return orderapp.Intent{ID: "pi_" + orderID, ClientSecret: "cs_" + orderID}, nil
}

type env struct {
	handler http.Handler
	orders  *orderapp.Service
	repo    *ordermemory.Repository
	orderID string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	ledger := invmemory.NewLedger()
	ledger.SetStock("a", 10)
	repo := ordermemory.NewRepository()
	orders := orderapp.NewService(log, repo, inventory.NewCoordinator(log, ledger), stubIntents{})
	reconciler := application.NewReconciler(log, whmemory.NewDedup(64), orders)

	o, err := orders.CreateOrder(context.Background(), []orderdomain.LineItem{
		{ProductID: "a", Quantity: 1, UnitPriceCents: 700},
	}, "EUR")
	if err != nil {
		t.Fatal(err)
	}

	return &env{
		handler: NewHandler(log, reconciler).Routes(),
		orders:  orders,
		repo:    repo,
		orderID: o.ID,
	}
}

func eventBody(eventID, eventType, orderID string) string {
	return fmt.Sprintf(`{"id":%q,"type":%q,"data":{"object":{"id":"pi_x","metadata":{"order_id":%q}}}}`,
		eventID, eventType, orderID)
}

func (e *env) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payment", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_AppliedThenDuplicate(t *testing.T) {
	e := newEnv(t)
	body := eventBody("evt_1", "payment_intent.succeeded", e.orderID)

	rec := e.post(t, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["outcome"] != "applied" {
		t.Errorf("expected applied, got %q", resp["outcome"])
	}

	// Redelivery must still be acknowledged 2xx so the provider stops.
	rec = e.post(t, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate must be acknowledged, got %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["outcome"] != "duplicate" {
		t.Errorf("expected duplicate, got %q", resp["outcome"])
	}

	o, _ := e.repo.Get(context.Background(), e.orderID)
	if o.Status != orderdomain.StatusPaid {
		t.Errorf("expected paid, got %s", o.Status)
	}
}

func TestWebhook_UnknownOrderStillAcknowledged(t *testing.T) {
	e := newEnv(t)

	rec := e.post(t, eventBody("evt_2", "payment_intent.succeeded", "no-such-order"))
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown order must still be acknowledged, got %d", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["outcome"] != "order_not_found" {
		t.Errorf("expected order_not_found, got %q", resp["outcome"])
	}
}

func TestWebhook_InvalidBody(t *testing.T) {
	e := newEnv(t)

	if rec := e.post(t, "not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := e.post(t, `{"type":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing event id: expected 400, got %d", rec.Code)
	}
}
