package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/settlement/internal/webhook/application"
	"github.com/orderflow/settlement/internal/webhook/domain"
)

// Handler is the inbound webhook endpoint. Signature verification happens in
// upstream middleware; by the time a request lands here its payload is
// trusted. Anything durably recorded is acknowledged 2xx, duplicates
// included, so the provider stops retrying.
type Handler struct {
	log        *slog.Logger
	reconciler *application.Reconciler
	tracer     trace.Tracer
}

func NewHandler(log *slog.Logger, reconciler *application.Reconciler) *Handler {
	return &Handler{
		log:        log,
		reconciler: reconciler,
		tracer:     otel.Tracer("webhook-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payment", h.receive)
	return r
}

// providerEvent mirrors the provider's event envelope; the order ID rides in
// the intent's metadata.
type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ReceiveWebhook")
	defer span.End()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var ev providerEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}

	outcome, err := h.reconciler.Handle(ctx, domain.Event{
		ProviderEventID: ev.ID,
		Type:            ev.Type,
		OrderID:         ev.Data.Object.Metadata["order_id"],
		Payload:         body,
		ReceivedAt:      time.Now().UTC(),
	})
	if err != nil {
		// Not recorded; a 5xx keeps the provider retrying.
		h.log.Error("webhook handling failed", "event_id", ev.ID, "err", err)
		http.Error(w, "internal", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"received": "true", "outcome": string(outcome)})
}
