package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/settlement/internal/order/application"
	"github.com/orderflow/settlement/internal/order/domain"
	paydomain "github.com/orderflow/settlement/internal/payment/domain"
)

type Handler struct {
	log    *slog.Logger
	svc    *application.Service
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, svc *application.Service) *Handler {
	return &Handler{
		log:    log,
		svc:    svc,
		tracer: otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	return r
}

type createOrderReq struct {
	Items    []domain.LineItem `json:"line_items"`
	Currency string            `json:"currency"`
}

type createOrderResp struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	o, err := h.svc.CreateOrder(ctx, req.Items, req.Currency)
	if err != nil {
		var insufficient *domain.InsufficientStockError
		switch {
		case errors.As(err, &insufficient):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": "insufficient_stock",
				"items": insufficient.Items,
			})
		case errors.Is(err, paydomain.ErrProviderUnreachable):
			// Stock was already released; the buyer can retry checkout.
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "payment provider unavailable, retry checkout"})
		default:
			h.log.Error("create order failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResp{
		OrderID:      o.ID,
		Status:       string(o.Status),
		ClientSecret: o.ClientSecret,
	})
}

type orderView struct {
	OrderID    string            `json:"order_id"`
	Status     string            `json:"status"`
	Items      []domain.LineItem `json:"line_items"`
	TotalCents int64             `json:"total_cents"`
	Currency   string            `json:"currency"`
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.svc.GetOrder(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	if err != nil {
		h.log.Error("get order failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	writeJSON(w, http.StatusOK, orderView{
		OrderID:    o.ID,
		Status:     string(o.Status),
		Items:      o.Items,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
