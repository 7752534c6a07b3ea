package domain

import (
	"errors"
	"fmt"
	"time"

	invdomain "github.com/orderflow/settlement/internal/inventory/domain"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusReserved        Status = "reserved"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusFulfilling      Status = "fulfilling"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusFailed          Status = "failed"
)

// transitions is the full set of legal status moves. Everything else is a
// guard rejection, which is how late duplicate webhooks and timeout races are
// kept from re-applying a transition after the order has moved on.
var transitions = map[Status][]Status{
	StatusPending:         {StatusReserved, StatusCancelled},
	StatusReserved:        {StatusAwaitingPayment, StatusCancelled, StatusFailed},
	StatusAwaitingPayment: {StatusPaid, StatusFailed},
	StatusPaid:            {StatusFulfilling},
	StatusFulfilling:      {StatusCompleted},
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further stock or payment mutation may
// reference an order in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

var ErrNotFound = errors.New("order not found")

// InvalidTransitionError is a guard rejection. It is logged and swallowed at
// the webhook boundary so providers still receive an acknowledgment.
type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: invalid transition %s -> %s", e.OrderID, e.From, e.To)
}

// InsufficientStockError is the expected business outcome of a reservation
// that could not cover every line item. It carries per-item detail so the
// buyer sees exactly what is short.
type InsufficientStockError struct {
	Items []invdomain.InsufficientItem
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Items))
}

type LineItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID              string
	Status          Status
	Items           []LineItem
	TotalCents      int64
	Currency        string
	PaymentIntentID string
	ClientSecret    string
	StockReleased   bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ReservedAt      *time.Time
	PaidAt          *time.Time
	TerminatedAt    *time.Time
}

func NewOrder(id, currency string, items []LineItem) Order {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	now := time.Now().UTC()
	return Order{
		ID:         id,
		Status:     StatusPending,
		Items:      items,
		TotalCents: total,
		Currency:   currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
