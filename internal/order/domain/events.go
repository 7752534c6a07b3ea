package domain

import "time"

// StateChanged is the payload published to fulfillment and notification
// consumers whenever an order's status commits.
type StateChanged struct {
	OrderID    string    `json:"order_id"`
	Status     Status    `json:"status"`
	Previous   Status    `json:"previous"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventTypeFor names the outbox event emitted when an order enters a status.
func EventTypeFor(to Status) string {
	switch to {
	case StatusReserved:
		return "OrderReserved"
	case StatusAwaitingPayment:
		return "OrderAwaitingPayment"
	case StatusPaid:
		return "OrderPaid"
	case StatusFulfilling:
		return "OrderFulfilling"
	case StatusCompleted:
		return "OrderCompleted"
	case StatusCancelled:
		return "OrderCancelled"
	case StatusFailed:
		return "OrderFailed"
	default:
		return "OrderStateChanged"
	}
}
