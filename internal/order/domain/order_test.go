package domain

import "testing"

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusReserved, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPaid, false},
		{StatusReserved, StatusAwaitingPayment, true},
		{StatusReserved, StatusFailed, true},
		{StatusAwaitingPayment, StatusPaid, true},
		{StatusAwaitingPayment, StatusFailed, true},
		{StatusAwaitingPayment, StatusReserved, false},
		{StatusPaid, StatusFulfilling, true},
		{StatusPaid, StatusFailed, false},
		{StatusFulfilling, StatusCompleted, true},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusPaid, false},
		{StatusCancelled, StatusReserved, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusReserved, StatusAwaitingPayment, StatusPaid, StatusFulfilling} {
		if s.Terminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestNewOrder(t *testing.T) {
	o := NewOrder("o1", "EUR", []LineItem{
		{ProductID: "a", Quantity: 2, UnitPriceCents: 500},
		{ProductID: "b", Quantity: 1, UnitPriceCents: 1250},
	})
	if o.Status != StatusPending {
		t.Errorf("expected pending, got %s", o.Status)
	}
	if o.TotalCents != 2250 {
		t.Errorf("expected total 2250, got %d", o.TotalCents)
	}
	if o.CreatedAt.IsZero() || o.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}
}
