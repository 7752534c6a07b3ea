package domain

import "time"

// Provider event types settlement reacts to. Anything else is recorded and
// ignored.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Event is one inbound provider webhook delivery. ProviderEventID is unique
// per logical event on the provider side; redeliveries reuse it.
type Event struct {
	ProviderEventID string
	Type            string
	OrderID         string
	Payload         []byte
	ReceivedAt      time.Time
}

type Outcome string

const (
	// OutcomeApplied: this delivery won the dedup race and the order
	// transition it maps to was applied.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate: the event was already seen; no side effects ran.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeOrderNotFound: the order is unknown or its status guard
	// rejected the transition. Logged, still acknowledged to the provider.
	OutcomeOrderNotFound Outcome = "order_not_found"
	// OutcomeIgnored: an event type settlement does not act on.
	OutcomeIgnored Outcome = "ignored"
)
