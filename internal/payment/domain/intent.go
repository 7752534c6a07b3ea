package domain

import "errors"

// ErrProviderUnreachable means the payment provider could not be reached or
// answered with a server-side failure. The checkout path reacts by releasing
// the order's stock and failing the order; the buyer may retry.
var ErrProviderUnreachable = errors.New("payment provider unreachable")

// IntentRequest is the outbound create-intent call. Metadata carries the
// order ID so provider webhooks can be correlated back.
type IntentRequest struct {
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
}

// Intent is the provider's answer: the intent identifier and the client
// secret handed to the buyer's device to complete payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}
