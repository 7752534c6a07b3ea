package domain

import "errors"

// ErrProductNotFound signals an increment or availability read against a
// product the ledger has never seen. Distinct from insufficient stock, which
// is a normal business outcome rather than an error.
var ErrProductNotFound = errors.New("product not found")

// StockRecord is the authoritative availability for one product. It is only
// ever mutated through the ledger's conditional operations.
type StockRecord struct {
	ProductID string
	Available int
}

// InsufficientItem reports how short a single line item came up during a
// reservation attempt.
type InsufficientItem struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
