package models

import "github.com/shopspring/decimal"

// Cart is the session-scoped mapping of product ID to desired quantity.
// It has no identity of its own and lives only as long as its session.
type Cart map[string]int

// Add increments the stored quantity for productID, creating the entry
// if absent. Quantities below one are treated as one.
func (c Cart) Add(productID string, qty int) {
	if qty < 1 {
		qty = 1
	}
	c[productID] += qty
}

// Remove deletes the entry for productID; no-op when absent.
func (c Cart) Remove(productID string) {
	delete(c, productID)
}

// CartLine is one priced entry of a cart summary.
type CartLine struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"qty"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartSummary is a cart resolved against the catalog.
type CartSummary struct {
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
}
