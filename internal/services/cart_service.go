package services

import (
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

// CartService handles business logic for the session cart. The cart itself
// is owned by the caller's session; the service only mutates and prices it.
type CartService struct {
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		productRepo: productRepo,
	}
}

// AddItem increments the cart quantity for productID by qty, creating the
// entry if absent. There is no stock ceiling: the cart may hold more than
// is available. An unknown product is rejected.
func (s *CartService) AddItem(cart models.Cart, productID string, qty int) (*models.CartSummary, error) {
	if _, err := s.productRepo.GetByID(productID); err != nil {
		return nil, err
	}
	cart.Add(productID, qty)
	return s.Summarize(cart)
}

// RemoveItem deletes the cart entry for productID; no-op when absent.
func (s *CartService) RemoveItem(cart models.Cart, productID string) (*models.CartSummary, error) {
	cart.Remove(productID)
	return s.Summarize(cart)
}

// Summarize resolves each cart entry against the catalog, computing
// per-line subtotals and the grand total at current prices. Entries whose
// product no longer exists are pruned from the cart and omitted from the
// total.
func (s *CartService) Summarize(cart models.Cart) (*models.CartSummary, error) {
	summary := &models.CartSummary{
		Items: make([]models.CartLine, 0, len(cart)),
		Total: decimal.Zero,
	}
	for productID, qty := range cart {
		product, err := s.productRepo.GetByID(productID)
		if errors.Is(err, repositories.ErrNotFound) {
			cart.Remove(productID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cart item %s: %w", productID, err)
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(qty)))
		summary.Items = append(summary.Items, models.CartLine{
			Product:  *product,
			Quantity: qty,
			Subtotal: subtotal,
		})
		summary.Total = summary.Total.Add(subtotal)
	}
	return summary, nil
}
