package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEventPublisher emits order events to the message broker.
// rabbitmq.Client satisfies it.
type OrderEventPublisher interface {
	PublishOrderPlaced(event map[string]interface{}) error
}

// CheckoutService materializes a session cart into an immutable order.
type CheckoutService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	authorizer  payment.Authorizer
	publisher   OrderEventPublisher
}

// NewCheckoutService creates a new CheckoutService. publisher may be nil,
// in which case order events are not published.
func NewCheckoutService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	authorizer payment.Authorizer,
	publisher OrderEventPublisher,
) *CheckoutService {
	return &CheckoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		authorizer:  authorizer,
		publisher:   publisher,
	}
}

// Checkout freezes the cart into an order. Each entry is resolved against
// the catalog at its current price; entries whose product no longer exists
// are pruned, the same policy the cart summary applies. The order and its
// items are written in one transaction by the repository. Emptying the
// session cart is the caller's responsibility once Checkout returns
// successfully, so a failed checkout leaves the cart intact.
func (s *CheckoutService) Checkout(cart models.Cart, userID string) (*models.Order, error) {
	if userID == "" {
		return nil, ErrNotSignedIn
	}
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(cart))
	for productID, qty := range cart {
		product, err := s.productRepo.GetByID(productID)
		if errors.Is(err, repositories.ErrNotFound) {
			cart.Remove(productID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve product %s: %w", productID, err)
		}

		// Freeze the unit price: later catalog changes must not touch
		// this order.
		items = append(items, models.OrderItem{
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: product.Price,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		ID:        uuid.New().String(),
		UserID:    &userID,
		Items:     items,
		Total:     total,
		CreatedAt: time.Now(),
	}

	paid, err := s.authorizer.Authorize(order.ID, order.Total)
	if err != nil {
		return nil, fmt.Errorf("payment authorization failed: %w", err)
	}
	order.Paid = paid

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publishOrderPlaced(order)

	return order, nil
}

// OrderByID retrieves a single order with its items.
func (s *CheckoutService) OrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// OrdersByUser retrieves all orders belonging to userID.
func (s *CheckoutService) OrdersByUser(userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUser(userID)
}

// publishOrderPlaced emits an order.placed event, best effort: a broker
// failure must not fail a checkout that already committed.
func (s *CheckoutService) publishOrderPlaced(order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := map[string]interface{}{
		"order_id": order.ID,
		"user_id":  *order.UserID,
		"total":    order.Total.String(),
		"paid":     order.Paid,
	}
	if err := s.publisher.PublishOrderPlaced(event); err != nil {
		log.Printf("Warning: failed to publish order placed event for order %s: %v", order.ID, err)
	}
}
