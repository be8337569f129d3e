package handlers

import (
	"errors"
	"fmt"
	"log"

	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler handles HTTP requests for checkout and order lookup.
type CheckoutHandler struct {
	service  *services.CheckoutService
	sessions *session.Manager
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, sessions *session.Manager) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		sessions: sessions,
	}
}

// RegisterRoutes registers the checkout and order routes.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/checkout", h.HandleCheckout)
	router.Get("/orders", h.HandleListOrders)
	router.Get("/orders/:id", h.HandleGetOrder)
}

// HandleCheckout converts the session cart into an order. The cart is
// emptied only after the order committed, so a failed checkout changes
// nothing.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}

	userID := session.UserID(sess)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Sign in required to check out",
		})
	}
	cart := session.Cart(sess)

	order, err := h.service.Checkout(cart, userID)
	if err != nil {
		if errors.Is(err, services.ErrEmptyCart) {
			// Checkout may have pruned stale entries; keep the session
			// cart in sync even on failure.
			session.SetCart(sess, cart)
			if saveErr := sess.Save(); saveErr != nil {
				return sessionError(c, saveErr)
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Cart is empty",
			})
		}
		if errors.Is(err, services.ErrNotSignedIn) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Sign in required to check out",
			})
		}
		log.Printf("Error during checkout for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not complete checkout",
			"error":   err.Error(),
		})
	}

	session.ClearCart(sess)
	if err := sess.Save(); err != nil {
		return sessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Order placed successfully",
		"order_id": order.ID,
		"order":    order,
	})
}

// HandleListOrders returns the signed-in user's orders.
func (h *CheckoutHandler) HandleListOrders(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	userID := session.UserID(sess)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Sign in required",
		})
	}

	orders, err := h.service.OrdersByUser(userID)
	if err != nil {
		log.Printf("Error listing orders for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrder returns one of the signed-in user's orders. Someone
// else's order answers not-found rather than forbidden, so order IDs
// cannot be probed.
func (h *CheckoutHandler) HandleGetOrder(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	userID := session.UserID(sess)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Sign in required",
		})
	}

	orderID := c.Params("id")
	order, err := h.service.OrderByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Order %s not found", orderID),
			})
		}
		log.Printf("Error getting order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order",
			"error":   err.Error(),
		})
	}
	if order.UserID == nil || *order.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("Order %s not found", orderID),
		})
	}
	return c.JSON(order)
}
