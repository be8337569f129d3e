package handlers

import (
	"errors"
	"fmt"
	"log"

	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the session cart.
type CartHandler struct {
	service  *services.CartService
	sessions *session.Manager
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, sessions *session.Manager) *CartHandler {
	return &CartHandler{
		service:  service,
		sessions: sessions,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleViewCart)
	cartRoutes.Post("/add", h.HandleAddItem)
	// Remove is reachable by POST and by plain GET so a link click works.
	cartRoutes.Post("/remove/:productID", h.HandleRemoveItem)
	cartRoutes.Get("/remove/:productID", h.HandleRemoveItem)
}

// AddItemRequest is the request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Qty       int    `json:"qty" validate:"omitempty,gte=1"`
}

// HandleAddItem adds qty of a product to the session cart (default 1) and
// returns the updated summary.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-to-cart request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	cart := session.Cart(sess)

	summary, err := h.service.AddItem(cart, req.ProductID, req.Qty)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product %s not found", req.ProductID),
			})
		}
		log.Printf("Error adding product %s to cart: %v", req.ProductID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not add item to cart",
			"error":   err.Error(),
		})
	}

	session.SetCart(sess, cart)
	if err := sess.Save(); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(summary)
}

// HandleRemoveItem deletes a product from the session cart. Removing an
// absent product is a no-op.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	productID := c.Params("productID")

	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	cart := session.Cart(sess)

	summary, err := h.service.RemoveItem(cart, productID)
	if err != nil {
		log.Printf("Error removing product %s from cart: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not remove item from cart",
			"error":   err.Error(),
		})
	}

	session.SetCart(sess, cart)
	if err := sess.Save(); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(summary)
}

// HandleViewCart resolves the session cart against the catalog and returns
// lines with subtotals plus the grand total. Summarize may prune entries
// whose product disappeared, so the session is saved afterwards.
func (h *CartHandler) HandleViewCart(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	cart := session.Cart(sess)

	summary, err := h.service.Summarize(cart)
	if err != nil {
		log.Printf("Error summarizing cart: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not summarize cart",
			"error":   err.Error(),
		})
	}

	session.SetCart(sess, cart)
	if err := sess.Save(); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(summary)
}

// sessionError reports a session load/save failure.
func sessionError(c *fiber.Ctx, err error) error {
	log.Printf("Session error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Session error",
		"error":   err.Error(),
	})
}
