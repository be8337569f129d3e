package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp builds the full Fiber app over an in-memory SQLite database.
// The database is shared per process, so tests use unique slugs and
// usernames.
func setupApp() (*fiber.App, *repositories.GORMProductRepository, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	err = db.AutoMigrate(&models.Product{}, &models.User{}, &models.Order{}, &models.OrderItem{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	catalogService := services.NewCatalogService(productRepo)
	cartService := services.NewCartService(productRepo)
	accountService := services.NewAccountService(userRepo)
	checkoutService := services.NewCheckoutService(orderRepo, productRepo, payment.AlwaysApprove{}, nil)

	sessions := session.NewManager(time.Hour)

	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService, sessions)
	accountHandler := handlers.NewAccountHandler(accountService, sessions)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, sessions)

	app := fiber.New()

	catalogHandler.RegisterRoutes(app)
	cartHandler.RegisterRoutes(app)
	accountHandler.RegisterRoutes(app)
	checkoutHandler.RegisterRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	adminGroup := app.Group("/admin", sessions.RequireUser())
	catalogHandler.RegisterAdminRoutes(adminGroup)

	return app, productRepo, nil
}

// testClient drives the app while carrying the session cookie between
// requests, the way a browser would.
type testClient struct {
	app    *fiber.App
	cookie *http.Cookie
}

func (tc *testClient) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.cookie != nil {
		req.AddCookie(tc.cookie)
	}

	resp, err := tc.app.Test(req, -1)
	assert.NoError(t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			tc.cookie = ck
		}
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

func createProduct(t *testing.T, repo repositories.ProductRepository, name, slug string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:  name,
		Slug:  slug,
		Price: decimal.NewFromFloat(price),
		Stock: stock,
	}
	assert.NoError(t, repo.Create(product))
	return product
}

func registerUser(t *testing.T, tc *testClient, username string) {
	t.Helper()
	resp := tc.do(t, http.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The response must never carry the credential, hashed or not
	var registerResp struct {
		User map[string]interface{} `json:"user"`
	}
	decodeBody(t, resp, &registerResp)
	assert.Equal(t, username, registerResp.User["username"])
	assert.NotContains(t, registerResp.User, "password")
	assert.NotContains(t, registerResp.User, "Password")
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)
	tc := &testClient{app: app}

	resp := tc.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]string
	decodeBody(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])

	// An unmatched path is a plain 404, not an auth challenge from the
	// admin guard.
	resp = tc.do(t, http.MethodGet, "/no-such-route", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCatalogEndpoints(t *testing.T) {
	app, productRepo, err := setupApp()
	assert.NoError(t, err)
	tc := &testClient{app: app}

	created := createProduct(t, productRepo, "Catalog Laptop", "catalog-laptop", 1200.00, 10)
	createProduct(t, productRepo, "Catalog Mouse", "catalog-mouse", 25.00, 50)

	// Listing is public and includes the new products
	resp := tc.do(t, http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	decodeBody(t, resp, &products)
	assert.GreaterOrEqual(t, len(products), 2)

	// Detail by slug
	resp = tc.do(t, http.MethodGet, "/products/catalog-laptop", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var bySlug models.Product
	decodeBody(t, resp, &bySlug)
	assert.Equal(t, created.ID, bySlug.ID)
	assert.True(t, bySlug.Price.Equal(decimal.NewFromFloat(1200.00)))

	// Detail by ID works through the same route
	resp = tc.do(t, http.MethodGet, "/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var byID models.Product
	decodeBody(t, resp, &byID)
	assert.Equal(t, created.ID, byID.ID)

	// Unknown slug is a 404
	resp = tc.do(t, http.MethodGet, "/products/no-such-product", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCartFlow(t *testing.T) {
	app, productRepo, err := setupApp()
	assert.NoError(t, err)
	tc := &testClient{app: app}

	product := createProduct(t, productRepo, "Cart Widget", "cart-widget", 10.00, 100)

	// Add two units
	resp := tc.do(t, http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": product.ID,
		"qty":        2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var summary models.CartSummary
	decodeBody(t, resp, &summary)
	assert.Len(t, summary.Items, 1)
	assert.True(t, summary.Total.Equal(decimal.NewFromFloat(20.00)), "total was %s", summary.Total)

	// The cart survives across requests via the session cookie
	resp = tc.do(t, http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &summary)
	assert.Len(t, summary.Items, 1)
	assert.Equal(t, 2, summary.Items[0].Quantity)
	assert.True(t, summary.Total.Equal(decimal.NewFromFloat(20.00)))

	// Omitting qty adds one more
	resp = tc.do(t, http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": product.ID,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &summary)
	assert.Equal(t, 3, summary.Items[0].Quantity)
	assert.True(t, summary.Total.Equal(decimal.NewFromFloat(30.00)))

	// Remove empties the cart
	resp = tc.do(t, http.MethodPost, "/cart/remove/"+product.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &summary)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Total.IsZero())

	// Removing again is still fine
	resp = tc.do(t, http.MethodGet, "/cart/remove/"+product.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Unknown product cannot be added
	resp = tc.do(t, http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": "no-such-id",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestRegisterLoginAndCheckout(t *testing.T) {
	app, productRepo, err := setupApp()
	assert.NoError(t, err)
	tc := &testClient{app: app}

	productA := createProduct(t, productRepo, "Checkout Alpha", "checkout-alpha", 10.00, 100)
	productB := createProduct(t, productRepo, "Checkout Beta", "checkout-beta", 5.00, 50)

	registerUser(t, tc, "checkoutuser")

	// Duplicate registration is rejected
	resp := tc.do(t, http.MethodPost, "/register", map[string]string{
		"username": "checkoutuser",
		"email":    "checkoutuser@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Build the cart: {A: 2 at 10.00, B: 1 at 5.00}
	resp = tc.do(t, http.MethodPost, "/cart/add", map[string]interface{}{"product_id": productA.ID, "qty": 2})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = tc.do(t, http.MethodPost, "/cart/add", map[string]interface{}{"product_id": productB.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = tc.do(t, http.MethodGet, "/cart", nil)
	var summary models.CartSummary
	decodeBody(t, resp, &summary)
	assert.True(t, summary.Total.Equal(decimal.NewFromFloat(25.00)), "total was %s", summary.Total)

	// Checkout creates a paid order worth the cart total
	resp = tc.do(t, http.MethodPost, "/checkout", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var checkoutResp struct {
		OrderID string       `json:"order_id"`
		Order   models.Order `json:"order"`
	}
	decodeBody(t, resp, &checkoutResp)
	assert.NotEmpty(t, checkoutResp.OrderID)
	assert.True(t, checkoutResp.Order.Paid)
	assert.True(t, checkoutResp.Order.Total.Equal(decimal.NewFromFloat(25.00)))
	assert.Len(t, checkoutResp.Order.Items, 2)

	// The cart is empty afterwards
	resp = tc.do(t, http.MethodGet, "/cart", nil)
	decodeBody(t, resp, &summary)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Total.IsZero())

	// A second checkout on the now-empty cart creates nothing
	resp = tc.do(t, http.MethodPost, "/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Raise the catalog price; the order keeps the frozen unit price
	productA.Price = decimal.NewFromFloat(99.00)
	assert.NoError(t, productRepo.Update(productA))

	resp = tc.do(t, http.MethodGet, "/orders/"+checkoutResp.OrderID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var order models.Order
	decodeBody(t, resp, &order)
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(25.00)))
	for _, item := range order.Items {
		if item.ProductID == productA.ID {
			assert.True(t, item.UnitPrice.Equal(decimal.NewFromFloat(10.00)), "unit price was %s", item.UnitPrice)
		}
	}

	// The order shows up in the user's order list
	resp = tc.do(t, http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []models.Order
	decodeBody(t, resp, &orders)
	assert.Len(t, orders, 1)
}

func TestCheckoutRequiresLogin(t *testing.T) {
	app, productRepo, err := setupApp()
	assert.NoError(t, err)
	tc := &testClient{app: app}

	product := createProduct(t, productRepo, "Anon Widget", "anon-widget", 10.00, 100)

	resp := tc.do(t, http.MethodPost, "/cart/add", map[string]interface{}{"product_id": product.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = tc.do(t, http.MethodPost, "/checkout", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The anonymous cart is untouched by the refused checkout
	resp = tc.do(t, http.MethodGet, "/cart", nil)
	var summary models.CartSummary
	decodeBody(t, resp, &summary)
	assert.Len(t, summary.Items, 1)
}

func TestCheckoutWithStaleCart(t *testing.T) {
	app, productRepo, err := setupApp()
	assert.NoError(t, err)
	tc := &testClient{app: app}

	product := createProduct(t, productRepo, "Stale Widget", "stale-widget", 10.00, 100)
	registerUser(t, tc, "staleuser")

	resp := tc.do(t, http.MethodPost, "/cart/add", map[string]interface{}{"product_id": product.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The product disappears from the catalog before checkout
	assert.NoError(t, productRepo.Delete(product.ID))

	// Its cart entry is silently dropped from the view
	resp = tc.do(t, http.MethodGet, "/cart", nil)
	var summary models.CartSummary
	decodeBody(t, resp, &summary)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Total.IsZero())

	// And checkout degrades to the empty-cart failure
	resp = tc.do(t, http.MethodPost, "/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)
	tc := &testClient{app: app}

	registerUser(t, tc, "genericuser")
	resp := tc.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Wrong password
	resp = tc.do(t, http.MethodPost, "/login", map[string]string{
		"username": "genericuser",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var wrongPassword map[string]string
	decodeBody(t, resp, &wrongPassword)

	// Unknown username
	resp = tc.do(t, http.MethodPost, "/login", map[string]string{
		"username": "nobody-here",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var unknownUser map[string]string
	decodeBody(t, resp, &unknownUser)

	// The two failures look exactly the same to the caller
	assert.Equal(t, wrongPassword, unknownUser)

	// And correct credentials still work
	resp = tc.do(t, http.MethodPost, "/login", map[string]string{
		"username": "genericuser",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminProductRoutes(t *testing.T) {
	app, _, err := setupApp()
	assert.NoError(t, err)

	newProduct := map[string]interface{}{
		"name":  "Admin Gadget",
		"slug":  "admin-gadget",
		"price": 799.99,
		"stock": 50,
	}

	// Anonymous callers are rejected
	anon := &testClient{app: app}
	resp := anon.do(t, http.MethodPost, "/admin/products", newProduct)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// A signed-in session may manage the catalog
	tc := &testClient{app: app}
	registerUser(t, tc, "adminuser")

	resp = tc.do(t, http.MethodPost, "/admin/products", newProduct)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Product
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Admin Gadget", created.Name)

	resp = tc.do(t, http.MethodPut, "/admin/products/"+created.ID, map[string]interface{}{
		"name":  "Admin Gadget Pro",
		"slug":  "admin-gadget",
		"price": 899.99,
		"stock": 45,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Product
	decodeBody(t, resp, &updated)
	assert.Equal(t, "Admin Gadget Pro", updated.Name)

	resp = tc.do(t, http.MethodDelete, "/admin/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = tc.do(t, http.MethodGet, "/products/admin-gadget", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
