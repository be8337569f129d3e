package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("STORE", "gorm") // "memory" runs without a database
	viper.SetDefault("DATABASE_DSN", "") // empty means sqlite
	viper.SetDefault("SQLITE_PATH", "storefront.db")
	viper.SetDefault("RABBITMQ_URL", "") // empty disables order events
	viper.SetDefault("SESSION_TTL", "24h")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	sessionTTL := viper.GetDuration("SESSION_TTL")

	// --- RabbitMQ (optional) ---
	var mqClient *rabbitmq.Client
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		var err error
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set, order events disabled")
	}

	// --- Repositories ---
	productRepo, userRepo, orderRepo, err := buildRepositories()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	seedProducts(productRepo)

	// --- Services ---
	catalogService := services.NewCatalogService(productRepo)
	cartService := services.NewCartService(productRepo)
	accountService := services.NewAccountService(userRepo)
	// Payment is a stub that approves everything; swap the authorizer here
	// to integrate a real gateway.
	var publisher services.OrderEventPublisher
	if mqClient != nil {
		publisher = mqClient
	}
	checkoutService := services.NewCheckoutService(orderRepo, productRepo, payment.AlwaysApprove{}, publisher)

	// --- Sessions ---
	sessions := session.NewManager(sessionTTL)

	// --- Handlers ---
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService, sessions)
	accountHandler := handlers.NewAccountHandler(accountService, sessions)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, sessions)

	// --- Fiber app ---
	app := fiber.New()
	app.Use(logger.New())

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

	// Admin product CRUD sits behind a signed-in session.
	adminGroup := app.Group("/admin", sessions.RequireUser())
	catalogHandler.RegisterAdminRoutes(adminGroup)

	// --- Order event consumer ---
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for order events...")
			handler := func(msg amqp.Delivery) error {
				log.Printf("Received order event (tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumeOrderEvents(handler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// buildRepositories wires the configured storage backend: GORM-backed
// repositories by default, or in-memory ones when STORE=memory (useful for
// demos, everything is lost on restart).
func buildRepositories() (repositories.ProductRepository, repositories.UserRepository, repositories.OrderRepository, error) {
	if viper.GetString("STORE") == "memory" {
		log.Println("Using in-memory storage")
		return repositories.NewMockProductRepository(),
			repositories.NewMockUserRepository(),
			repositories.NewMockOrderRepository(),
			nil
	}

	db, err := openDatabase()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.AutoMigrate(&models.Product{}, &models.User{}, &models.Order{}, &models.OrderItem{}); err != nil {
		return nil, nil, nil, err
	}
	return repositories.NewGORMProductRepository(db),
		repositories.NewGORMUserRepository(db),
		repositories.NewGORMOrderRepository(db),
		nil
}

// openDatabase connects to PostgreSQL when DATABASE_DSN is set, otherwise
// to a local sqlite file.
func openDatabase() (*gorm.DB, error) {
	if dsn := viper.GetString("DATABASE_DSN"); dsn != "" {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(viper.GetString("SQLITE_PATH")), &gorm.Config{})
}

// seedProducts populates the catalog with some initial data when empty.
func seedProducts(repo repositories.ProductRepository) {
	existing, err := repo.GetAll()
	if err != nil || len(existing) > 0 {
		return
	}

	products := []models.Product{
		{Name: "Laptop", Slug: "laptop", Description: "High performance laptop", Price: decimal.NewFromFloat(1200.00), Stock: 10},
		{Name: "Keyboard", Slug: "keyboard", Description: "Mechanical keyboard", Price: decimal.NewFromFloat(75.00), Stock: 25},
		{Name: "Mouse", Slug: "mouse", Description: "Ergonomic wireless mouse", Price: decimal.NewFromFloat(25.00), Stock: 50},
	}

	for i := range products {
		if err := repo.Create(&products[i]); err != nil {
			log.Printf("Error seeding product %s: %v", products[i].Name, err)
		} else {
			log.Printf("Seeded product: %s (ID: %s)", products[i].Name, products[i].ID)
		}
	}
}
