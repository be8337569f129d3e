package handlers

import (
	"errors"
	"log"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles HTTP requests for registration and login.
type AccountHandler struct {
	service  *services.AccountService
	sessions *session.Manager
	validate *validator.Validate
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service *services.AccountService, sessions *session.Manager) *AccountHandler {
	return &AccountHandler{
		service:  service,
		sessions: sessions,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the account routes.
func (h *AccountHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Post("/logout", h.HandleLogout)
}

// RegisterRequest represents the request body for registration. The
// password rides a request type of its own because the user model never
// serializes its credential field.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister registers a new user and signs the session in.
func (h *AccountHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
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

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if err := h.service.Register(&user); err != nil {
		log.Printf("Error registering user: %v", err)
		if errors.Is(err, services.ErrDuplicateUsername) || errors.Is(err, services.ErrDuplicateEmail) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
			"error":   err.Error(),
		})
	}

	// Registration signs the caller in right away.
	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := session.SignIn(sess, user.ID); err != nil {
		return sessionError(c, err)
	}
	if err := sess.Save(); err != nil {
		return sessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates the caller and binds the user to the session.
// The failure message is the same generic one whether the username is
// unknown or the password is wrong.
func (h *AccountHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
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

	user, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		log.Printf("Error during login for user %s: %v", req.Username, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   services.ErrInvalidCredentials.Error(),
		})
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := session.SignIn(sess, user.ID); err != nil {
		return sessionError(c, err)
	}
	if err := sess.Save(); err != nil {
		return sessionError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user_id": user.ID,
	})
}

// HandleLogout destroys the session, cart included.
func (h *AccountHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := session.SignOut(sess); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}
