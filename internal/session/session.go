package session

import (
	"encoding/gob"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	cartKey = "cart"
	userKey = "user_id"
)

func init() {
	// Session values are gob-encoded by the store; register the cart type
	// so it round-trips as an interface value.
	gob.Register(models.Cart{})
}

// Manager wraps Fiber's session store. The cart and the signed-in user
// live server-side; the client only holds the opaque session cookie.
type Manager struct {
	store *session.Store
}

// NewManager creates a session manager with the given session lifetime.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		store: session.New(session.Config{
			Expiration:     ttl,
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
	}
}

// Get returns the session for the current request, creating one if needed.
func (m *Manager) Get(c *fiber.Ctx) (*session.Session, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// Cart returns the cart held by sess, or an empty one.
func Cart(sess *session.Session) models.Cart {
	if cart, ok := sess.Get(cartKey).(models.Cart); ok {
		return cart
	}
	return models.Cart{}
}

// SetCart stores cart in sess. The caller still has to Save the session.
func SetCart(sess *session.Session, cart models.Cart) {
	sess.Set(cartKey, cart)
}

// ClearCart drops the cart from sess.
func ClearCart(sess *session.Session) {
	sess.Delete(cartKey)
}

// UserID returns the signed-in user's ID, or "" for anonymous sessions.
func UserID(sess *session.Session) string {
	if id, ok := sess.Get(userKey).(string); ok {
		return id
	}
	return ""
}

// SignIn binds userID to the session. The session ID is regenerated so a
// pre-login cookie cannot be fixed onto the authenticated session.
func SignIn(sess *session.Session, userID string) error {
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(userKey, userID)
	return nil
}

// SignOut destroys the session entirely, cart included.
func SignOut(sess *session.Session) error {
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// RequireUser is a Fiber middleware that rejects requests without a
// signed-in session user.
func (m *Manager) RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := m.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not load session",
			})
		}
		if UserID(sess) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Sign in required",
			})
		}
		return c.Next()
	}
}
