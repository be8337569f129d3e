package services

import "errors"

// Sentinel errors surfaced to handlers, which map them to HTTP status
// codes with errors.Is.
var (
	// ErrDuplicateUsername and ErrDuplicateEmail reject registration with
	// an already-used identity.
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown username and wrong
	// password. The message stays generic so callers cannot enumerate
	// accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmptyCart rejects a checkout with nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNotSignedIn rejects a checkout without an authenticated user.
	ErrNotSignedIn = errors.New("sign in required")
)
