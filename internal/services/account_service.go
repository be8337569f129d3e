package services

import (
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// AccountService handles registration and authentication. Signing the
// session in and out is the handler's job; the service only verifies
// identities.
type AccountService struct {
	userRepo repositories.UserRepository
}

// NewAccountService creates a new AccountService.
func NewAccountService(userRepo repositories.UserRepository) *AccountService {
	return &AccountService{
		userRepo: userRepo,
	}
}

// Register stores a new user with a bcrypt-hashed password. A username or
// email that is already taken fails the registration.
func (s *AccountService) Register(user *models.User) error {
	if existing, err := s.userRepo.GetByUsername(user.Username); err == nil && existing != nil {
		return ErrDuplicateUsername
	}
	if existing, err := s.userRepo.GetByEmail(user.Email); err == nil && existing != nil {
		return ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// Login verifies a username/password pair and returns the user. Unknown
// username and wrong password both fail with the same ErrInvalidCredentials
// so the response never reveals which accounts exist.
func (s *AccountService) Login(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
