package services_test

import (
	"fmt"
	"log"
	"os"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	log.SetOutput(os.Stdout)
	code := m.Run()
	os.Exit(code)
}

func userNotFoundErr(username string) error {
	return fmt.Errorf("user %s: %w", username, repositories.ErrNotFound)
}

func TestAccountService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	accountService := services.NewAccountService(mockRepo)

	user := &models.User{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
	}

	// Successful registration stores a hash, not the plain password
	mockRepo.On("GetByUsername", user.Username).Return(nil, userNotFoundErr(user.Username)).Once()
	mockRepo.On("GetByEmail", user.Email).Return(nil, userNotFoundErr(user.Email)).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := accountService.Register(user)
	assert.NoError(t, err)
	assert.NotEqual(t, "password123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Username already taken
	mockRepo.On("GetByUsername", user.Username).Return(&models.User{ID: "1"}, nil).Once()
	err = accountService.Register(user)
	assert.ErrorIs(t, err, services.ErrDuplicateUsername)
	mockRepo.AssertExpectations(t)

	// Email already registered
	mockRepo.On("GetByUsername", user.Username).Return(nil, userNotFoundErr(user.Username)).Once()
	mockRepo.On("GetByEmail", user.Email).Return(&models.User{ID: "1"}, nil).Once()
	err = accountService.Register(user)
	assert.ErrorIs(t, err, services.ErrDuplicateEmail)
	mockRepo.AssertExpectations(t)
}

func TestAccountService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	accountService := services.NewAccountService(mockRepo)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}

	// Successful login returns the user
	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	loggedIn, err := accountService.Login("testuser", "password123")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	mockRepo.AssertExpectations(t)

	// Wrong password
	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	_, errWrongPassword := accountService.Login("testuser", "wrongpassword")
	assert.ErrorIs(t, errWrongPassword, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Unknown username
	mockRepo.On("GetByUsername", "nonexistentuser").Return(nil, userNotFoundErr("nonexistentuser")).Once()
	_, errUnknownUser := accountService.Login("nonexistentuser", "password123")
	assert.ErrorIs(t, errUnknownUser, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Both failures carry the exact same message, no enumeration signal
	assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())
}
