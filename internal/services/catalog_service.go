package services

import (
	"errors"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CatalogService handles business logic related to products.
type CatalogService struct {
	repo repositories.ProductRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.ProductRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// ListProducts retrieves all products.
func (s *CatalogService) ListProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProduct retrieves a single product by slug, falling back to ID so
// both forms of identifier resolve.
func (s *CatalogService) GetProduct(slugOrID string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slugOrID)
	if errors.Is(err, repositories.ErrNotFound) {
		return s.repo.GetByID(slugOrID)
	}
	return product, err
}

// CreateProduct creates a new product (administrative).
func (s *CatalogService) CreateProduct(product *models.Product) error {
	return s.repo.Create(product)
}

// UpdateProduct updates an existing product (administrative).
func (s *CatalogService) UpdateProduct(product *models.Product) error {
	return s.repo.Update(product)
}

// DeleteProduct deletes a product by its ID (administrative).
func (s *CatalogService) DeleteProduct(id string) error {
	return s.repo.Delete(id)
}
