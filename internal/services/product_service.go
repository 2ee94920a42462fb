package services

import (
	"lapak/internal/models"
	"lapak/internal/repositories"
)

// ProductService exposes the read-only catalog surface checkout clients
// use. Catalog mutation flows live elsewhere; stock changes in particular go
// exclusively through the InventoryService.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}
