package repositories

import (
	"lapak/internal/models"
)

// ProductRepository defines the interface for product data access. The
// stock mutators are atomic at the storage layer: DecrementStock only
// succeeds when the remaining stock covers the quantity, as a single
// conditional update, never a read-then-write pair.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error

	// DecrementStock decrements stock by quantity iff stock >= quantity.
	// Returns models.ErrInsufficientStock when the guard fails and
	// models.ErrProductNotFound when the product does not exist.
	DecrementStock(id string, quantity int) error
	// IncrementStock increments stock by quantity unconditionally.
	IncrementStock(id string, quantity int) error
}
