package repositories

import (
	"lapak/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	GetByUser(userID string) (*models.Cart, error)
	Save(cart *models.Cart) error
	// Clear removes the user's cart items. Clearing an absent cart is not
	// an error.
	Clear(userID string) error
}
