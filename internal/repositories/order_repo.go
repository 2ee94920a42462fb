package repositories

import (
	"time"

	"lapak/internal/models"
)

// OrderRepository defines the interface for order data access.
//
// ClaimTransition is the per-order mutual-exclusion primitive: it moves an
// order from one status to another as a single guarded update, so of two
// concurrent callers (e.g. a payment confirmation racing a cancellation)
// exactly one observes claimed == true.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByProviderOrderID(providerOrderID string) (*models.Order, error)
	GetByUser(userID string) ([]models.Order, error)
	Create(order *models.Order) error

	// ClaimTransition sets status to `to` iff the current status is `from`,
	// applying extra column updates in the same statement. claimed reports
	// whether this caller won the transition.
	ClaimTransition(id string, from, to models.OrderStatus, extra map[string]interface{}) (claimed bool, err error)

	AttachProviderReference(id, providerOrderID string) error
	SetPaymentReference(id, providerPaymentID, signature string) error

	// FindStalePending returns pending orders created before the cutoff,
	// for operator reconciliation of orphaned checkouts.
	FindStalePending(cutoff time.Time) ([]models.Order, error)
}
