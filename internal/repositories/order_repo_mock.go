package repositories

import (
	"fmt"
	"sync"
	"time"

	"lapak/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// ClaimTransition performs its check-and-set under the write lock, matching
// the atomicity of the GORM implementation's guarded update.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// GetAll returns all orders.
func (r *MockOrderRepository) GetAll() ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orderList = append(orderList, order)
	}
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	return &order, nil
}

// GetByProviderOrderID returns the order carrying a provider order reference.
func (r *MockOrderRepository) GetByProviderOrderID(providerOrderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.ProviderOrderID == providerOrderID {
			o := order
			return &o, nil
		}
	}
	return nil, fmt.Errorf("%w: provider order %s", models.ErrOrderNotFound, providerOrderID)
}

// GetByUser returns all orders belonging to a user.
func (r *MockOrderRepository) GetByUser(userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orderList []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			orderList = append(orderList, order)
		}
	}
	return orderList, nil
}

// Create adds a new order.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

// ClaimTransition sets status to `to` iff the current status is `from`.
func (r *MockOrderRepository) ClaimTransition(id string, from, to models.OrderStatus, extra map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	if reason, ok := extra["failure_reason"].(string); ok {
		order.FailureReason = reason
	}
	if flag, ok := extra["requires_manual_refund"].(bool); ok {
		order.RequiresManualRefund = flag
	}
	r.orders[id] = order
	return true, nil
}

// AttachProviderReference records the provider order reference.
func (r *MockOrderRepository) AttachProviderReference(id, providerOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	order.ProviderOrderID = providerOrderID
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// SetPaymentReference records the provider payment id and signature.
func (r *MockOrderRepository) SetPaymentReference(id, providerPaymentID, signature string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	order.ProviderPaymentID = providerPaymentID
	order.ProviderSignature = signature
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// FindStalePending returns pending orders created before the cutoff.
func (r *MockOrderRepository) FindStalePending(cutoff time.Time) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []models.Order
	for _, order := range r.orders {
		if order.Status == models.StatusPending && order.CreatedAt.Before(cutoff) {
			stale = append(stale, order)
		}
	}
	return stale, nil
}
