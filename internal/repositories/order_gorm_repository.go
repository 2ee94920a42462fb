package repositories

import (
	"errors"
	"fmt"
	"time"

	"lapak/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetAll retrieves all orders with their line items.
func (r *GORMOrderRepository) GetAll() ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByProviderOrderID retrieves the order registered under a payment
// provider order reference.
func (r *GORMOrderRepository) GetByProviderOrderID(providerOrderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").First(&order, "provider_order_id = ?", providerOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: provider order %s", models.ErrOrderNotFound, providerOrderID)
		}
		return nil, fmt.Errorf("failed to get order by provider order ID %s: %w", providerOrderID, err)
	}
	return &order, nil
}

// GetByUser retrieves all orders belonging to a user.
func (r *GORMOrderRepository) GetByUser(userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").Where("user_id = ?", userID).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// Create persists a new order and its line items.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// ClaimTransition moves the order from `from` to `to` as one guarded
// update. The status guard in the WHERE clause is what serializes racing
// confirm/cancel attempts: only one caller's UPDATE matches a row.
func (r *GORMOrderRepository) ClaimTransition(id string, from, to models.OrderStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to transition order %s to %s: %w", id, to, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, fmt.Errorf("failed to transition order %s to %s: %w", id, to, err)
		}
		if count == 0 {
			return false, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
		}
		return false, nil // lost the claim, order no longer in `from`
	}
	return true, nil
}

// AttachProviderReference records the provider order reference on a newly
// registered order.
func (r *GORMOrderRepository) AttachProviderReference(id, providerOrderID string) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"provider_order_id": providerOrderID,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to attach provider reference to order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	return nil
}

// SetPaymentReference records the provider payment id and signature after a
// verified callback.
func (r *GORMOrderRepository) SetPaymentReference(id, providerPaymentID, signature string) error {
	res := r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"provider_payment_id": providerPaymentID,
			"provider_signature":  signature,
			"updated_at":          time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to set payment reference on order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	return nil
}

// FindStalePending returns pending orders created before the cutoff.
func (r *GORMOrderRepository) FindStalePending(cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").
		Where("status = ? AND created_at < ?", models.StatusPending, cutoff).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to find stale pending orders: %w", err)
	}
	return orders, nil
}
