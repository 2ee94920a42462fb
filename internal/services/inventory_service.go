package services

import (
	"errors"
	"fmt"
	"log"

	"lapak/internal/models"
	"lapak/internal/repositories"
)

// InventoryService is the inventory ledger: the sole authority on stock
// mutation. It guarantees that the sum of committed quantities for a product
// never exceeds the stock added, across concurrent requests, by delegating
// every decrement to the repository's atomic conditional update.
type InventoryService struct {
	productRepo repositories.ProductRepository
	notifier    *NotificationService // may be nil; low-stock alerts only
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(productRepo repositories.ProductRepository, notifier *NotificationService) *InventoryService {
	return &InventoryService{
		productRepo: productRepo,
		notifier:    notifier,
	}
}

// Availability is the advisory result of a pre-flight stock check.
type Availability struct {
	Available    bool `json:"available"`
	CurrentStock int  `json:"current_stock"`
}

// CheckAvailability reports whether a product can currently cover the
// requested quantity. It does not reserve stock: the answer can be stale by
// the time payment is confirmed, and Commit remains the sole authority.
func (s *InventoryService) CheckAvailability(productID string, quantity int) (Availability, error) {
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return Availability{}, err
	}
	if !product.TrackInventory {
		return Availability{Available: true, CurrentStock: product.Stock}, nil
	}
	return Availability{
		Available:    product.Stock >= quantity,
		CurrentStock: product.Stock,
	}, nil
}

// Commit atomically decrements stock for every line item, all-or-nothing.
// If any item fails with insufficient stock, every decrement already applied
// is restored before the error is returned, so the caller never observes a
// partial commit. Products with inventory tracking disabled are no-ops.
func (s *InventoryService) Commit(items []models.LineItem) error {
	committed := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			s.rollback(committed)
			return fmt.Errorf("inventory commit failed for product %s: %w", item.ProductID, err)
		}
		if !product.TrackInventory {
			continue
		}

		if err := s.productRepo.DecrementStock(item.ProductID, item.Quantity); err != nil {
			s.rollback(committed)
			if errors.Is(err, models.ErrInsufficientStock) {
				return err
			}
			return fmt.Errorf("inventory commit failed for product %s: %w", item.ProductID, err)
		}
		committed = append(committed, item)

		s.alertIfLowStock(item.ProductID)
	}
	return nil
}

// Restore atomically increments stock for every line item of a previously
// committed order. Increments are unconditional; no upper bound is enforced.
func (s *InventoryService) Restore(items []models.LineItem) error {
	for _, item := range items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			return fmt.Errorf("inventory restore failed for product %s: %w", item.ProductID, err)
		}
		if !product.TrackInventory {
			continue
		}
		if err := s.productRepo.IncrementStock(item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("inventory restore failed for product %s: %w", item.ProductID, err)
		}
	}
	return nil
}

// rollback undoes the decrements applied so far in a failed commit.
func (s *InventoryService) rollback(committed []models.LineItem) {
	for _, item := range committed {
		if err := s.productRepo.IncrementStock(item.ProductID, item.Quantity); err != nil {
			// Nothing left to do besides making the inconsistency visible.
			log.Printf("ERROR: failed to roll back stock for product %s (qty %d): %v",
				item.ProductID, item.Quantity, err)
		}
	}
}

// alertIfLowStock emits a best-effort restock alert after a decrement.
func (s *InventoryService) alertIfLowStock(productID string) {
	if s.notifier == nil {
		return
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		log.Printf("Warning: failed to re-read product %s for low-stock check: %v", productID, err)
		return
	}
	if product.TrackInventory && product.Stock <= product.LowStockThreshold {
		s.notifier.LowStock(product)
	}
}
