package services

import (
	"fmt"
	"time"

	"lapak/internal/models"
	"lapak/internal/repositories"

	"github.com/google/uuid"
)

// LineItemRequest is the canonical product/quantity pair produced by the
// checkout boundary's normalization step. It deliberately carries no price:
// pricing is always recomputed from the catalog at order-creation time, so a
// tampered client payload can never influence what is charged.
type LineItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderService owns order entities and their status transitions. It is the
// single source of truth for what was charged: line-item snapshots are
// frozen at creation time and never re-read from the live catalog.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	inventory   *InventoryService
	notifier    *NotificationService
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, inventory *InventoryService, notifier *NotificationService) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		inventory:   inventory,
		notifier:    notifier,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// GetUserOrders retrieves the orders belonging to a user.
func (s *OrderService) GetUserOrders(userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUser(userID)
}

// CreateOrder validates the requested items, snapshots product data and
// prices from the current catalog, and persists the order in pending. It
// never touches inventory: stock is committed only once payment is
// confirmed.
func (s *OrderService) CreateOrder(userID string, items []LineItemRequest, address models.ShippingAddress, currency string) (*models.Order, error) {
	if len(items) == 0 {
		return nil, models.ErrEmptyOrder
	}

	var totalAmount int64
	lineItems := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %s has quantity %d", models.ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			return nil, err
		}

		lineTotal := product.Price * int64(item.Quantity)
		lineItems = append(lineItems, models.LineItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Category:   product.Category,
			UnitPrice:  product.Price,
			Quantity:   item.Quantity,
			TotalPrice: lineTotal,
		})
		totalAmount += lineTotal
	}

	newOrder := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           lineItems,
		TotalAmount:     totalAmount,
		Currency:        currency,
		Status:          models.StatusPending,
		ShippingAddress: address,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.orderRepo.Create(newOrder); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}
	return newOrder, nil
}

// AttachProviderReference records the payment provider's order reference on
// a pending order.
func (s *OrderService) AttachProviderReference(orderID, providerOrderID string) error {
	return s.orderRepo.AttachProviderReference(orderID, providerOrderID)
}

// Transition moves an order to a new status, enforcing the transition
// table. The move is a conditional claim on the status column, so a racing
// transition (e.g. a confirmation arriving while an operator cancels) has
// exactly one winner; the loser gets ErrInvalidTransition.
//
// A transition into cancelled from a state with committed inventory
// restores stock for every line item exactly once. Cancelling a pending
// order restores nothing, because nothing was committed.
func (s *OrderService) Transition(orderID string, to models.OrderStatus) error {
	if !models.IsValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, to)
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	from := order.Status
	if !models.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
	}

	claimed, err := s.orderRepo.ClaimTransition(orderID, from, to, nil)
	if err != nil {
		return err
	}
	if !claimed {
		// The status moved underneath us; the concurrent winner already
		// performed any bookkeeping.
		return fmt.Errorf("%w: order %s is no longer %s", models.ErrInvalidTransition, orderID, from)
	}

	if to == models.StatusCancelled {
		if from.HasCommittedInventory() {
			if err := s.inventory.Restore(order.Items); err != nil {
				return fmt.Errorf("order %s cancelled but stock restoration failed: %w", orderID, err)
			}
		}
		if s.notifier != nil {
			s.notifier.OrderCancelled(order, from, "order cancelled")
		}
	}
	return nil
}

// Cancel cancels an order from any non-terminal state.
func (s *OrderService) Cancel(orderID string) error {
	return s.Transition(orderID, models.StatusCancelled)
}

// StalePending returns pending orders older than the given age. These are
// checkouts whose payment was never confirmed, left for operator
// reconciliation or expiry.
func (s *OrderService) StalePending(olderThan time.Duration) ([]models.Order, error) {
	return s.orderRepo.FindStalePending(time.Now().Add(-olderThan))
}
