package services

import (
	"context"
	"fmt"
	"time"

	"lapak/internal/gateway"
	"lapak/internal/models"
	"lapak/internal/repositories"
)

// CheckoutItem is the wire shape of a requested line item. Clients send the
// product reference in several shapes (a bare productId, a snake_case
// product_id, or a nested product object); normalization collapses them to
// one canonical LineItemRequest before any business logic runs. Any price
// fields a client sends are ignored.
type CheckoutItem struct {
	ProductID      string               `json:"productId"`
	ProductIDSnake string               `json:"product_id"`
	Product        *CheckoutItemProduct `json:"product"`
	Quantity       int                  `json:"quantity"`
}

// CheckoutItemProduct is the nested product reference some clients send.
type CheckoutItemProduct struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
}

// CheckoutRequest is the body of a checkout call. Items may be empty, in
// which case the user's cart is used instead.
type CheckoutRequest struct {
	Items           []CheckoutItem         `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	Currency        string                 `json:"currency" validate:"required,len=3"`
}

// CheckoutResult is returned to the client so it can hand the provider
// order reference to the payment widget.
type CheckoutResult struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// CheckoutService sequences the checkout flow: availability pre-validation,
// order creation, payment provider registration.
type CheckoutService struct {
	orders          *OrderService
	inventory       *InventoryService
	cartRepo        repositories.CartRepository
	provider        gateway.Provider
	providerTimeout time.Duration
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(orders *OrderService, inventory *InventoryService, cartRepo repositories.CartRepository, provider gateway.Provider, providerTimeout time.Duration) *CheckoutService {
	if providerTimeout <= 0 {
		providerTimeout = 10 * time.Second
	}
	return &CheckoutService{
		orders:          orders,
		inventory:       inventory,
		cartRepo:        cartRepo,
		provider:        provider,
		providerTimeout: providerTimeout,
	}
}

// normalizeItems produces canonical line item requests from the accepted
// client shapes.
func normalizeItems(items []CheckoutItem) ([]LineItemRequest, error) {
	normalized := make([]LineItemRequest, 0, len(items))
	for i, item := range items {
		productID := item.ProductID
		if productID == "" {
			productID = item.ProductIDSnake
		}
		if productID == "" && item.Product != nil {
			productID = item.Product.ID
			if productID == "" {
				productID = item.Product.LegacyID
			}
		}
		if productID == "" {
			return nil, fmt.Errorf("item %d is missing a product reference", i)
		}
		normalized = append(normalized, LineItemRequest{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}
	return normalized, nil
}

// Checkout runs the full checkout sequence for a user: normalize the
// requested items (falling back to the user's cart), pre-validate
// availability, create the pending order, register it with the payment
// provider under a timeout, and attach the provider reference.
//
// The availability check is advisory: stock is not reserved, and the
// authoritative check happens at commit time when payment is confirmed. A
// provider failure leaves the order in pending with nothing committed; such
// orders show up in the stale-pending query.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	items, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items, err = s.itemsFromCart(userID)
		if err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, models.ErrEmptyOrder
	}

	for _, item := range items {
		availability, err := s.inventory.CheckAvailability(item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if !availability.Available {
			return nil, fmt.Errorf("%w: product %s has %d in stock, %d requested",
				models.ErrInsufficientStock, item.ProductID, availability.CurrentStock, item.Quantity)
		}
	}

	order, err := s.orders.CreateOrder(userID, items, req.ShippingAddress, req.Currency)
	if err != nil {
		return nil, err
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	providerOrderID, err := s.provider.CreateProviderOrder(providerCtx, order.TotalAmount, order.Currency, order.ID)
	if err != nil {
		// The order stays pending with nothing committed; operators find it
		// through the stale-pending query if the client never retries.
		return nil, fmt.Errorf("order %s registration failed: %w", order.ID, err)
	}

	if err := s.orders.AttachProviderReference(order.ID, providerOrderID); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID:         order.ID,
		ProviderOrderID: providerOrderID,
		Amount:          order.TotalAmount,
		Currency:        order.Currency,
	}, nil
}

// Cancel cancels an order from any non-terminal state. Inventory
// restoration bookkeeping is handled by the order transition.
func (s *CheckoutService) Cancel(orderID string) error {
	return s.orders.Cancel(orderID)
}

// itemsFromCart loads the user's cart as line item requests.
func (s *CheckoutService) itemsFromCart(userID string) ([]LineItemRequest, error) {
	cart, err := s.cartRepo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	items := make([]LineItemRequest, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, LineItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return items, nil
}
