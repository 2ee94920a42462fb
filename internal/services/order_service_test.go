package services_test

import (
	"testing"

	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/internal/services"

	"github.com/stretchr/testify/assert"
)

func newOrderService(t *testing.T) (*services.OrderService, *repositories.MockProductRepository, *repositories.MockOrderRepository) {
	t.Helper()
	productRepo := repositories.NewMockProductRepository()
	orderRepo := repositories.NewMockOrderRepository()
	inventory := services.NewInventoryService(productRepo, nil)
	service := services.NewOrderService(orderRepo, productRepo, inventory, nil)
	return service, productRepo, orderRepo
}

func TestCreateOrderComputesServerSidePricing(t *testing.T) {
	service, productRepo, _ := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)
	seedProduct(t, productRepo, "p2", 10, true)

	p2, err := productRepo.GetByID("p2")
	assert.NoError(t, err)
	p2.Price = 2500
	assert.NoError(t, productRepo.Update(p2))

	order, err := service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 3},
	}, models.ShippingAddress{City: "Jakarta"}, "IDR")
	assert.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, int64(1000*2), order.Items[0].TotalPrice)
	assert.Equal(t, int64(2500*3), order.Items[1].TotalPrice)
	assert.Equal(t, int64(1000*2+2500*3), order.TotalAmount)

	// Stock is untouched until payment is confirmed.
	assert.Equal(t, 10, currentStock(t, productRepo, "p1"))
}

func TestCreateOrderSnapshotsAreImmutable(t *testing.T) {
	service, productRepo, orderRepo := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)

	order, err := service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 1},
	}, models.ShippingAddress{}, "IDR")
	assert.NoError(t, err)

	// A later catalog price change must not affect the persisted order.
	product, err := productRepo.GetByID("p1")
	assert.NoError(t, err)
	product.Price = 99999
	assert.NoError(t, productRepo.Update(product))

	stored, err := orderRepo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), stored.Items[0].UnitPrice)
	assert.Equal(t, int64(1000), stored.TotalAmount)
}

func TestCreateOrderValidation(t *testing.T) {
	service, productRepo, _ := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)

	_, err := service.CreateOrder("user-1", nil, models.ShippingAddress{}, "IDR")
	assert.ErrorIs(t, err, models.ErrEmptyOrder)

	_, err = service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 0},
	}, models.ShippingAddress{}, "IDR")
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	_, err = service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "missing", Quantity: 1},
	}, models.ShippingAddress{}, "IDR")
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestTransitionRejectsSkippedStates(t *testing.T) {
	service, productRepo, _ := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)

	order, err := service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 1},
	}, models.ShippingAddress{}, "IDR")
	assert.NoError(t, err)

	err = service.Transition(order.ID, models.StatusDelivered)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	// State unchanged after the rejected transition.
	stored, err := service.GetOrderByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	err = service.Transition(order.ID, "bogus")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestTransitionWalksLifecycle(t *testing.T) {
	service, productRepo, _ := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)

	order, err := service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 1},
	}, models.ShippingAddress{}, "IDR")
	assert.NoError(t, err)

	for _, status := range []models.OrderStatus{
		models.StatusConfirmed,
		models.StatusProcessing,
		models.StatusShipped,
		models.StatusDelivered,
	} {
		assert.NoError(t, service.Transition(order.ID, status))
	}

	// Delivered is terminal.
	err = service.Transition(order.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestCancelPendingLeavesStockAlone(t *testing.T) {
	service, productRepo, _ := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)

	order, err := service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 4},
	}, models.ShippingAddress{}, "IDR")
	assert.NoError(t, err)

	assert.NoError(t, service.Cancel(order.ID))

	stored, err := service.GetOrderByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	// No stock was committed, so none is restored.
	assert.Equal(t, 10, currentStock(t, productRepo, "p1"))
}

func TestCancelConfirmedRestoresCommittedStock(t *testing.T) {
	service, productRepo, _ := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)
	seedProduct(t, productRepo, "p2", 10, true)

	inventory := services.NewInventoryService(productRepo, nil)

	order, err := service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 3},
	}, models.ShippingAddress{}, "IDR")
	assert.NoError(t, err)

	assert.NoError(t, service.Transition(order.ID, models.StatusConfirmed))
	assert.NoError(t, inventory.Commit(order.Items))
	assert.Equal(t, 9, currentStock(t, productRepo, "p1"))
	assert.Equal(t, 7, currentStock(t, productRepo, "p2"))

	assert.NoError(t, service.Cancel(order.ID))

	stored, err := service.GetOrderByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, 10, currentStock(t, productRepo, "p1"))
	assert.Equal(t, 10, currentStock(t, productRepo, "p2"))
}

func TestCancelIsRejectedOnTerminalOrders(t *testing.T) {
	service, productRepo, _ := newOrderService(t)
	seedProduct(t, productRepo, "p1", 10, true)

	order, err := service.CreateOrder("user-1", []services.LineItemRequest{
		{ProductID: "p1", Quantity: 1},
	}, models.ShippingAddress{}, "IDR")
	assert.NoError(t, err)

	assert.NoError(t, service.Cancel(order.ID))
	err = service.Cancel(order.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}
