package handlers

import (
	"log"
	"time"

	"lapak/internal/middleware"
	"lapak/internal/models"
	"lapak/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service       *services.OrderService
	staleOrderAge time.Duration
}

// NewOrderHandler creates a new OrderHandler. staleOrderAge is the default
// threshold for the stale-pending query.
func NewOrderHandler(service *services.OrderService, staleOrderAge time.Duration) *OrderHandler {
	return &OrderHandler{
		service:       service,
		staleOrderAge: staleOrderAge,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/stale", h.HandleGetStaleOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	// Operator-driven fulfilment transitions (processing, shipped, ...)
	orderRoutes.Put("/:id/status", h.HandleUpdateOrderStatus)
}

// HandleGetOrders retrieves the authenticated user's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	orders, err := h.service.GetUserOrders(userID)
	if err != nil {
		log.Printf("Error getting orders for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID. Users only see
// their own orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrderByID(orderID)
	if err != nil {
		log.Printf("Error getting order by ID %s: %v", orderID, err)
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"message": "Could not retrieve order",
			"error":   err.Error(),
		})
	}
	if userID := middleware.UserID(c); userID != "" && order.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Order not found",
		})
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels an order from any non-terminal state. If stock
// had been committed, the cancellation restores it.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if err := h.service.Cancel(orderID); err != nil {
		log.Printf("Error cancelling order %s: %v", orderID, err)
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"message": "Could not cancel order",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": string(models.StatusCancelled),
	})
}

// HandleUpdateOrderStatus updates the status of an existing order,
// validated against the transition table.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var updateData struct {
		Status string `json:"status"`
	}

	if err := c.BodyParser(&updateData); err != nil {
		log.Printf("Error parsing request body for status update: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body for status update",
			"error":   err.Error(),
		})
	}
	if updateData.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required for order status update.",
		})
	}

	if err := h.service.Transition(orderID, models.OrderStatus(updateData.Status)); err != nil {
		log.Printf("Error updating order status for order %s: %v", orderID, err)
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"message": "Could not update order status",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": updateData.Status,
	})
}

// HandleGetStaleOrders lists pending orders older than the configured
// threshold, for operator reconciliation of checkouts whose payment never
// completed. An `age` query parameter (Go duration) overrides the default.
func (h *OrderHandler) HandleGetStaleOrders(c *fiber.Ctx) error {
	age := h.staleOrderAge
	if raw := c.Query("age"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid age duration",
				"error":   err.Error(),
			})
		}
		age = parsed
	}

	orders, err := h.service.StalePending(age)
	if err != nil {
		log.Printf("Error finding stale pending orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve stale orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}
