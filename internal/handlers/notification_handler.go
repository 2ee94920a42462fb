package handlers

import (
	"log"
	"strconv"

	"lapak/internal/services"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler exposes the operator-facing notification feed. This
// is where RequiresManualRefund conditions surface.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		service: service,
	}
}

// RegisterRoutes registers the notification routes with the Fiber app.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notificationRoutes := router.Group("/notifications")
	notificationRoutes.Get("/", h.HandleGetNotifications)
	notificationRoutes.Patch("/:id/read", h.HandleMarkRead)
}

// HandleGetNotifications retrieves notifications, newest first. Pass
// ?unread=true for unread only.
func (h *NotificationHandler) HandleGetNotifications(c *fiber.Ctx) error {
	var (
		notifications interface{}
		err           error
	)
	if c.QueryBool("unread") {
		notifications, err = h.service.GetUnread()
	} else {
		notifications, err = h.service.GetAll()
	}
	if err != nil {
		log.Printf("Error getting notifications: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve notifications",
			"error":   err.Error(),
		})
	}
	return c.JSON(notifications)
}

// HandleMarkRead flags a notification as read.
func (h *NotificationHandler) HandleMarkRead(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid notification id",
		})
	}
	if err := h.service.MarkRead(uint(id)); err != nil {
		log.Printf("Error marking notification %d as read: %v", id, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Could not mark notification as read",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Notification marked as read",
	})
}
