package repositories

import (
	"lapak/internal/models"
)

// NotificationRepository defines the interface for notification data access.
// Notifications are append-only records; nothing in the engine updates them
// besides the read flag.
type NotificationRepository interface {
	Create(notification *models.Notification) error
	GetAll() ([]models.Notification, error)
	GetUnread() ([]models.Notification, error)
	MarkRead(id uint) error
}
