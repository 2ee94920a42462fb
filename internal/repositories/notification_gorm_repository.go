package repositories

import (
	"fmt"

	"lapak/internal/models"

	"gorm.io/gorm"
)

// GORMNotificationRepository is a GORM implementation of
// NotificationRepository.
type GORMNotificationRepository struct {
	db *gorm.DB
}

// NewGORMNotificationRepository creates a new instance of
// GORMNotificationRepository.
func NewGORMNotificationRepository(db *gorm.DB) *GORMNotificationRepository {
	return &GORMNotificationRepository{
		db: db,
	}
}

// Create appends a notification record.
func (r *GORMNotificationRepository) Create(notification *models.Notification) error {
	if err := r.db.Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetAll retrieves all notifications, newest first.
func (r *GORMNotificationRepository) GetAll() ([]models.Notification, error) {
	var notifications []models.Notification
	if err := r.db.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return notifications, nil
}

// GetUnread retrieves unread notifications, newest first.
func (r *GORMNotificationRepository) GetUnread() ([]models.Notification, error) {
	var notifications []models.Notification
	if err := r.db.Where("read = ?", false).Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to get unread notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read.
func (r *GORMNotificationRepository) MarkRead(id uint) error {
	res := r.db.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification %d as read: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification %d not found", id)
	}
	return nil
}
