package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"lapak/internal/models"
	"lapak/internal/repositories"
	"lapak/pkg/rabbitmq"
)

// NotificationService records user-facing and operator-facing events as a
// side effect of order state transitions. It is strictly best-effort: a
// failure to persist or publish a notification is logged and dropped, and
// must never fail or roll back the transition that triggered it.
type NotificationService struct {
	repo repositories.NotificationRepository
	mq   *rabbitmq.Client // may be nil when no broker is configured
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo repositories.NotificationRepository, mq *rabbitmq.Client) *NotificationService {
	return &NotificationService{
		repo: repo,
		mq:   mq,
	}
}

// Emit appends a notification record and publishes it to the notification
// queue. Both writes are fire-and-forget.
func (s *NotificationService) Emit(nType, message, orderID string, metadata map[string]interface{}) {
	var encoded string
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("Warning: failed to marshal notification metadata: %v", err)
		} else {
			encoded = string(raw)
		}
	}

	notification := &models.Notification{
		Type:     nType,
		Message:  message,
		OrderID:  orderID,
		Metadata: encoded,
	}
	if s.repo != nil {
		if err := s.repo.Create(notification); err != nil {
			log.Printf("Warning: failed to persist %s notification for order %s: %v", nType, orderID, err)
		}
	}

	if s.mq == nil {
		return
	}
	event := map[string]interface{}{
		"type":     nType,
		"message":  message,
		"orderID":  orderID,
		"metadata": metadata,
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Warning: failed to marshal %s notification event: %v", nType, err)
		return
	}
	if err := s.mq.PublishNotification(body); err != nil {
		log.Printf("Warning: failed to publish %s notification for order %s: %v", nType, orderID, err)
	}
}

// OrderConfirmed emits the user-facing payment confirmation event.
func (s *NotificationService) OrderConfirmed(order *models.Order) {
	s.Emit(models.NotificationOrderConfirmed,
		fmt.Sprintf("Order %s confirmed, payment %s received", order.ID, order.ProviderPaymentID),
		order.ID,
		map[string]interface{}{
			"userID": order.UserID,
			"amount": order.TotalAmount,
		})
}

// OrderCancelled emits the cancellation event. previousStatus lets operators
// audit cancellations of already-shipped orders, whose restoration is a
// business decision rather than an automatic return-to-stock.
func (s *NotificationService) OrderCancelled(order *models.Order, previousStatus models.OrderStatus, reason string) {
	s.Emit(models.NotificationOrderCancelled,
		fmt.Sprintf("Order %s cancelled", order.ID),
		order.ID,
		map[string]interface{}{
			"userID":         order.UserID,
			"previousStatus": string(previousStatus),
			"reason":         reason,
		})
}

// PaymentFailed emits the payment rejection event.
func (s *NotificationService) PaymentFailed(order *models.Order, reason string) {
	s.Emit(models.NotificationPaymentFailed,
		fmt.Sprintf("Payment for order %s failed: %s", order.ID, reason),
		order.ID,
		map[string]interface{}{
			"userID": order.UserID,
			"reason": reason,
		})
}

// ManualRefundRequired surfaces the one failure mode that must never be
// silent: the provider captured the payment but the local inventory commit
// failed, so an operator has to refund out of band.
func (s *NotificationService) ManualRefundRequired(order *models.Order) {
	s.Emit(models.NotificationManualRefund,
		fmt.Sprintf("Order %s requires a manual refund: payment %s captured but stock commit failed",
			order.ID, order.ProviderPaymentID),
		order.ID,
		map[string]interface{}{
			"userID":            order.UserID,
			"providerOrderID":   order.ProviderOrderID,
			"providerPaymentID": order.ProviderPaymentID,
			"amount":            order.TotalAmount,
		})
}

// LowStock emits the operator restock alert.
func (s *NotificationService) LowStock(product *models.Product) {
	s.Emit(models.NotificationLowStock,
		fmt.Sprintf("Product %s (%s) is low on stock: %d remaining", product.Name, product.ID, product.Stock),
		"",
		map[string]interface{}{
			"productID": product.ID,
			"stock":     product.Stock,
			"threshold": product.LowStockThreshold,
		})
}

// StalePendingOrders reports pending orders that never saw a payment
// callback, for operator reconciliation.
func (s *NotificationService) StalePendingOrders(orders []models.Order) {
	if len(orders) == 0 {
		return
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	s.Emit(models.NotificationStalePendingOrders,
		fmt.Sprintf("%d pending orders have not completed payment: %s", len(orders), strings.Join(ids, ", ")),
		"",
		map[string]interface{}{
			"orderIDs": ids,
		})
}

// GetAll returns every notification, newest first.
func (s *NotificationService) GetAll() ([]models.Notification, error) {
	return s.repo.GetAll()
}

// GetUnread returns unread notifications, newest first.
func (s *NotificationService) GetUnread() ([]models.Notification, error) {
	return s.repo.GetUnread()
}

// MarkRead flags a notification as read.
func (s *NotificationService) MarkRead(id uint) error {
	return s.repo.MarkRead(id)
}
