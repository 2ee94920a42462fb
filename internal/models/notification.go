package models

import "time"

// Notification types emitted by order state transitions.
const (
	NotificationOrderConfirmed     = "order_confirmed"
	NotificationOrderCancelled     = "order_cancelled"
	NotificationPaymentFailed      = "payment_failed"
	NotificationManualRefund       = "requires_manual_refund"
	NotificationLowStock           = "low_stock"
	NotificationStalePendingOrders = "stale_pending_orders"
)

// Notification is an append-only record created as a side effect of order
// state transitions. It references an order for lookup only and never
// mutates order or inventory state.
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Type      string    `json:"type" gorm:"index"`
	Message   string    `json:"message"`
	OrderID   string    `json:"order_id,omitempty" gorm:"index;type:varchar(36)"`
	Read      bool      `json:"read"`
	Metadata  string    `json:"metadata,omitempty"` // JSON-encoded free-form payload
	CreatedAt time.Time `json:"created_at"`
}
