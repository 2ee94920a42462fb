package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// validNext is the order status transition table. Delivered and cancelled
// are terminal.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	return len(validNext[s]) == 0
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s OrderStatus) bool {
	_, ok := validNext[s]
	return ok
}

// committedStatuses are the states in which inventory has been committed for
// the order, so a cancellation must restore it. Cancelling a pending order
// never touches inventory.
var committedStatuses = map[OrderStatus]bool{
	StatusConfirmed:  true,
	StatusProcessing: true,
	StatusShipped:    true,
}

// HasCommittedInventory reports whether stock was committed in this status.
func (s OrderStatus) HasCommittedInventory() bool {
	return committedStatuses[s]
}

// LineItem is a single product/quantity pair within an order. The product
// snapshot (name, category, unit price) is captured at order-creation time
// and never re-read from the live catalog afterwards, so historical orders
// are unaffected by later catalog edits.
type LineItem struct {
	ID         uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID    string `json:"-" gorm:"index;type:varchar(36)"`
	ProductID  string `json:"product_id" gorm:"type:varchar(36)"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	TotalPrice int64  `json:"total_price"`
}

// ShippingAddress is the address snapshot stored with the order.
type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order represents a customer order. TotalAmount always equals the sum of
// the line item totals, computed from the catalog at creation time.
type Order struct {
	ID                   string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID               string          `json:"user_id" gorm:"index;type:varchar(36)"`
	Items                []LineItem      `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount          int64           `json:"total_amount"`
	Currency             string          `json:"currency" gorm:"type:varchar(3)"`
	Status               OrderStatus     `json:"status" gorm:"index;type:varchar(20)"`
	ProviderOrderID      string          `json:"provider_order_id" gorm:"index"`
	ProviderPaymentID    string          `json:"provider_payment_id"`
	ProviderSignature    string          `json:"-"`
	FailureReason        string          `json:"failure_reason,omitempty"`
	RequiresManualRefund bool            `json:"requires_manual_refund"`
	ShippingAddress      ShippingAddress `json:"shipping_address" gorm:"embedded;embeddedPrefix:ship_"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
