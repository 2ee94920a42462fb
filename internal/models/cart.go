package models

import "time"

// CartItem is a product/quantity pair in a user's cart.
type CartItem struct {
	ID        uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	CartID    uint   `json:"-" gorm:"index"`
	ProductID string `json:"product_id" gorm:"type:varchar(36)"`
	Quantity  int    `json:"quantity"`
}

// Cart holds the items a user has staged for checkout. It is read when a
// checkout request carries no explicit line items and cleared once payment
// is confirmed.
type Cart struct {
	ID        uint       `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID    string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	Items     []CartItem `json:"items" gorm:"foreignKey:CartID"`
	UpdatedAt time.Time  `json:"updated_at"`
}
