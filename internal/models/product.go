package models

import "gorm.io/gorm"

// Product represents a product in the catalog. Prices are stored in minor
// currency units (e.g. cents). Stock is only ever mutated through the
// inventory service's atomic operations; when TrackInventory is false all
// stock checks are bypassed.
type Product struct {
	ID                string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name              string `json:"name" validate:"required,min=3,max=100"`
	Description       string `json:"description" validate:"omitempty,max=500"`
	Category          string `json:"category" validate:"omitempty,max=100"`
	Price             int64  `json:"price" validate:"required,gt=0"`
	Stock             int    `json:"stock" validate:"gte=0"`
	TrackInventory    bool   `json:"track_inventory" gorm:"default:true"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"gte=0"`
	gorm.Model               // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
