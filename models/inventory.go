package models

import "time"

// Inventory is the stock ledger row for a single menu item.
type Inventory struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	MenuItemID        uint      `json:"menu_item_id" gorm:"uniqueIndex;not null"`
	MenuItem          *MenuItem `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	Quantity          int       `json:"quantity" gorm:"not null;default:0;check:quantity >= 0"`
	LowStockThreshold int       `json:"low_stock_threshold" gorm:"not null;default:0"`
	Unit              string    `json:"unit,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsLow reports whether stock has reached the alert threshold.
func (i Inventory) IsLow() bool {
	return i.Quantity <= i.LowStockThreshold
}
