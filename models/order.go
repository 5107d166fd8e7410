package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a canteen order
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            uint                 `json:"id" gorm:"primaryKey"`
	UserID        uint                 `json:"user_id" gorm:"not null;index"`
	Items         []OrderItem          `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal      decimal.Decimal      `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Total         decimal.Decimal      `json:"total" gorm:"type:decimal(10,2);not null"`
	Status        OrderStatus          `json:"status" gorm:"not null;default:'placed';index"`
	Notes         string               `json:"notes,omitempty"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// OrderItem is the name/price snapshot taken at purchase time.
type OrderItem struct {
	ID         uint            `json:"-" gorm:"primaryKey"`
	OrderID    uint            `json:"-" gorm:"not null;index"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null"`
	Name       string          `json:"name" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Qty        int             `json:"qty" gorm:"not null"`
	Position   int             `json:"-" gorm:"not null;default:0"`
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
