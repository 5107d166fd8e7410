package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	UserID    uint            `json:"user_id" gorm:"uniqueIndex;not null"`
	Items     []CartItem      `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null;default:0"`
	Total     decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CartItem struct {
	ID         uint            `json:"-" gorm:"primaryKey"`
	CartID     uint            `json:"-" gorm:"not null;uniqueIndex:idx_cart_menu_item"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null;uniqueIndex:idx_cart_menu_item"`
	Name       string          `json:"name" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Qty        int             `json:"qty" gorm:"not null"`
	Position   int             `json:"-" gorm:"not null;default:0"`
}

// Recalc refreshes the derived totals from the line items.
func (c *Cart) Recalc() {
	subtotal := decimal.Zero
	for _, it := range c.Items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	c.Subtotal = RoundMoney(subtotal)
	c.Total = c.Subtotal // taxes and fees would be added here
}
