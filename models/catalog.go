package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;not null"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns "Hot Drinks & Tea" into "hot-drinks-tea".
func Slugify(name string) string {
	s := slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

// BeforeSave fills the slug from the name when none was given.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}

type MenuItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"not null;index"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	ImageURL    string          `json:"image_url,omitempty"`
	CategoryID  uint            `json:"category_id" gorm:"not null;index"`
	Category    *Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	// IsAvailable mirrors Inventory.Quantity > 0 and is rewritten by every
	// inventory mutation; the ledger stays authoritative.
	IsAvailable bool      `json:"is_available" gorm:"default:true;index"`
	Tags        []string  `json:"tags" gorm:"serializer:json"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoundMoney rounds an amount to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
