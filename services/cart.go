package services

import (
	"context"
	"errors"
	"log/slog"

	"canteen-api/apperr"
	"canteen-api/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxLineQty caps the units of one menu item in a cart line, an order line
// and the per-item total of an order.
const MaxLineQty = 1000

// CartService manages the single persisted cart each user owns.
type CartService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewCartService(db *gorm.DB, log *slog.Logger) *CartService {
	return &CartService{db: db, log: log}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *CartService) Get(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cart, err = ensureCart(tx, userID)
		return err
	})
	return cart, err
}

// AddItem puts qty units of a menu item in the cart, merging with an
// existing line. Quantities below 1 are treated as 1.
func (s *CartService) AddItem(ctx context.Context, userID, menuItemID uint, qty int) (*models.Cart, error) {
	qty = max(1, qty)
	if qty > MaxLineQty {
		return nil, apperr.New(apperr.KindValidation, "qty must be at most %d", MaxLineQty)
	}
	return s.mutate(ctx, userID, func(tx *gorm.DB, cart *models.Cart) error {
		var item models.MenuItem
		err := tx.First(&item, menuItemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "Menu item not found")
		}
		if err != nil {
			return apperr.Internal(err, "load menu item")
		}

		if line := findLine(cart, menuItemID); line != nil {
			if line.Qty > MaxLineQty-qty {
				return apperr.New(apperr.KindValidation, "qty for %s must be at most %d", line.Name, MaxLineQty)
			}
			return saveLine(tx, line.ID, line.Qty+qty)
		}
		line := models.CartItem{
			CartID:     cart.ID,
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Qty:        qty,
			Position:   nextPosition(cart),
		}
		if err := tx.Create(&line).Error; err != nil {
			return apperr.Internal(err, "add cart item")
		}
		return nil
	})
}

// SetQty overwrites a line's quantity; zero or less removes the line.
func (s *CartService) SetQty(ctx context.Context, userID, menuItemID uint, qty int) (*models.Cart, error) {
	if qty > MaxLineQty {
		return nil, apperr.New(apperr.KindValidation, "qty must be at most %d", MaxLineQty)
	}
	return s.mutate(ctx, userID, func(tx *gorm.DB, cart *models.Cart) error {
		line := findLine(cart, menuItemID)
		if line == nil {
			return apperr.New(apperr.KindNotFound, "Item not in cart")
		}
		if qty <= 0 {
			return deleteLine(tx, line.ID)
		}
		return saveLine(tx, line.ID, qty)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, menuItemID uint) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(tx *gorm.DB, cart *models.Cart) error {
		line := findLine(cart, menuItemID)
		if line == nil {
			return apperr.New(apperr.KindNotFound, "Item not in cart")
		}
		return deleteLine(tx, line.ID)
	})
}

func (s *CartService) Clear(ctx context.Context, userID uint) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(tx *gorm.DB, cart *models.Cart) error {
		return clearCart(tx, cart.ID)
	})
}

// mutate runs fn against the user's cart and rewrites the totals before
// committing.
func (s *CartService) mutate(ctx context.Context, userID uint, fn func(tx *gorm.DB, cart *models.Cart) error) (*models.Cart, error) {
	var cart *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := ensureCart(tx, userID)
		if err != nil {
			return err
		}
		if err := fn(tx, current); err != nil {
			return err
		}
		cart, err = loadCart(tx, userID)
		if err != nil {
			return err
		}
		cart.Recalc()
		return tx.Model(&models.Cart{}).Where("id = ?", cart.ID).
			Updates(map[string]any{"subtotal": cart.Subtotal, "total": cart.Total}).Error
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			s.log.Error("cart update failed", "user_id", userID, "error", err)
		}
		return nil, err
	}
	return cart, nil
}

// ensureCart creates the cart row if missing. Concurrent first requests
// collide on the unique user index and both read the same row back.
func ensureCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	fresh := models.Cart{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, apperr.Internal(err, "create cart")
	}
	return loadCart(tx, userID)
}

// loadCart returns the user's cart with items in insertion order, or a
// NotFound error when the user has none.
func loadCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position, id")
	}).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "Cart not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load cart")
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

func clearCart(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return apperr.Internal(err, "clear cart")
	}
	err := tx.Model(&models.Cart{}).Where("id = ?", cartID).
		Updates(map[string]any{"subtotal": decimal.Zero, "total": decimal.Zero}).Error
	if err != nil {
		return apperr.Internal(err, "reset cart totals")
	}
	return nil
}

func findLine(cart *models.Cart, menuItemID uint) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].MenuItemID == menuItemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func nextPosition(cart *models.Cart) int {
	pos := 0
	for _, it := range cart.Items {
		if it.Position >= pos {
			pos = it.Position + 1
		}
	}
	return pos
}

func saveLine(tx *gorm.DB, lineID uint, qty int) error {
	if err := tx.Model(&models.CartItem{}).Where("id = ?", lineID).Update("qty", qty).Error; err != nil {
		return apperr.Internal(err, "update cart item")
	}
	return nil
}

func deleteLine(tx *gorm.DB, lineID uint) error {
	if err := tx.Delete(&models.CartItem{}, lineID).Error; err != nil {
		return apperr.Internal(err, "remove cart item")
	}
	return nil
}
