package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"canteen-api/apperr"
	"canteen-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger owns the per-item stock counts. Every write also rewrites the
// menu item's availability flag inside the same transaction.
type Ledger struct {
	db  *gorm.DB
	log *slog.Logger
	now func() time.Time
}

func NewLedger(db *gorm.DB, log *slog.Logger) *Ledger {
	return &Ledger{db: db, log: log, now: time.Now}
}

type InventoryQuery struct {
	LowStockOnly bool
	Page
}

type InventoryInput struct {
	MenuItemID        uint
	Quantity          int
	LowStockThreshold int
	Unit              string
}

// InventoryUpdate carries optional fields; nil means "leave unchanged".
// Adjust is applied before Quantity, so an absolute value wins.
type InventoryUpdate struct {
	Quantity          *int
	Adjust            *int
	LowStockThreshold *int
	Unit              *string
}

func (u InventoryUpdate) touchesQuantity() bool {
	return u.Quantity != nil || u.Adjust != nil
}

func (l *Ledger) Get(ctx context.Context, menuItemID uint) (*models.Inventory, error) {
	var inv models.Inventory
	err := l.db.WithContext(ctx).Preload("MenuItem").
		Where("menu_item_id = ?", menuItemID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "Inventory not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load inventory")
	}
	return &inv, nil
}

func (l *Ledger) List(ctx context.Context, q InventoryQuery) ([]models.Inventory, int64, Page, error) {
	page := q.Page.normalize(50, 200)
	query := l.db.WithContext(ctx).Model(&models.Inventory{})
	if q.LowStockOnly {
		query = query.Where("quantity <= low_stock_threshold")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, page, apperr.Internal(err, "count inventory")
	}
	var items []models.Inventory
	err := query.Preload("MenuItem").Order("menu_item_id").
		Offset(page.offset()).Limit(page.Limit).Find(&items).Error
	if err != nil {
		return nil, 0, page, apperr.Internal(err, "list inventory")
	}
	return items, total, page, nil
}

// Create registers the stock row for a menu item that has none yet.
func (l *Ledger) Create(ctx context.Context, in InventoryInput) (*models.Inventory, error) {
	var inv models.Inventory
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireMenuItem(tx, in.MenuItemID, apperr.KindValidation); err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&models.Inventory{}).Where("menu_item_id = ?", in.MenuItemID).Count(&existing).Error; err != nil {
			return apperr.Internal(err, "check inventory")
		}
		if existing > 0 {
			return apperr.New(apperr.KindConflict, "Inventory already exists for this item")
		}
		inv = models.Inventory{
			MenuItemID:        in.MenuItemID,
			Quantity:          max(0, in.Quantity),
			LowStockThreshold: max(0, in.LowStockThreshold),
			Unit:              in.Unit,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return apperr.Internal(err, "create inventory")
		}
		return syncAvailability(tx, inv.MenuItemID, inv.Quantity)
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("inventory created", "menu_item_id", inv.MenuItemID, "quantity", inv.Quantity)
	return &inv, nil
}

// SetQuantity is the ledger's absolute adjustment (adjustAbsolute); negative
// values floor at 0. Update combines it with the other fields for the admin
// PATCH route.
func (l *Ledger) SetQuantity(ctx context.Context, menuItemID uint, quantity int) (*models.Inventory, error) {
	return l.Update(ctx, menuItemID, InventoryUpdate{Quantity: &quantity})
}

// Adjust is the ledger's relative adjustment (adjustRelative); the result
// floors at 0.
func (l *Ledger) Adjust(ctx context.Context, menuItemID uint, delta int) (*models.Inventory, error) {
	return l.Update(ctx, menuItemID, InventoryUpdate{Adjust: &delta})
}

// Update applies an administrative correction. A missing row is created
// when a quantity or adjustment is supplied, otherwise it is NotFound.
func (l *Ledger) Update(ctx context.Context, menuItemID uint, u InventoryUpdate) (*models.Inventory, error) {
	var inv models.Inventory
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).Where("menu_item_id = ?", menuItemID).First(&inv).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !u.touchesQuantity() {
				return apperr.New(apperr.KindNotFound, "Inventory not found")
			}
			if err := requireMenuItem(tx, menuItemID, apperr.KindNotFound); err != nil {
				return err
			}
			inv = models.Inventory{MenuItemID: menuItemID}
		case err != nil:
			return apperr.Internal(err, "load inventory")
		}

		if u.Adjust != nil {
			inv.Quantity = max(0, inv.Quantity+*u.Adjust)
		}
		if u.Quantity != nil {
			inv.Quantity = max(0, *u.Quantity)
		}
		if u.LowStockThreshold != nil {
			inv.LowStockThreshold = max(0, *u.LowStockThreshold)
		}
		if u.Unit != nil {
			inv.Unit = *u.Unit
		}
		if err := tx.Save(&inv).Error; err != nil {
			return apperr.Internal(err, "save inventory")
		}
		return syncAvailability(tx, menuItemID, inv.Quantity)
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("inventory updated", "menu_item_id", menuItemID, "quantity", inv.Quantity)
	return &inv, nil
}

// ---- transaction helpers shared with the order coordinator ----

// lockForUpdate adds a row lock where the dialect has one. SQLite already
// serialises writers through its single connection.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// loadInventories locks the ledger rows for ids in ascending id order so two
// orders with overlapping items always queue in the same sequence.
func loadInventories(tx *gorm.DB, ids []uint) (map[uint]models.Inventory, error) {
	sorted := sortedIDs(ids)
	var rows []models.Inventory
	if err := lockForUpdate(tx).Where("menu_item_id IN ?", sorted).Order("menu_item_id").Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err, "load inventory")
	}
	out := make(map[uint]models.Inventory, len(rows))
	for _, r := range rows {
		out[r.MenuItemID] = r
	}
	return out, nil
}

// decrementStock is a compare-and-swap debit: it only succeeds if enough
// stock is still present at write time.
func decrementStock(tx *gorm.DB, menuItemID uint, qty int, now time.Time) (bool, error) {
	res := tx.Model(&models.Inventory{}).
		Where("menu_item_id = ? AND quantity >= ?", menuItemID, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, apperr.Internal(res.Error, "decrement inventory")
	}
	return res.RowsAffected == 1, nil
}

func creditStock(tx *gorm.DB, menuItemID uint, qty int, now time.Time) error {
	res := tx.Model(&models.Inventory{}).
		Where("menu_item_id = ?", menuItemID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": now,
		})
	if res.Error != nil {
		return apperr.Internal(res.Error, "credit inventory")
	}
	return nil
}

func currentQuantity(tx *gorm.DB, menuItemID uint) (int, error) {
	var qty int
	err := tx.Model(&models.Inventory{}).Select("quantity").
		Where("menu_item_id = ?", menuItemID).Scan(&qty).Error
	if err != nil {
		return 0, apperr.Internal(err, "read inventory")
	}
	return qty, nil
}

func syncAvailability(tx *gorm.DB, menuItemID uint, quantity int) error {
	err := tx.Model(&models.MenuItem{}).Where("id = ?", menuItemID).
		Update("is_available", quantity > 0).Error
	if err != nil {
		return apperr.Internal(err, "update availability")
	}
	return nil
}

func requireMenuItem(tx *gorm.DB, menuItemID uint, kind apperr.Kind) error {
	var n int64
	if err := tx.Model(&models.MenuItem{}).Where("id = ?", menuItemID).Count(&n).Error; err != nil {
		return apperr.Internal(err, "load menu item")
	}
	if n == 0 {
		return apperr.New(kind, "Menu item not found")
	}
	return nil
}

func sortedIDs(ids []uint) []uint {
	out := make([]uint, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
