package config

import (
	"fmt"
	"log/slog"

	"canteen-api/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedItem struct {
	name, category, price string
	tags                  []string
}

var demoItems = []seedItem{
	{"Masala Chai", "Beverages", "20", []string{"hot", "veg"}},
	{"Coffee", "Beverages", "30", []string{"hot", "veg"}},
	{"Samosa", "Snacks", "15", []string{"veg", "fried"}},
	{"Veg Thali", "Meals", "120", []string{"veg"}},
}

// Seed inserts demo users, catalog and stock. Existing rows are left alone,
// so it is safe to run on every start.
func Seed(db *gorm.DB, log *slog.Logger) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := seedUsers(tx); err != nil {
			return err
		}
		cats := map[string]uint{}
		for i, name := range []string{"Beverages", "Snacks", "Meals"} {
			cat := models.Category{Name: name, Slug: models.Slugify(name), SortOrder: i}
			if err := tx.Where("slug = ?", cat.Slug).FirstOrCreate(&cat).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", name, err)
			}
			cats[name] = cat.ID
		}
		for _, it := range demoItems {
			item := models.MenuItem{
				Name:        it.name,
				Price:       decimal.RequireFromString(it.price),
				CategoryID:  cats[it.category],
				IsAvailable: true,
				Tags:        it.tags,
			}
			if err := tx.Where("name = ?", it.name).FirstOrCreate(&item).Error; err != nil {
				return fmt.Errorf("seed menu item %s: %w", it.name, err)
			}
			inv := models.Inventory{MenuItemID: item.ID, Quantity: 20, LowStockThreshold: 5, Unit: "pcs"}
			if err := tx.Where("menu_item_id = ?", item.ID).FirstOrCreate(&inv).Error; err != nil {
				return fmt.Errorf("seed inventory %s: %w", it.name, err)
			}
			if err := tx.Model(&models.MenuItem{}).Where("id = ?", item.ID).
				Update("is_available", inv.Quantity > 0).Error; err != nil {
				return fmt.Errorf("seed availability %s: %w", it.name, err)
			}
		}
		log.Info("demo data seeded", "categories", len(cats), "menu_items", len(demoItems))
		return nil
	})
}

func seedUsers(tx *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	users := []models.User{
		{Name: "Canteen Admin", Email: "admin@canteen.local", Username: ptr("admin"), Role: models.RoleAdmin},
		{Name: "Kitchen Staff", Email: "staff@canteen.local", Username: ptr("staff"), Role: models.RoleStaff},
		{Name: "Demo Student", Email: "student@canteen.local", Role: models.RoleStudent, RegistrationNo: ptr("REG-0001")},
	}
	for _, u := range users {
		u.PasswordHash = string(hash)
		if err := tx.Where("email = ?", u.Email).FirstOrCreate(&u).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}
	return nil
}

func ptr(s string) *string { return &s }
