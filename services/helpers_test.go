package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"canteen-api/config"
	"canteen-api/events"
	"canteen-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDB(config.Config{
		DBDriver: "sqlite",
		DBDSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture seeds a category and returns helpers for adding stocked items.
type fixture struct {
	t        *testing.T
	db       *gorm.DB
	category models.Category
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	cat := models.Category{Name: "Snacks", SortOrder: 1}
	require.NoError(t, db.Create(&cat).Error)
	return &fixture{t: t, db: db, category: cat}
}

// item creates a menu item with a ledger row holding qty units.
func (f *fixture) item(name, price string, qty, threshold int) models.MenuItem {
	f.t.Helper()
	mi := models.MenuItem{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		CategoryID:  f.category.ID,
		IsAvailable: qty > 0,
		Tags:        []string{"veg"},
	}
	require.NoError(f.t, f.db.Create(&mi).Error)
	// gorm skips false for a column with a default, so force it.
	require.NoError(f.t, f.db.Model(&mi).Update("is_available", qty > 0).Error)
	inv := models.Inventory{MenuItemID: mi.ID, Quantity: qty, LowStockThreshold: threshold, Unit: "pcs"}
	require.NoError(f.t, f.db.Create(&inv).Error)
	return mi
}

func (f *fixture) user(name string, role models.UserRole) models.User {
	f.t.Helper()
	hash, err := HashPassword("secret123")
	require.NoError(f.t, err)
	u := models.User{
		Name:         name,
		Email:        strings.ToLower(name) + "@campus.test",
		PasswordHash: hash,
		Role:         role,
	}
	if role != models.RoleStudent {
		username := strings.ToLower(name)
		u.Username = &username
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) stock(menuItemID uint) int {
	f.t.Helper()
	var inv models.Inventory
	require.NoError(f.t, f.db.Where("menu_item_id = ?", menuItemID).First(&inv).Error)
	return inv.Quantity
}

func (f *fixture) available(menuItemID uint) bool {
	f.t.Helper()
	var mi models.MenuItem
	require.NoError(f.t, f.db.First(&mi, menuItemID).Error)
	return mi.IsAvailable
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type published struct {
	topic string
	key   string
	ev    events.Envelope
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, ev events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{topic: topic, key: key, ev: ev})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	for i, s := range p.sent {
		out[i] = s.topic
	}
	return out
}
