package services

import (
	"context"
	"strconv"
	"testing"

	"canteen-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ListMenu(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	catalog := NewCatalogService(f.db)

	drinks := models.Category{Name: "Hot Drinks", SortOrder: 0}
	require.NoError(t, f.db.Create(&drinks).Error)
	assert.Equal(t, "hot-drinks", drinks.Slug)

	f.item("Samosa", "15", 10, 0)
	f.item("Veg Thali", "120", 0, 0)
	f.category = drinks
	f.item("Coffee", "30", 5, 0)
	f.item("Masala Chai", "20", 5, 0)

	cats, err := catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Hot Drinks", cats[0].Name)

	tests := []struct {
		name  string
		query MenuQuery
		want  []string
		total int64
	}{
		{"default sort by name", MenuQuery{}, []string{"Coffee", "Masala Chai", "Samosa", "Veg Thali"}, 4},
		{"by slug", MenuQuery{Category: "hot-drinks"}, []string{"Coffee", "Masala Chai"}, 2},
		{"by id", MenuQuery{Category: strconv.Itoa(int(drinks.ID))}, []string{"Coffee", "Masala Chai"}, 2},
		{"unknown slug", MenuQuery{Category: "desserts"}, []string{}, 0},
		{"price desc", MenuQuery{SortBy: "price", Order: "desc", Page: Page{Limit: 2}}, []string{"Veg Thali", "Coffee"}, 4},
		{"unavailable", MenuQuery{Available: boolPtr(false)}, []string{"Veg Thali"}, 1},
		{"search", MenuQuery{Q: "CHAI"}, []string{"Masala Chai"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, _, err := catalog.ListMenu(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			names := make([]string, 0, len(items))
			for _, it := range items {
				names = append(names, it.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func boolPtr(v bool) *bool { return &v }
