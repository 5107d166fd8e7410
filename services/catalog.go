package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"canteen-api/apperr"
	"canteen-api/models"

	"gorm.io/gorm"
)

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// MenuQuery mirrors the public menu filters. Category accepts an id or a
// slug; Available is nil when the filter is not applied.
type MenuQuery struct {
	Q         string
	Category  string
	Available *bool
	SortBy    string
	Order     string
	Page
}

var menuSortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
	"createdAt":  "created_at",
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("sort_order, name").Find(&cats).Error; err != nil {
		return nil, apperr.Internal(err, "list categories")
	}
	return cats, nil
}

func (s *CatalogService) ListMenu(ctx context.Context, q MenuQuery) ([]models.MenuItem, int64, Page, error) {
	page := q.Page.normalize(12, 100)
	query := s.db.WithContext(ctx).Model(&models.MenuItem{})

	if q.Available != nil {
		query = query.Where("is_available = ?", *q.Available)
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		catID, err := s.resolveCategory(ctx, c)
		if err != nil {
			return nil, 0, page, err
		}
		if catID == 0 {
			return []models.MenuItem{}, 0, page, nil
		}
		query = query.Where("category_id = ?", catID)
	}
	if term := strings.TrimSpace(q.Q); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, page, apperr.Internal(err, "count menu")
	}

	col, ok := menuSortColumns[q.SortBy]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if strings.EqualFold(q.Order, "desc") {
		dir = "DESC"
	}
	var items []models.MenuItem
	err := query.Preload("Category").Order(col + " " + dir).Order("id").
		Offset(page.offset()).Limit(page.Limit).Find(&items).Error
	if err != nil {
		return nil, 0, page, apperr.Internal(err, "list menu")
	}
	return items, total, page, nil
}

// resolveCategory returns 0 for an unknown slug.
func (s *CatalogService) resolveCategory(ctx context.Context, ref string) (uint, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return uint(id), nil
	}
	var cat models.Category
	err := s.db.WithContext(ctx).Select("id").Where("slug = ?", strings.ToLower(ref)).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Internal(err, "load category")
	}
	return cat.ID, nil
}
