package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Filter struct {
	Category string
	LowStock bool
}

type Repo struct{ DB *gorm.DB }

func (r *Repo) ListProducts(ctx context.Context, f Filter) ([]Product, error) {
	q := r.DB.WithContext(ctx).Model(&Product{}).Preload("Category").Preload("Brand")
	if f.Category != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.name = ?", f.Category)
	}
	if f.LowStock {
		q = q.Where("products.qty IS NOT NULL AND products.alert_stock IS NOT NULL AND products.qty <= products.alert_stock")
	}

	var out []Product
	if err := q.Order("products.name").Order("products.id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.DB.WithContext(ctx).Preload("Category").Preload("Brand").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}

// ListCategories returns every category with its products, for navigation.
func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := r.DB.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("products.name") }).
		Order("name").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
