package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repo is the read side of orders. Lookups are scoped to the customer.
type Repo struct{ DB *gorm.DB }

func (r *Repo) Get(ctx context.Context, id, customerID int64) (Order, error) {
	var o Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ? AND customer_id = ?", id, customerID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first, without items.
func (r *Repo) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	var out []Order
	err := r.DB.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("order_date DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
