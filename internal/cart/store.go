package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store owns the cart_lines table. Every mutation is scoped by user so a
// line id belonging to someone else behaves as if it did not exist.
type Store struct {
	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// AddOrIncrement puts one unit of productID in the user's cart. created is
// true when the line did not exist before.
func (s *Store) AddOrIncrement(ctx context.Context, userID, productID int64) (line Line, created bool, err error) {
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p catalog.Product
		if err := tx.Select("id").First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrNotFound
			}
			return err
		}

		// upsert keeps the (user, product) line unique under concurrent adds
		ins := Line{UserID: userID, ProductID: &productID, Qty: 1}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"qty": gorm.Expr("cart_lines.qty + 1"), "updated_at": time.Now()}),
		}).Create(&ins).Error
		if err != nil {
			return err
		}

		return tx.Preload("Product").
			Where("user_id = ? AND product_id = ?", userID, productID).
			First(&line).Error
	})
	if err != nil {
		s.Metrics.CartOperation("add", "error")
		return Line{}, false, fmt.Errorf("add product %d to cart: %w", productID, err)
	}

	created = line.Qty == 1
	if created {
		s.Metrics.CartOperation("add", "created")
	} else {
		s.Metrics.CartOperation("add", "incremented")
	}
	return line, created, nil
}

func (s *Store) Increment(ctx context.Context, lineID, userID int64) (Line, error) {
	res := s.DB.WithContext(ctx).Model(&Line{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Update("qty", gorm.Expr("qty + 1"))
	if res.Error != nil {
		s.Metrics.CartOperation("increase", "error")
		return Line{}, fmt.Errorf("increase line %d: %w", lineID, res.Error)
	}
	if res.RowsAffected == 0 {
		s.Metrics.CartOperation("increase", "not_found")
		return Line{}, ErrNotFound
	}
	s.Metrics.CartOperation("increase", "ok")
	return s.Get(ctx, lineID, userID)
}

// Decrement removes one unit. At quantity 1 nothing changes and the
// returned line is accompanied by ErrQuantityFloor.
func (s *Store) Decrement(ctx context.Context, lineID, userID int64) (Line, error) {
	res := s.DB.WithContext(ctx).Model(&Line{}).
		Where("id = ? AND user_id = ? AND qty > 1", lineID, userID).
		Update("qty", gorm.Expr("qty - 1"))
	if res.Error != nil {
		s.Metrics.CartOperation("decrease", "error")
		return Line{}, fmt.Errorf("decrease line %d: %w", lineID, res.Error)
	}

	line, err := s.Get(ctx, lineID, userID)
	if err != nil {
		s.Metrics.CartOperation("decrease", "not_found")
		return Line{}, err
	}
	if res.RowsAffected == 0 {
		s.Metrics.CartOperation("decrease", "floor")
		if s.Log != nil {
			s.Log.Warn("cart quantity floor reached",
				zap.Int64("user_id", userID), zap.Int64("line_id", lineID))
		}
		return line, ErrQuantityFloor
	}
	s.Metrics.CartOperation("decrease", "ok")
	return line, nil
}

func (s *Store) Remove(ctx context.Context, lineID, userID int64) (Line, error) {
	line, err := s.Get(ctx, lineID, userID)
	if err != nil {
		s.Metrics.CartOperation("remove", "not_found")
		return Line{}, err
	}
	res := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", lineID, userID).Delete(&Line{})
	if res.Error != nil {
		s.Metrics.CartOperation("remove", "error")
		return Line{}, fmt.Errorf("remove line %d: %w", lineID, res.Error)
	}
	if res.RowsAffected == 0 {
		s.Metrics.CartOperation("remove", "not_found")
		return Line{}, ErrNotFound
	}
	s.Metrics.CartOperation("remove", "ok")
	return line, nil
}

// Clear deletes every line of the user and reports whether there were any.
func (s *Store) Clear(ctx context.Context, userID int64) (bool, error) {
	res := s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&Line{})
	if res.Error != nil {
		s.Metrics.CartOperation("clear", "error")
		return false, fmt.Errorf("clear cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s.Metrics.CartOperation("clear", "empty")
		return false, nil
	}
	s.Metrics.CartOperation("clear", "ok")
	return true, nil
}

func (s *Store) Get(ctx context.Context, lineID, userID int64) (Line, error) {
	var line Line
	err := s.DB.WithContext(ctx).Preload("Product").
		Where("id = ? AND user_id = ?", lineID, userID).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Line{}, ErrNotFound
	}
	if err != nil {
		return Line{}, fmt.Errorf("get line %d: %w", lineID, err)
	}
	return line, nil
}

func (s *Store) Lines(ctx context.Context, userID int64) ([]Line, error) {
	return LinesOf(s.DB.WithContext(ctx), userID)
}

// LinesOf loads the user's lines with their products through db, which may
// be a transaction.
func LinesOf(db *gorm.DB, userID int64) ([]Line, error) {
	var lines []Line
	if err := db.Preload("Product").Where("user_id = ?", userID).Order("id").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return lines, nil
}

func (s *Store) Total(ctx context.Context, userID int64) (decimal.Decimal, error) {
	sum, err := s.Summary(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return sum.GrandTotal, nil
}

func (s *Store) Summary(ctx context.Context, userID int64) (Summary, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return summarize(lines), nil
}

// Checkout prices the cart for review: subtotal plus a flat shipping fee.
func (s *Store) Checkout(ctx context.Context, userID int64, shipping decimal.Decimal) (Review, error) {
	sum, err := s.Summary(ctx, userID)
	if err != nil {
		return Review{}, err
	}
	if sum.Count == 0 {
		return Review{}, ErrEmptyCart
	}
	return Review{
		Lines:    sum.Lines,
		Count:    sum.Count,
		Subtotal: sum.GrandTotal,
		Shipping: shipping,
		Total:    sum.GrandTotal.Add(shipping),
	}, nil
}
