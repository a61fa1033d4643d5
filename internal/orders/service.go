package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/database"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultAttempts = 3

// Events receives committed orders. Implementations must not block for long.
type Events interface {
	OrderPlaced(ctx context.Context, o *Order) error
}

// Service turns a user's cart into an order.
type Service struct {
	DB             *gorm.DB
	Sequencer      Sequencer
	Events         Events
	Log            *zap.Logger
	Metrics        *metrics.Metrics
	DefaultPayment PaymentMethod
	Attempts       int
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// PlaceOrder converts the cart of userID into a PENDING order, numbers it
// and empties the cart in one transaction. An empty method selects the
// configured default.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, method string) (*Order, error) {
	pm := s.DefaultPayment
	if pm == "" {
		pm = PaymentUPI
	}
	if method != "" {
		var err error
		if pm, err = ParsePaymentMethod(method); err != nil {
			return nil, err
		}
	}

	attempts := s.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	log := s.logger().With(zap.Int64("user_id", userID))
	var (
		o   *Order
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		o, err = s.placeOnce(ctx, userID, pm)
		if !errors.Is(err, ErrDuplicateOrderNumber) || attempt == attempts {
			break
		}
		s.Metrics.OrderNumberRetry()
		log.Warn("order number taken, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	if err != nil {
		s.Metrics.OrderFailed(failureReason(err))
		if errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrProductUnavailable) {
			log.Info("order rejected", zap.Error(err))
		} else {
			log.Error("place order failed", zap.Error(err))
		}
		return nil, err
	}

	s.Metrics.OrderPlaced()
	log.Info("order placed",
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.Int("items", len(o.Items)))

	if s.Events != nil {
		if perr := s.Events.OrderPlaced(ctx, o); perr != nil {
			log.Error("publish order placed", zap.String("order_number", o.OrderNumber), zap.Error(perr))
		}
	}
	return o, nil
}

func (s *Service) placeOnce(ctx context.Context, userID int64, pm PaymentMethod) (*Order, error) {
	var o Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := cart.LinesOf(tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		items, total, err := BuildItems(lines)
		if err != nil {
			return err
		}

		num, err := s.Sequencer.Next(tx)
		if err != nil {
			return err
		}

		o = Order{
			CustomerID:    &userID,
			OrderNumber:   num.String(),
			OrderDay:      num.Day,
			OrderSeq:      num.Seq,
			OrderDate:     num.At,
			TotalAmount:   total,
			Status:        StatusPending,
			PaymentMethod: pm,
		}
		if err := tx.Omit(clause.Associations).Create(&o).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, o.OrderNumber)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&cart.Line{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		o.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return metrics.ReasonEmptyCart
	case errors.Is(err, ErrDuplicateOrderNumber):
		return metrics.ReasonDuplicateNumber
	case errors.Is(err, ErrProductUnavailable):
		return metrics.ReasonProductUnavailable
	default:
		return metrics.ReasonInternal
	}
}
