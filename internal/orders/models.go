package orders

import (
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("order_not_found")
	ErrEmptyCart            = cart.ErrEmptyCart
	ErrDuplicateOrderNumber = errors.New("duplicate_order_number")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrProductUnavailable   = errors.New("product no longer available")
	ErrInvalidOrderNumber   = errors.New("invalid order number")
)

type Order struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	CustomerID    *int64          `gorm:"index" json:"customer_id"`
	Customer      *users.User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	OrderNumber   string          `gorm:"size:20;not null;uniqueIndex" json:"order_number"`
	OrderDay      string          `gorm:"size:10;not null;uniqueIndex:idx_orders_day_seq,priority:1" json:"-"`
	OrderSeq      int             `gorm:"not null;uniqueIndex:idx_orders_day_seq,priority:2" json:"-"`
	OrderDate     time.Time       `gorm:"not null" json:"order_date"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status        Status          `gorm:"size:16;not null;default:PENDING" json:"status"`
	PaymentMethod PaymentMethod   `gorm:"size:16;not null;default:CASH" json:"payment_method"`
	Items         []Item          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// Item is the price snapshot of one cart line at the time of ordering.
type Item struct {
	ID        int64            `gorm:"primaryKey" json:"id"`
	OrderID   int64            `gorm:"not null;index" json:"order_id"`
	ProductID *int64           `gorm:"index" json:"product_id"`
	Product   *catalog.Product `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Name      string           `gorm:"size:255" json:"name"`
	Qty       int              `gorm:"not null" json:"qty"`
	UnitPrice decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Amount    decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"amount"`
	Discount  int              `gorm:"not null;default:0" json:"discount"`
}

func (Item) TableName() string { return "order_items" }

// DaySequence is the per-day order counter.
type DaySequence struct {
	OrderDay  string `gorm:"primaryKey;size:10"`
	LastValue int    `gorm:"not null"`
}

func (DaySequence) TableName() string { return "order_sequences" }

// Models lists every table the order assembler touches, in dependency order.
func Models() []any {
	return []any{
		&users.User{},
		&catalog.Category{},
		&catalog.Brand{},
		&catalog.Product{},
		&cart.Line{},
		&Order{},
		&Item{},
		&DaySequence{},
	}
}

// BuildItems snapshots each line's product and price. Every line must still
// reference a priced product.
func BuildItems(lines []cart.Line) ([]Item, decimal.Decimal, error) {
	items := make([]Item, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		if l.Product == nil || !l.Product.Price.Valid {
			return nil, decimal.Zero, ErrProductUnavailable
		}
		unit := l.Product.Price.Decimal
		amount := unit.Mul(decimal.NewFromInt(int64(l.Qty)))
		items = append(items, Item{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Qty:       l.Qty,
			UnitPrice: unit,
			Amount:    amount,
			Discount:  0,
		})
		total = total.Add(amount)
	}
	return items, total, nil
}
