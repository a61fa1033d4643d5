package cart

import (
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("cart_line_not_found")
	ErrEmptyCart     = errors.New("empty_cart")
	ErrQuantityFloor = errors.New("quantity cannot go below 1")
)

// Line is one product in a user's cart. (user_id, product_id) is unique.
type Line struct {
	ID        int64            `gorm:"primaryKey" json:"id"`
	UserID    int64            `gorm:"not null;uniqueIndex:idx_cart_user_product,priority:1" json:"user_id"`
	User      *users.User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ProductID *int64           `gorm:"uniqueIndex:idx_cart_user_product,priority:2" json:"product_id"`
	Product   *catalog.Product `gorm:"constraint:OnDelete:SET NULL" json:"product,omitempty"`
	Qty       int              `gorm:"not null;check:qty >= 1" json:"qty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (Line) TableName() string { return "cart_lines" }

// Total is qty × unit price; a line whose product is gone counts as zero.
func (l Line) Total() decimal.Decimal {
	return l.Product.UnitPrice().Mul(decimal.NewFromInt(int64(l.Qty)))
}

func (l Line) ProductName() string {
	if l.Product == nil {
		return "removed product"
	}
	return l.Product.Name
}

type Summary struct {
	Lines      []Line
	Count      int
	GrandTotal decimal.Decimal
}

type Review struct {
	Lines    []Line
	Count    int
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

func summarize(lines []Line) Summary {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return Summary{Lines: lines, Count: len(lines), GrandTotal: total}
}
