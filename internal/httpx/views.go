package httpx

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string { return d.StringFixed(2) }

type productView struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	CategoryID *int64  `json:"category_id"`
	Category   string  `json:"category,omitempty"`
	BrandID    *int64  `json:"brand_id"`
	Brand      string  `json:"brand,omitempty"`
	Price      *string `json:"price"`
	Qty        *int    `json:"qty"`
	AlertStock *int    `json:"alert_stock"`
	LowStock   bool    `json:"low_stock"`
	ImagePath  string  `json:"image_path"`
}

func toProductView(p catalog.Product) productView {
	v := productView{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		BrandID:    p.BrandID,
		Qty:        p.Qty,
		AlertStock: p.AlertStock,
		LowStock:   p.LowStock(),
		ImagePath:  p.ImagePath,
	}
	if p.Category != nil {
		v.Category = p.Category.Name
	}
	if p.Brand != nil {
		v.Brand = p.Brand.Name
	}
	if p.Price.Valid {
		s := money(p.Price.Decimal)
		v.Price = &s
	}
	return v
}

type categoryView struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Products []productView `json:"products"`
}

type lineView struct {
	ID          int64  `json:"id"`
	ProductID   *int64 `json:"product_id"`
	ProductName string `json:"product_name"`
	Qty         int    `json:"qty"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

func toLineView(l cart.Line) lineView {
	return lineView{
		ID:          l.ID,
		ProductID:   l.ProductID,
		ProductName: l.ProductName(),
		Qty:         l.Qty,
		UnitPrice:   money(l.Product.UnitPrice()),
		Total:       money(l.Total()),
	}
}

func toLineViews(lines []cart.Line) []lineView {
	out := make([]lineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, toLineView(l))
	}
	return out
}

type cartView struct {
	Lines      []lineView `json:"lines"`
	Count      int        `json:"count"`
	GrandTotal string     `json:"grand_total"`
}

func toCartView(s cart.Summary) cartView {
	return cartView{Lines: toLineViews(s.Lines), Count: s.Count, GrandTotal: money(s.GrandTotal)}
}

type checkoutView struct {
	Lines    []lineView `json:"lines"`
	Count    int        `json:"count"`
	Subtotal string     `json:"subtotal"`
	Shipping string     `json:"shipping"`
	Total    string     `json:"total"`
}

type flashResponse struct {
	Level   string   `json:"level"`
	Message string   `json:"message"`
	Cart    cartView `json:"cart"`
}

type itemView struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
	Discount  int    `json:"discount"`
}

type orderView struct {
	ID            int64      `json:"id"`
	CustomerID    *int64     `json:"customer_id"`
	OrderNumber   string     `json:"order_number"`
	OrderDate     time.Time  `json:"order_date"`
	TotalAmount   string     `json:"total_amount"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	Items         []itemView `json:"items,omitempty"`
}

func toOrderView(o orders.Order) orderView {
	v := orderView{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.OrderDate,
		TotalAmount:   money(o.TotalAmount),
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, itemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: money(it.UnitPrice),
			Amount:    money(it.Amount),
			Discount:  it.Discount,
		})
	}
	return v
}
