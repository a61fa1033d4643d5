package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("product_not_found")
	ErrNegativePrice = errors.New("price must not be negative")
)

type Category struct {
	ID       int64     `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	Products []Product `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"products,omitempty"`
}

func (Category) TableName() string { return "categories" }

type Brand struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:255;not null" json:"name"`
	ImagePath string `gorm:"size:255;default:no_image_available.jpg" json:"image_path"`
}

func (Brand) TableName() string { return "brands" }

type Product struct {
	ID         int64               `gorm:"primaryKey" json:"id"`
	Name       string              `gorm:"size:255;not null" json:"name"`
	CategoryID *int64              `gorm:"index" json:"category_id"`
	Category   *Category           `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	BrandID    *int64              `gorm:"index" json:"brand_id"`
	Brand      *Brand              `gorm:"constraint:OnDelete:SET NULL" json:"brand,omitempty"`
	Price      decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"price"`
	Qty        *int                `json:"qty"`
	AlertStock *int                `json:"alert_stock"`
	ImagePath  string              `gorm:"size:255;default:no_image_available.jpg" json:"image_path"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeSave(*gorm.DB) error {
	if p.Price.Valid && p.Price.Decimal.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// UnitPrice is the price used for totals; unpriced products count as zero.
func (p *Product) UnitPrice() decimal.Decimal {
	if p == nil || !p.Price.Valid {
		return decimal.Zero
	}
	return p.Price.Decimal
}

func (p *Product) LowStock() bool {
	return p.Qty != nil && p.AlertStock != nil && *p.Qty <= *p.AlertStock
}
