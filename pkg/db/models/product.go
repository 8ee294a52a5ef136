package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
)

// Product is a sellable catalog item. DeletedAt is a plain column rather than
// gorm.DeletedAt so soft-deleted rows stay visible to direct lookups.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name          string              `gorm:"column:name;not null;uniqueIndex:uq_products_name"`
	CategoryID    uuid.UUID           `gorm:"column:category_id;type:uuid;not null;index"`
	Category      *Category           `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Description   *string             `gorm:"column:description"`
	Image         string              `gorm:"column:image;not null"`
	Quantity      int                 `gorm:"column:quantity;not null;default:0"`
	MinStock      int                 `gorm:"column:min_stock;not null;default:10"`
	TotalSold     int                 `gorm:"column:total_sold;not null;default:0"`
	PurchasePrice decimal.Decimal     `gorm:"column:purchase_price;type:numeric(12,2);not null"`
	SalePrice     decimal.Decimal     `gorm:"column:sale_price;type:numeric(12,2);not null"`
	TaxRate       float64             `gorm:"column:tax_rate;type:numeric(5,2);not null;default:0"`
	DiscountRate  float64             `gorm:"column:discount_rate;type:numeric(5,2);not null;default:0"`
	Unit          enums.ProductUnit   `gorm:"column:unit;type:text;not null;default:piece"`
	Barcode       *string             `gorm:"column:barcode;uniqueIndex:uq_products_barcode"`
	Location      *string             `gorm:"column:location"`
	Status        enums.ProductStatus `gorm:"column:status;type:text;not null;index"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     *time.Time          `gorm:"column:deleted_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsDeleted reports whether the product has been soft-deleted.
func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}
