package product

import (
	"time"

	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type urlResolver interface {
	Resolve(storedPath string) *string
}

// CategoryRefDTO is the category summary embedded in product payloads.
type CategoryRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ProductDTO is the full product payload.
type ProductDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Category      *CategoryRefDTO `json:"category"`
	Description   *string         `json:"description,omitempty"`
	ImageURL      *string         `json:"image_url"`
	Quantity      int             `json:"quantity"`
	MinStock      int             `json:"min_stock"`
	LowStock      bool            `json:"low_stock"`
	TotalSold     int             `json:"total_sold"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	TaxRate       float64         `json:"tax_rate"`
	DiscountRate  float64         `json:"discount_rate"`
	Unit          string          `json:"unit"`
	Barcode       *string         `json:"barcode,omitempty"`
	Location      *string         `json:"location,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// ProductListItemDTO is the catalog listing projection.
type ProductListItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	ImageURL     *string         `json:"image_url"`
	Category     *CategoryRefDTO `json:"category"`
	Quantity     int             `json:"quantity"`
	Status       string          `json:"status"`
	Unit         string          `json:"unit"`
	TaxRate      float64         `json:"tax_rate"`
	DiscountRate float64         `json:"discount_rate"`
	TotalSold    int             `json:"total_sold"`
	Barcode      *string         `json:"barcode,omitempty"`
	Location     *string         `json:"location,omitempty"`
}

// SaleItemDTO is the point-of-sale (cart view) projection.
type SaleItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	SalePrice decimal.Decimal `json:"sale_price"`
	ImageURL  *string         `json:"image_url"`
	Category  *CategoryRefDTO `json:"category"`
	Quantity  int             `json:"quantity"`
}

// StockAdjustmentDTO reports the quantity before and after an adjustment.
type StockAdjustmentDTO struct {
	Message          string `json:"message"`
	PreviousQuantity int    `json:"previous_quantity"`
	NewQuantity      int    `json:"new_quantity"`
}

func newCategoryRef(category *models.Category) *CategoryRefDTO {
	if category == nil {
		return nil
	}
	return &CategoryRefDTO{ID: category.ID, Name: category.Name}
}

func NewProductDTO(p *models.Product, resolver urlResolver) *ProductDTO {
	return &ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Category:      newCategoryRef(p.Category),
		Description:   p.Description,
		ImageURL:      resolver.Resolve(p.Image),
		Quantity:      p.Quantity,
		MinStock:      p.MinStock,
		LowStock:      p.DeletedAt == nil && p.Quantity <= p.MinStock,
		TotalSold:     p.TotalSold,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		TaxRate:       p.TaxRate,
		DiscountRate:  p.DiscountRate,
		Unit:          p.Unit.String(),
		Barcode:       p.Barcode,
		Location:      p.Location,
		Status:        p.Status.String(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		DeletedAt:     p.DeletedAt,
	}
}

func newListItemDTO(p *models.Product, resolver urlResolver) ProductListItemDTO {
	return ProductListItemDTO{
		ID:           p.ID,
		Name:         p.Name,
		SalePrice:    p.SalePrice,
		ImageURL:     resolver.Resolve(p.Image),
		Category:     newCategoryRef(p.Category),
		Quantity:     p.Quantity,
		Status:       p.Status.String(),
		Unit:         p.Unit.String(),
		TaxRate:      p.TaxRate,
		DiscountRate: p.DiscountRate,
		TotalSold:    p.TotalSold,
		Barcode:      p.Barcode,
		Location:     p.Location,
	}
}

func newSaleItemDTO(p *models.Product, resolver urlResolver) SaleItemDTO {
	return SaleItemDTO{
		ID:        p.ID,
		Name:      p.Name,
		SalePrice: p.SalePrice,
		ImageURL:  resolver.Resolve(p.Image),
		Category:  newCategoryRef(p.Category),
		Quantity:  p.Quantity,
	}
}
