package product

import (
	"math"
	"strings"

	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// fieldErrors collects per-field validation failures for the error details.
type fieldErrors map[string]string

func (f fieldErrors) add(field, reason string) {
	if _, exists := f[field]; !exists {
		f[field] = reason
	}
}

func (f fieldErrors) err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string(f))
}

// Column limits: prices are NUMERIC(12,2) and counts are 32-bit INTEGER.
const maxCount = math.MaxInt32

var maxPrice = decimal.New(1, 10)

func checkPrice(f fieldErrors, field string, v decimal.Decimal) {
	switch {
	case v.IsNegative():
		f.add(field, "must be non-negative")
	case v.Round(2).GreaterThanOrEqual(maxPrice):
		f.add(field, "must be less than 10000000000")
	}
}

func checkCount(f fieldErrors, field string, v int) {
	switch {
	case v < 0:
		f.add(field, "must be non-negative")
	case v > maxCount:
		f.add(field, "must be at most 2147483647")
	}
}

func checkRate(f fieldErrors, field string, v float64) {
	if v < 0 || v > 100 {
		f.add(field, "must be between 0 and 100")
	}
}

func validateProduct(p *models.Product) error {
	f := fieldErrors{}
	if strings.TrimSpace(p.Name) == "" {
		f.add("name", "required")
	}
	checkPrice(f, "purchase_price", p.PurchasePrice)
	checkPrice(f, "sale_price", p.SalePrice)
	checkCount(f, "quantity", p.Quantity)
	checkCount(f, "min_stock", p.MinStock)
	checkRate(f, "tax_rate", p.TaxRate)
	checkRate(f, "discount_rate", p.DiscountRate)
	if !p.Unit.IsValid() {
		f.add("unit", "must be one of piece, kilo, liter, meter, package")
	}
	return f.err("invalid product")
}

// updateFields validates the present fields of input and maps them to
// columns.
func updateFields(input UpdateProductInput) (map[string]any, error) {
	f := fieldErrors{}
	fields := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			f.add("name", "required")
		}
		fields["name"] = name
	}
	if input.CategoryID != nil {
		fields["category_id"] = *input.CategoryID
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.PurchasePrice != nil {
		checkPrice(f, "purchase_price", *input.PurchasePrice)
		fields["purchase_price"] = *input.PurchasePrice
	}
	if input.SalePrice != nil {
		checkPrice(f, "sale_price", *input.SalePrice)
		fields["sale_price"] = *input.SalePrice
	}
	if input.Quantity != nil {
		checkCount(f, "quantity", *input.Quantity)
		fields["quantity"] = *input.Quantity
	}
	if input.MinStock != nil {
		checkCount(f, "min_stock", *input.MinStock)
		fields["min_stock"] = *input.MinStock
	}
	if input.TaxRate != nil {
		checkRate(f, "tax_rate", *input.TaxRate)
		fields["tax_rate"] = *input.TaxRate
	}
	if input.DiscountRate != nil {
		checkRate(f, "discount_rate", *input.DiscountRate)
		fields["discount_rate"] = *input.DiscountRate
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			f.add("unit", "must be one of piece, kilo, liter, meter, package")
		}
		fields["unit"] = input.Unit.String()
	}
	if input.Barcode != nil {
		fields["barcode"] = normalizeBarcode(input.Barcode)
	}
	if input.Location != nil {
		fields["location"] = *input.Location
	}

	if err := f.err("invalid product"); err != nil {
		return nil, err
	}
	return fields, nil
}

// normalizeBarcode trims the barcode and maps blank to nil so the unique
// index ignores it.
func normalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*barcode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
