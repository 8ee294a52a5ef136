package enums

import "fmt"

// ProductStatus is the derived availability state of a product.
type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "active"
	ProductStatusInactive   ProductStatus = "inactive"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusInactive,
	ProductStatusOutOfStock,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}

// StockStatus derives the status of a live product from its quantity.
func StockStatus(quantity int) ProductStatus {
	if quantity == 0 {
		return ProductStatusOutOfStock
	}
	return ProductStatusActive
}

// ProductUnit is the unit a product is sold by.
type ProductUnit string

const (
	ProductUnitPiece   ProductUnit = "piece"
	ProductUnitKilo    ProductUnit = "kilo"
	ProductUnitLiter   ProductUnit = "liter"
	ProductUnitMeter   ProductUnit = "meter"
	ProductUnitPackage ProductUnit = "package"
)

var validProductUnits = []ProductUnit{
	ProductUnitPiece,
	ProductUnitKilo,
	ProductUnitLiter,
	ProductUnitMeter,
	ProductUnitPackage,
}

// String implements fmt.Stringer.
func (u ProductUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known ProductUnit.
func (u ProductUnit) IsValid() bool {
	for _, candidate := range validProductUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseProductUnit converts raw input into a ProductUnit.
func ParseProductUnit(value string) (ProductUnit, error) {
	for _, candidate := range validProductUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product unit %q", value)
}
