package enums

import "fmt"

// CategoryStatus tracks whether a category is live or soft-deleted.
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusInactive CategoryStatus = "inactive"
)

// String implements fmt.Stringer.
func (s CategoryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CategoryStatus.
func (s CategoryStatus) IsValid() bool {
	return s == CategoryStatusActive || s == CategoryStatusInactive
}

// ParseCategoryStatus converts raw input into a CategoryStatus.
func ParseCategoryStatus(value string) (CategoryStatus, error) {
	status := CategoryStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid category status %q", value)
	}
	return status, nil
}
