package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
)

// Category groups products. Soft-deleted rows keep status inactive and a
// deleted_at timestamp.
type Category struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name        string               `gorm:"column:name;not null;uniqueIndex:uq_categories_name"`
	Description *string              `gorm:"column:description"`
	Status      enums.CategoryStatus `gorm:"column:status;type:text;not null;default:active"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   *time.Time           `gorm:"column:deleted_at"`
}

func (Category) TableName() string { return "categories" }

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
