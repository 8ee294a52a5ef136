package categories

import (
	"context"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists category rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// InTx runs fn with a repository bound to a single transaction. fn must use
// only the repository it is given.
func (r *Repository) InTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// FindByID loads a category regardless of status.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// NameTaken reports whether any category, active or not, other than exclude
// already uses name. Comparison is case-sensitive.
func (r *Repository) NameTaken(ctx context.Context, name string, exclude *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Category{}).Where("name = ?", name)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListActive returns live categories in insertion order.
func (r *Repository) ListActive(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.CategoryStatusActive).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields writes the given columns on an active category and reports
// whether a row matched.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ? AND status = ?", id, enums.CategoryStatusActive).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SoftDelete flips an active category to inactive. It reports false when the
// category is missing or already inactive.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.UpdateFields(ctx, id, map[string]any{
		"status":     enums.CategoryStatusInactive,
		"deleted_at": at,
		"updated_at": at,
	})
}
