package product

import (
	"context"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists product rows.
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

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Create(product).Error
}

// FindByID loads the product without associations, soft-deleted or not.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetail loads the product with its category.
func (r *Repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// NameTaken reports whether another product, in any status, uses name.
func (r *Repository) NameTaken(ctx context.Context, name string, exclude *uuid.UUID) (bool, error) {
	return r.taken(ctx, "name", name, exclude)
}

// BarcodeTaken reports whether another product uses barcode.
func (r *Repository) BarcodeTaken(ctx context.Context, barcode string, exclude *uuid.UUID) (bool, error) {
	return r.taken(ctx, "barcode", barcode, exclude)
}

func (r *Repository) taken(ctx context.Context, column, value string, exclude *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where(column+" = ?", value)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateFields writes the given columns and reports whether a row matched.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// stockStatusExpr derives status in SQL from the row being written. A
// soft-deleted row stays inactive even if it was deleted after the caller
// last read it. A nil quantity uses the stored column, so a concurrent stock
// adjustment is not overwritten.
func stockStatusExpr(quantity *int) clause.Expr {
	inactive := enums.ProductStatusInactive.String()
	outOfStock := enums.ProductStatusOutOfStock.String()
	active := enums.ProductStatusActive.String()
	if quantity == nil {
		return gorm.Expr("CASE WHEN deleted_at IS NOT NULL THEN ? WHEN quantity = 0 THEN ? ELSE ? END",
			inactive, outOfStock, active)
	}
	return gorm.Expr("CASE WHEN deleted_at IS NOT NULL THEN ? ELSE ? END",
		inactive, enums.StockStatus(*quantity).String())
}

// AdjustQuantity adds delta to a live product's quantity and re-derives its
// status in a single conditional UPDATE. The bounds check and the increment
// happen in the same statement, so concurrent adjustments cannot lose
// updates or leave [0, maxCount]. It reports applied=false when the row is
// missing or soft-deleted or the result is out of bounds. Callers tell
// those apart with FindByID.
func (r *Repository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int, at time.Time) (newQuantity int, applied bool, err error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND deleted_at IS NULL AND quantity + CAST(? AS BIGINT) BETWEEN 0 AND ?", id, delta, maxCount).
		Updates(map[string]any{
			"quantity": gorm.Expr("quantity + ?", delta),
			"status": gorm.Expr("CASE WHEN quantity + ? = 0 THEN ? ELSE ? END",
				delta, enums.ProductStatusOutOfStock.String(), enums.ProductStatusActive.String()),
			"updated_at": at,
		})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var quantities []int
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Pluck("quantity", &quantities).Error; err != nil {
		return 0, false, err
	}
	if len(quantities) == 0 {
		return 0, false, gorm.ErrRecordNotFound
	}
	return quantities[0], true, nil
}

// SoftDelete marks a live product inactive. It reports false when nothing
// matched (missing or already deleted).
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{
			"status":     enums.ProductStatusInactive.String(),
			"deleted_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List returns products with their category, oldest first. A nil status
// returns every product.
func (r *Repository) List(ctx context.Context, status *enums.ProductStatus) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Preload("Category")
	if status != nil {
		query = query.Where("status = ?", status.String())
	}
	var rows []models.Product
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForSale loads only the columns the point-of-sale view needs.
func (r *Repository) ListForSale(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Select("id", "name", "sale_price", "image", "category_id", "quantity").
		Preload("Category", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Where("status = ?", enums.ProductStatusActive.String()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ImagePaths returns the distinct stored image paths referenced by any product.
func (r *Repository) ImagePaths(ctx context.Context) ([]string, error) {
	var paths []string
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("image").
		Pluck("image", &paths).Error; err != nil {
		return nil, err
	}
	return paths, nil
}
