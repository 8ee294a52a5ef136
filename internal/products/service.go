package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/internal/images"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the product catalog. Soft-deleted products stay readable by id
// and are excluded from the active and for-sale listings.
type Service interface {
	ListAll(ctx context.Context) ([]ProductListItemDTO, error)
	ListActive(ctx context.Context) ([]ProductListItemDTO, error)
	ListForSale(ctx context.Context) ([]SaleItemDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput, image *images.Upload) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput, image *images.Upload) (*ProductDTO, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*StockAdjustmentDTO, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) (*ProductDTO, error)
}

// CreateProductInput holds the create payload. Pointer fields are required
// or optional values whose absence must be detectable.
type CreateProductInput struct {
	Name          string
	CategoryID    *uuid.UUID
	Description   *string
	PurchasePrice *decimal.Decimal
	SalePrice     *decimal.Decimal
	Quantity      *int
	MinStock      *int
	TaxRate       *float64
	DiscountRate  *float64
	Unit          *enums.ProductUnit
	Barcode       *string
	Location      *string
}

// UpdateProductInput holds a partial update: nil keeps the stored value,
// a non-nil zero value is written. An empty barcode clears it.
type UpdateProductInput struct {
	Name          *string
	CategoryID    *uuid.UUID
	Description   *string
	PurchasePrice *decimal.Decimal
	SalePrice     *decimal.Decimal
	Quantity      *int
	MinStock      *int
	TaxRate       *float64
	DiscountRate  *float64
	Unit          *enums.ProductUnit
	Barcode       *string
	Location      *string
}

const defaultMinStock = 10

type categoryChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type imageStore interface {
	Save(ctx context.Context, upload images.Upload) (string, error)
	Placeholder() string
}

type imageJanitor interface {
	Enqueue(storedPath string) bool
}

type service struct {
	repo       *Repository
	dbClient   *db.Client
	categories categoryChecker
	resolver   urlResolver
	store      imageStore
	janitor    imageJanitor
	metrics    *metrics.StockMetrics
	now        func() time.Time
}

// NewService constructs the product catalog. stockMetrics may be nil.
func NewService(repo *Repository, dbClient *db.Client, categories categoryChecker, resolver urlResolver, store imageStore, janitor imageJanitor, stockMetrics *metrics.StockMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category checker required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("image resolver required")
	}
	if store == nil {
		return nil, fmt.Errorf("image store required")
	}
	if janitor == nil {
		return nil, fmt.Errorf("image janitor required")
	}
	return &service{
		repo:       repo,
		dbClient:   dbClient,
		categories: categories,
		resolver:   resolver,
		store:      store,
		janitor:    janitor,
		metrics:    stockMetrics,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) ListAll(ctx context.Context) ([]ProductListItemDTO, error) {
	return s.list(ctx, nil)
}

func (s *service) ListActive(ctx context.Context) ([]ProductListItemDTO, error) {
	active := enums.ProductStatusActive
	return s.list(ctx, &active)
}

func (s *service) list(ctx context.Context, status *enums.ProductStatus) ([]ProductListItemDTO, error) {
	rows, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	out := make([]ProductListItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, newListItemDTO(&rows[i], s.resolver))
	}
	return out, nil
}

func (s *service) ListForSale(ctx context.Context) ([]SaleItemDTO, error) {
	rows, err := s.repo.ListForSale(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products for sale")
	}
	out := make([]SaleItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, newSaleItemDTO(&rows[i], s.resolver))
	}
	return out, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, id)
	}
	return NewProductDTO(product, s.resolver), nil
}

// Create validates and inserts a product. Status is derived from quantity.
func (s *service) Create(ctx context.Context, input CreateProductInput, image *images.Upload) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)

	missing := fieldErrors{}
	if name == "" {
		missing.add("name", "required")
	}
	if input.CategoryID == nil {
		missing.add("category_id", "required")
	}
	if input.PurchasePrice == nil {
		missing.add("purchase_price", "required")
	}
	if input.SalePrice == nil {
		missing.add("sale_price", "required")
	}
	if input.Quantity == nil {
		missing.add("quantity", "required")
	}
	if err := missing.err("missing required fields"); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:          name,
		CategoryID:    *input.CategoryID,
		Description:   input.Description,
		Quantity:      *input.Quantity,
		MinStock:      defaultMinStock,
		PurchasePrice: *input.PurchasePrice,
		SalePrice:     *input.SalePrice,
		Unit:          enums.ProductUnitPiece,
		Barcode:       normalizeBarcode(input.Barcode),
		Location:      input.Location,
	}
	if input.MinStock != nil {
		product.MinStock = *input.MinStock
	}
	if input.TaxRate != nil {
		product.TaxRate = *input.TaxRate
	}
	if input.DiscountRate != nil {
		product.DiscountRate = *input.DiscountRate
	}
	if input.Unit != nil {
		product.Unit = *input.Unit
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.ensureCategory(ctx, product.CategoryID); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, &product.Name, product.Barcode, nil); err != nil {
		return nil, err
	}

	product.Image = s.store.Placeholder()
	if image != nil {
		stored, err := s.store.Save(ctx, *image)
		if err != nil {
			return nil, err
		}
		product.Image = stored
	}

	now := s.now()
	product.Status = enums.StockStatus(product.Quantity)
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.repo.Create(ctx, product); err != nil {
		s.discardUpload(image, product.Image)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product name or barcode already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}

	return s.GetByID(ctx, product.ID)
}

// Update applies the present fields of input. The status of a live product
// is re-derived from the resulting quantity. A soft-deleted product stays
// inactive, decided by the UPDATE itself rather than the earlier read.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput, image *images.Upload) (*ProductDTO, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, id)
	}

	fields, err := updateFields(input)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil && *input.CategoryID != current.CategoryID {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	var name *string
	if n, ok := fields["name"].(string); ok && n != current.Name {
		name = &n
	}
	var barcode *string
	if b, ok := fields["barcode"].(*string); ok && b != nil && (current.Barcode == nil || *b != *current.Barcode) {
		barcode = b
	}
	if err := s.ensureUnique(ctx, name, barcode, &id); err != nil {
		return nil, err
	}

	newImage := ""
	if image != nil {
		stored, err := s.store.Save(ctx, *image)
		if err != nil {
			return nil, err
		}
		newImage = stored
		fields["image"] = stored
	}

	fields["status"] = stockStatusExpr(input.Quantity)
	fields["updated_at"] = s.now()

	matched, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil || !matched {
		s.discardUpload(image, newImage)
		switch {
		case err == nil:
			return nil, notFound(id)
		case db.IsUniqueViolation(err, ""):
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product name or barcode already exists")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
	}

	if newImage != "" && current.Image != s.store.Placeholder() {
		s.janitor.Enqueue(current.Image)
	}

	return s.GetByID(ctx, id)
}

func (s *service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.SoftDelete(ctx, id, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	if deleted {
		return nil
	}
	// Nothing matched: either missing or already deleted, which is fine.
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.lookupError(err, id)
	}
	return nil
}

// SetStatus overrides status directly without touching quantity or
// deleted_at. It is an administrative escape hatch and can break the
// quantity/status relationship the other operations keep.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) (*ProductDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", status).
			WithDetails(map[string]string{"status": "invalid"})
	}
	matched, err := s.repo.UpdateFields(ctx, id, map[string]any{
		"status":     status.String(),
		"updated_at": s.now(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set product status")
	}
	if !matched {
		return nil, notFound(id)
	}
	return s.GetByID(ctx, id)
}

func (s *service) ensureCategory(ctx context.Context, id uuid.UUID) error {
	exists, err := s.categories.Exists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category")
	}
	if !exists {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "category %s does not exist", id).
			WithDetails(map[string]string{"category_id": "not found"})
	}
	return nil
}

func (s *service) ensureUnique(ctx context.Context, name, barcode *string, exclude *uuid.UUID) error {
	if name != nil {
		taken, err := s.repo.NameTaken(ctx, *name, exclude)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check product name")
		}
		if taken {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "product %q already exists", *name).
				WithDetails(map[string]string{"name": "duplicate"})
		}
	}
	if barcode != nil {
		taken, err := s.repo.BarcodeTaken(ctx, *barcode, exclude)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check product barcode")
		}
		if taken {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "barcode %q already in use", *barcode).
				WithDetails(map[string]string{"barcode": "duplicate"})
		}
	}
	return nil
}

// discardUpload queues a file stored during a write that did not commit.
func (s *service) discardUpload(image *images.Upload, storedPath string) {
	if image == nil || storedPath == "" || storedPath == s.store.Placeholder() {
		return
	}
	s.janitor.Enqueue(storedPath)
}

func (s *service) lookupError(err error, id uuid.UUID) error {
	if db.IsNotFound(err) {
		return notFound(id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
}

func notFound(id uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
}
