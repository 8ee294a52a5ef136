package product

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/pos-catalog-backend/internal/images"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPlaceholder = "/images/products/default.jpeg"

type fakeStore struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (f *fakeStore) Save(_ context.Context, upload images.Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	path := fmt.Sprintf("/images/products/%d-%s", len(f.saved)+1, upload.Filename)
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeStore) Placeholder() string { return testPlaceholder }

type fakeJanitor struct {
	mu     sync.Mutex
	queued []string
}

func (f *fakeJanitor) Enqueue(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, path)
	return true
}

func (f *fakeJanitor) Queued() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queued...)
}

type testEnv struct {
	svc     *service
	conn    *gorm.DB
	store   *fakeStore
	janitor *fakeJanitor
	reg     *prometheus.Registry
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:products_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection serializes concurrent transactions instead of failing
	// them with shared-cache table locks.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

type categoryFinder struct{ db *gorm.DB }

func (c categoryFinder) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND status = ?", id, enums.CategoryStatusActive).
		Count(&count).Error
	return count > 0, err
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := newTestDB(t)
	resolver, err := images.NewResolver("http://pos.test", "/images/products/")
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	store := &fakeStore{}
	janitor := &fakeJanitor{}
	reg := prometheus.NewRegistry()

	svc, err := NewService(NewRepository(conn), db.Wrap(conn), categoryFinder{db: conn}, resolver, store, janitor, metrics.NewStockMetrics(reg))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	impl.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return &testEnv{svc: impl, conn: conn, store: store, janitor: janitor, reg: reg}
}

func (e *testEnv) seedCategory(t *testing.T, name string, status enums.CategoryStatus) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Status: status}
	if err := e.conn.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category
}

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *models.Product {
	t.Helper()
	var product models.Product
	if err := e.conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}

func (e *testEnv) counter(t *testing.T, name, label, value string) float64 {
	t.Helper()
	mfs, err := e.reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func colaInput(categoryID uuid.UUID, qty int) CreateProductInput {
	return CreateProductInput{
		Name:          "Cola",
		CategoryID:    &categoryID,
		PurchasePrice: decPtr("1"),
		SalePrice:     decPtr("2"),
		Quantity:      &qty,
	}
}

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }
func floatPtr(v float64) *float64 { return &v }
func uuidPtr(v uuid.UUID) *uuid.UUID { return &v }
