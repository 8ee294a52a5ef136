package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-catalog-backend/internal/auth"
	"github.com/angelmondragon/pos-catalog-backend/internal/categories"
	"github.com/angelmondragon/pos-catalog-backend/internal/images"
	product "github.com/angelmondragon/pos-catalog-backend/internal/products"
	"github.com/angelmondragon/pos-catalog-backend/internal/users"
	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db"
	"github.com/angelmondragon/pos-catalog-backend/pkg/db/models"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
	"github.com/angelmondragon/pos-catalog-backend/pkg/metrics"
)

const testMaxImageBytes = 1 << 20

var testJWT = config.JWTConfig{Secret: "controller-secret", Issuer: "pos-catalog", AccessTTL: time.Hour}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"), make([]byte, 32)...)

type catalogServer struct {
	router   chi.Router
	store    *images.DiskStore
	janitor  *images.Janitor
	products product.Service
	auth     auth.Service
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()
	dsn := fmt.Sprintf("file:controllers_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}, &models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logg := testLogger()
	store, err := images.NewDiskStore(images.DiskStoreConfig{
		Dir:         t.TempDir(),
		URLPrefix:   "/images/products/",
		Placeholder: "/images/products/default.jpeg",
		MaxBytes:    testMaxImageBytes,
	})
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}
	janitor, err := images.NewJanitor(store, 16, logg)
	if err != nil {
		t.Fatalf("janitor: %v", err)
	}
	resolver, err := images.NewResolver("http://pos.test", "/images/products/")
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	categorySvc, err := categories.NewService(categories.NewRepository(conn))
	if err != nil {
		t.Fatalf("category service: %v", err)
	}
	productSvc, err := product.NewService(product.NewRepository(conn), db.Wrap(conn), categorySvc, resolver, store, janitor, metrics.NewStockMetrics(nil))
	if err != nil {
		t.Fatalf("product service: %v", err)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{BcryptCost: 4, MinLength: 8},
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	r := chi.NewRouter()
	r.Post("/auth/login", AuthLogin(authSvc, logg))
	r.Post("/auth/register", AuthRegister(authSvc, logg))
	r.Get("/categories", ListCategories(categorySvc, logg))
	r.Post("/categories", CreateCategory(categorySvc, logg))
	r.Get("/categories/{id}", GetCategory(categorySvc, logg))
	r.Put("/categories/{id}", UpdateCategory(categorySvc, logg))
	r.Delete("/categories/{id}", DeleteCategory(categorySvc, logg))

	r.Get("/products", ListProducts(productSvc, logg))
	r.Get("/products/active", ListActiveProducts(productSvc, logg))
	r.Get("/products/cart-view", ListProductsForSale(productSvc, logg))
	r.Post("/products", CreateProduct(productSvc, testMaxImageBytes, logg))
	r.Patch("/products/stock/{id}", AdjustProductStock(productSvc, logg))
	r.Get("/products/{id}", GetProduct(productSvc, logg))
	r.Put("/products/{id}", UpdateProduct(productSvc, testMaxImageBytes, logg))
	r.Patch("/products/{id}/status", SetProductStatus(productSvc, logg))
	r.Delete("/products/{id}", DeleteProduct(productSvc, logg))

	return &catalogServer{router: r, store: store, janitor: janitor, products: productSvc, auth: authSvc}
}

func (s *catalogServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	env := decodeEnvelope(t, resp)
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, status int) {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected status %d got %d: %s", status, resp.Code, resp.Body.String())
	}
}

func expectErrorCode(t *testing.T, resp *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	expectStatus(t, resp, status)
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != code {
		t.Fatalf("expected error code %s got %s", code, resp.Body.String())
	}
	return env
}

func (s *catalogServer) createCategory(t *testing.T, name string) categories.CategoryDTO {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/categories", map[string]any{"name": name})
	expectStatus(t, resp, http.StatusCreated)
	var dto categories.CategoryDTO
	decodeData(t, resp, &dto)
	return dto
}

func (s *catalogServer) createProduct(t *testing.T, body map[string]any) product.ProductDTO {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/products", body)
	expectStatus(t, resp, http.StatusCreated)
	var dto product.ProductDTO
	decodeData(t, resp, &dto)
	return dto
}

func productBody(categoryID uuid.UUID, name string, quantity int) map[string]any {
	return map[string]any{
		"name":           name,
		"category_id":    categoryID.String(),
		"purchase_price": "0.80",
		"sale_price":     "1.50",
		"quantity":       quantity,
	}
}
