package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pos-catalog-backend/api/controllers"
	"github.com/angelmondragon/pos-catalog-backend/api/middleware"
	"github.com/angelmondragon/pos-catalog-backend/internal/auth"
	"github.com/angelmondragon/pos-catalog-backend/internal/categories"
	product "github.com/angelmondragon/pos-catalog-backend/internal/products"
	"github.com/angelmondragon/pos-catalog-backend/pkg/config"
	"github.com/angelmondragon/pos-catalog-backend/pkg/enums"
	"github.com/angelmondragon/pos-catalog-backend/pkg/logger"
	"github.com/angelmondragon/pos-catalog-backend/pkg/redis"
)

// NewRouter wires the catalog API. redisClient may be nil, in which case
// idempotency keys are ignored and readiness does not check redis.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	categoryService categories.Service,
	productService product.Service,
	authService auth.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.SecureHeaders(cfg.App.IsDev()),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	readiness := map[string]controllers.Pinger{"database": dbP}
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	imagePrefix := "/" + strings.Trim(cfg.Images.URLPrefix, "/") + "/"
	r.Handle(imagePrefix+"*", http.StripPrefix(imagePrefix, staticFiles(cfg.Images.Dir)))

	maxImageBytes := cfg.Images.MaxUploadBytes()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", controllers.ListCategories(categoryService, logg))
		r.Get("/categories/{id}", controllers.GetCategory(categoryService, logg))
		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Get("/products/active", controllers.ListActiveProducts(productService, logg))
		r.Get("/products/cart-view", controllers.ListProductsForSale(productService, logg))
		r.Get("/products/{id}", controllers.GetProduct(productService, logg))
		r.With(middleware.LoginRateLimit(cfg.HTTP.LoginRatePerMinute, logg)).
			Post("/auth/login", controllers.AuthLogin(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.WriteRateLimit(cfg.HTTP.WriteRatePerMinute, logg))
			r.Use(middleware.Idempotency(idempotencyStore, cfg.HTTP.IdempotencyTTL, logg))

			r.Post("/categories", controllers.CreateCategory(categoryService, logg))
			r.Put("/categories/{id}", controllers.UpdateCategory(categoryService, logg))
			r.Delete("/categories/{id}", controllers.DeleteCategory(categoryService, logg))

			r.Post("/products", controllers.CreateProduct(productService, maxImageBytes, logg))
			r.Put("/products/{id}", controllers.UpdateProduct(productService, maxImageBytes, logg))
			r.Patch("/products/stock/{id}", controllers.AdjustProductStock(productService, logg))
			r.Delete("/products/{id}", controllers.DeleteProduct(productService, logg))
			r.With(middleware.RequireRole(enums.StaffRoleAdmin, logg)).
				Patch("/products/{id}/status", controllers.SetProductStatus(productService, logg))
			r.With(middleware.RequireRole(enums.StaffRoleAdmin, logg)).
				Post("/auth/register", controllers.AuthRegister(authService, logg))
		})
	})

	return r
}

// staticFiles serves stored images without directory listings.
func staticFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
