package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Bootstrap    BootstrapConfig
	HTTP         HTTPConfig
	Images       ImagesConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Images.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Password.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Bootstrap.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POSCATALOG_APP_ENV" required:"true"`
	Port         string `envconfig:"POSCATALOG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POSCATALOG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSCATALOG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"POSCATALOG_DB_DSN"`
	Driver string `envconfig:"POSCATALOG_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POSCATALOG_DB_HOST"`
	LegacyPort     int    `envconfig:"POSCATALOG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POSCATALOG_DB_USER"`
	LegacyPassword string `envconfig:"POSCATALOG_DB_PASSWORD"`
	LegacyName     string `envconfig:"POSCATALOG_DB_NAME"`
	LegacySSLMode  string `envconfig:"POSCATALOG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POSCATALOG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSCATALOG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POSCATALOG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSCATALOG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional for the API: an empty URL disables idempotency
// replay. The cron worker requires it for its distributed lock.
type RedisConfig struct {
	URL          string        `envconfig:"POSCATALOG_REDIS_URL"`
	Address      string        `envconfig:"POSCATALOG_REDIS_ADDR"`
	Password     string        `envconfig:"POSCATALOG_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSCATALOG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSCATALOG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSCATALOG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSCATALOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSCATALOG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSCATALOG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret    string        `envconfig:"POSCATALOG_JWT_SECRET" required:"true"`
	Issuer    string        `envconfig:"POSCATALOG_JWT_ISSUER" required:"true"`
	AccessTTL time.Duration `envconfig:"POSCATALOG_JWT_ACCESS_TTL" default:"16h"`
}

type PasswordConfig struct {
	BcryptCost int `envconfig:"POSCATALOG_BCRYPT_COST" default:"10"`
	MinLength  int `envconfig:"POSCATALOG_PASSWORD_MIN_LENGTH" default:"8"`
}

func (p PasswordConfig) validate() error {
	if p.BcryptCost < 4 || p.BcryptCost > 31 {
		return fmt.Errorf("%s must be between 4 and 31", EnvBcryptCost)
	}
	if p.MinLength < 1 {
		return fmt.Errorf("%s must be positive", EnvPasswordMinLength)
	}
	return nil
}

// BootstrapConfig names an admin account the API creates at startup when no
// account with that email exists. Both fields are set or neither is.
type BootstrapConfig struct {
	AdminEmail    string `envconfig:"POSCATALOG_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"POSCATALOG_BOOTSTRAP_ADMIN_PASSWORD"`
}

func (b BootstrapConfig) Enabled() bool {
	return strings.TrimSpace(b.AdminEmail) != ""
}

func (b BootstrapConfig) validate() error {
	if b.Enabled() != (b.AdminPassword != "") {
		return fmt.Errorf("%s and %s must be set together", EnvBootstrapAdminEmail, EnvBootstrapAdminPassword)
	}
	return nil
}

type HTTPConfig struct {
	ReadTimeout        time.Duration `envconfig:"POSCATALOG_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout       time.Duration `envconfig:"POSCATALOG_HTTP_WRITE_TIMEOUT" default:"30s"`
	AllowedOrigins     []string      `envconfig:"POSCATALOG_HTTP_ALLOWED_ORIGINS" default:"*"`
	WriteRatePerMinute int           `envconfig:"POSCATALOG_HTTP_WRITE_RATE_PER_MINUTE" default:"120"`
	LoginRatePerMinute int           `envconfig:"POSCATALOG_HTTP_LOGIN_RATE_PER_MINUTE" default:"10"`
	IdempotencyTTL     time.Duration `envconfig:"POSCATALOG_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type ImagesConfig struct {
	Dir             string        `envconfig:"POSCATALOG_IMAGES_DIR" default:"public/images/products"`
	PublicBaseURL   string        `envconfig:"POSCATALOG_IMAGES_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	URLPrefix       string        `envconfig:"POSCATALOG_IMAGES_URL_PREFIX" default:"/images/products/"`
	Placeholder     string        `envconfig:"POSCATALOG_IMAGES_PLACEHOLDER" default:"/images/products/default.jpeg"`
	MaxUploadMB     int           `envconfig:"POSCATALOG_IMAGES_MAX_UPLOAD_MB" default:"5"`
	DeleteQueueSize int           `envconfig:"POSCATALOG_IMAGES_DELETE_QUEUE_SIZE" default:"64"`
	OrphanMinAge    time.Duration `envconfig:"POSCATALOG_IMAGES_ORPHAN_MIN_AGE" default:"24h"`
}

// MaxUploadBytes converts the configured megabyte limit.
func (i ImagesConfig) MaxUploadBytes() int64 {
	return int64(i.MaxUploadMB) << 20
}

func (i ImagesConfig) validate() error {
	if i.MaxUploadMB <= 0 {
		return fmt.Errorf("%s must be positive", EnvImagesMaxUploadMB)
	}
	if !strings.HasPrefix(i.URLPrefix, "/") || !strings.HasSuffix(i.URLPrefix, "/") {
		return fmt.Errorf("%s must start and end with /", EnvImagesURLPrefix)
	}
	if !strings.HasPrefix(i.Placeholder, i.URLPrefix) {
		return fmt.Errorf("%s must live under %s", EnvImagesPlaceholder, i.URLPrefix)
	}
	if _, err := url.Parse(i.PublicBaseURL); err != nil {
		return fmt.Errorf("%s: %w", EnvImagesPublicBaseURL, err)
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"POSCATALOG_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"POSCATALOG_CRON_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"POSCATALOG_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"POSCATALOG_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == DriverSQLite {
		db.DSN = "file:pos_catalog.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
