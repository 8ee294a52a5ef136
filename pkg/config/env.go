package config

// EnvPrefix is empty: every field carries its full variable name as an
// envconfig tag, which envconfig falls back to when the prefixed key is unset.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "POSCATALOG_APP_ENV"
	EnvPort         = "POSCATALOG_APP_PORT"
	EnvLogLevel     = "POSCATALOG_LOG_LEVEL"
	EnvLogWarnStack = "POSCATALOG_LOG_WARN_STACK"

	EnvDBDSN      = "POSCATALOG_DB_DSN"
	EnvDBDriver   = "POSCATALOG_DB_DRIVER"
	EnvDBHost     = "POSCATALOG_DB_HOST"
	EnvDBPort     = "POSCATALOG_DB_PORT"
	EnvDBUser     = "POSCATALOG_DB_USER"
	EnvDBPassword = "POSCATALOG_DB_PASSWORD"
	EnvDBName     = "POSCATALOG_DB_NAME"

	EnvRedisURL = "POSCATALOG_REDIS_URL"

	EnvJWTSecret    = "POSCATALOG_JWT_SECRET"
	EnvJWTIssuer    = "POSCATALOG_JWT_ISSUER"
	EnvJWTAccessTTL = "POSCATALOG_JWT_ACCESS_TTL"

	EnvBcryptCost        = "POSCATALOG_BCRYPT_COST"
	EnvPasswordMinLength = "POSCATALOG_PASSWORD_MIN_LENGTH"

	EnvBootstrapAdminEmail    = "POSCATALOG_BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminPassword = "POSCATALOG_BOOTSTRAP_ADMIN_PASSWORD"

	EnvUseSQLite   = "POSCATALOG_USE_SQLITE"
	EnvAutoMigrate = "POSCATALOG_AUTO_MIGRATE"

	EnvImagesDir           = "POSCATALOG_IMAGES_DIR"
	EnvImagesPublicBaseURL = "POSCATALOG_IMAGES_PUBLIC_BASE_URL"
	EnvImagesURLPrefix     = "POSCATALOG_IMAGES_URL_PREFIX"
	EnvImagesPlaceholder   = "POSCATALOG_IMAGES_PLACEHOLDER"
	EnvImagesMaxUploadMB   = "POSCATALOG_IMAGES_MAX_UPLOAD_MB"

	EnvCronInterval = "POSCATALOG_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
