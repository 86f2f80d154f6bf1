package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig
// tag so the prefix only matters for fields added without one.
const EnvPrefix = "GREENGATE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	KeyEncodingAuto   = "auto"
	KeyEncodingBase64 = "base64"
	KeyEncodingRaw    = "raw"
)

const (
	EnvAppEnv   = "GREENGATE_APP_ENV"
	EnvPort     = "GREENGATE_APP_PORT"
	EnvLogLevel = "GREENGATE_LOG_LEVEL"

	EnvDBDSN  = "GREENGATE_DB_DSN"
	EnvDBHost = "GREENGATE_DB_HOST"
	EnvDBUser = "GREENGATE_DB_USER"
	EnvDBName = "GREENGATE_DB_NAME"

	EnvRedisURL = "GREENGATE_REDIS_URL"

	EnvAuthJWTSecret = "GREENGATE_AUTH_JWT_SECRET"

	EnvDrGreenAPIKey      = "GREENGATE_DRGREEN_API_KEY"
	EnvDrGreenSecretKey   = "GREENGATE_DRGREEN_SECRET_KEY"
	EnvDrGreenKeyEncoding = "GREENGATE_DRGREEN_KEY_ENCODING"
	EnvDrGreenMaxRetries  = "GREENGATE_DRGREEN_MAX_RETRIES"

	EnvCatalogOpenCountries = "GREENGATE_CATALOG_OPEN_COUNTRIES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
