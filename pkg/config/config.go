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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	DrGreen      DrGreenConfig
	Catalog      CatalogConfig
	Sync         SyncConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.DrGreen.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GREENGATE_APP_ENV" required:"true"`
	Port         string `envconfig:"GREENGATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GREENGATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GREENGATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GREENGATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GREENGATE_DB_DSN"`
	Driver string `envconfig:"GREENGATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GREENGATE_DB_HOST"`
	LegacyPort     int    `envconfig:"GREENGATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GREENGATE_DB_USER"`
	LegacyPassword string `envconfig:"GREENGATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GREENGATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GREENGATE_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"GREENGATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GREENGATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GREENGATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GREENGATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GREENGATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GREENGATE_REDIS_ADDR"`
	Password     string        `envconfig:"GREENGATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GREENGATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GREENGATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GREENGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GREENGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GREENGATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GREENGATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig describes how access tokens minted by the managed identity
// provider are verified.
type AuthConfig struct {
	JWTSecret string `envconfig:"GREENGATE_AUTH_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"GREENGATE_AUTH_ISSUER"`
	Audience  string `envconfig:"GREENGATE_AUTH_AUDIENCE" default:"authenticated"`
}

type DrGreenConfig struct {
	BaseURL        string        `envconfig:"GREENGATE_DRGREEN_BASE_URL" default:"https://api.drgreennft.com/api/v1"`
	APIKey         string        `envconfig:"GREENGATE_DRGREEN_API_KEY" required:"true"`
	SecretKey      string        `envconfig:"GREENGATE_DRGREEN_SECRET_KEY" required:"true"`
	KeyEncoding    string        `envconfig:"GREENGATE_DRGREEN_KEY_ENCODING" default:"auto"`
	RequestTimeout time.Duration `envconfig:"GREENGATE_DRGREEN_REQUEST_TIMEOUT" default:"20s"`

	MaxRetries     int           `envconfig:"GREENGATE_DRGREEN_MAX_RETRIES" default:"3"`
	InitialDelay   time.Duration `envconfig:"GREENGATE_DRGREEN_RETRY_INITIAL_DELAY" default:"500ms"`
	Multiplier     float64       `envconfig:"GREENGATE_DRGREEN_RETRY_MULTIPLIER" default:"2"`
	MaxDelay       time.Duration `envconfig:"GREENGATE_DRGREEN_RETRY_MAX_DELAY" default:"10s"`
	JitterFraction float64       `envconfig:"GREENGATE_DRGREEN_RETRY_JITTER" default:"0.3"`
}

func (d DrGreenConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(d.KeyEncoding)) {
	case "", KeyEncodingAuto, KeyEncodingBase64, KeyEncodingRaw:
	default:
		return fmt.Errorf("%s must be one of auto, base64, raw", EnvDrGreenKeyEncoding)
	}
	if d.MaxRetries < 0 {
		return fmt.Errorf("%s must not be negative", EnvDrGreenMaxRetries)
	}
	return nil
}

// CatalogConfig controls which countries may browse strains anonymously.
type CatalogConfig struct {
	OpenCountries  []string `envconfig:"GREENGATE_CATALOG_OPEN_COUNTRIES" default:"ZAF,THA"`
	DefaultCountry string   `envconfig:"GREENGATE_CATALOG_DEFAULT_COUNTRY" default:"ZAF"`
	SyncCountries  []string `envconfig:"GREENGATE_CATALOG_SYNC_COUNTRIES" default:"ZAF,PRT,GBR,THA"`
	PageSize       int      `envconfig:"GREENGATE_CATALOG_PAGE_SIZE" default:"100"`
}

type SyncConfig struct {
	OrderPollInterval  time.Duration `envconfig:"GREENGATE_SYNC_ORDER_POLL_INTERVAL" default:"60s"`
	ClientPollInterval time.Duration `envconfig:"GREENGATE_SYNC_CLIENT_POLL_INTERVAL" default:"30s"`
	StrainSyncInterval time.Duration `envconfig:"GREENGATE_SYNC_STRAIN_INTERVAL" default:"6h"`
	BatchLimit         int           `envconfig:"GREENGATE_SYNC_BATCH_LIMIT" default:"200"`
}

type RateLimitConfig struct {
	PublicWindow  time.Duration `envconfig:"GREENGATE_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicIPLimit int           `envconfig:"GREENGATE_RATE_LIMIT_PUBLIC_IP_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GREENGATE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
