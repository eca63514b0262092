package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Cart         CartConfig
	Mongo        MongoConfig
	CORS         CORSConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	SMTP         SMTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(cfg.Mongo); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"THREADHOUSE_APP_ENV" required:"true"`
	Port         string `envconfig:"THREADHOUSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THREADHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THREADHOUSE_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"THREADHOUSE_APP_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"THREADHOUSE_SERVICE_KIND" default:"api"`
	MetricsPort string `envconfig:"THREADHOUSE_METRICS_PORT" default:"9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"THREADHOUSE_DB_DSN"`
	Driver string `envconfig:"THREADHOUSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THREADHOUSE_DB_HOST"`
	LegacyPort     int    `envconfig:"THREADHOUSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THREADHOUSE_DB_USER"`
	LegacyPassword string `envconfig:"THREADHOUSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"THREADHOUSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"THREADHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THREADHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THREADHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THREADHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THREADHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THREADHOUSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THREADHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"THREADHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"THREADHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THREADHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THREADHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THREADHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THREADHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THREADHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"THREADHOUSE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"THREADHOUSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"THREADHOUSE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"THREADHOUSE_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"THREADHOUSE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"THREADHOUSE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"THREADHOUSE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"THREADHOUSE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"THREADHOUSE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate      bool `envconfig:"THREADHOUSE_AUTO_MIGRATE" default:"false"`
	CartSyncReprice  bool `envconfig:"THREADHOUSE_FEATURE_CART_SYNC_REPRICE" default:"false"`
	DirectEmail      bool `envconfig:"THREADHOUSE_FEATURE_DIRECT_EMAIL" default:"false"`
	StripeEnabled    bool `envconfig:"THREADHOUSE_FEATURE_STRIPE" default:"true"`
	ObjectStoreWrite bool `envconfig:"THREADHOUSE_FEATURE_GCS" default:"true"`
}

// CartConfig tunes the pricing rules and the backing store of the cart aggregator.
type CartConfig struct {
	Store             string `envconfig:"THREADHOUSE_CART_STORE" default:"postgres"`
	GiftWrapSurcharge string `envconfig:"THREADHOUSE_CART_GIFT_WRAP_SURCHARGE" default:"30"`
	BundlePrice       string `envconfig:"THREADHOUSE_CART_BUNDLE_PRICE" default:"1299"`
	BundleSize        int    `envconfig:"THREADHOUSE_CART_BUNDLE_SIZE" default:"3"`
	BundleCategory    string `envconfig:"THREADHOUSE_CART_BUNDLE_CATEGORY" default:"Tshirt"`
	ConflictRetries   int    `envconfig:"THREADHOUSE_CART_CONFLICT_RETRIES" default:"3"`
}

// GiftWrap returns the configured surcharge as a decimal.
func (c CartConfig) GiftWrap() decimal.Decimal {
	return decimal.RequireFromString(c.GiftWrapSurcharge)
}

// Bundle returns the configured bundle price as a decimal.
func (c CartConfig) Bundle() decimal.Decimal {
	return decimal.RequireFromString(c.BundlePrice)
}

// UsesMongo reports whether carts are persisted in the document store.
func (c CartConfig) UsesMongo() bool {
	return strings.EqualFold(strings.TrimSpace(c.Store), CartStoreMongo)
}

func (c CartConfig) validate(mongo MongoConfig) error {
	switch strings.ToLower(strings.TrimSpace(c.Store)) {
	case CartStorePostgres:
	case CartStoreMongo:
		if strings.TrimSpace(mongo.URI) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvMongoURI, EnvCartStore, CartStoreMongo)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCartStore, CartStorePostgres, CartStoreMongo)
	}
	for env, raw := range map[string]string{
		EnvCartGiftWrap:    c.GiftWrapSurcharge,
		EnvCartBundlePrice: c.BundlePrice,
	} {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		if value.IsNegative() {
			return fmt.Errorf("%s must not be negative", env)
		}
	}
	if c.BundleSize < 1 {
		return fmt.Errorf("%s must be positive", EnvCartBundleSize)
	}
	return nil
}

type MongoConfig struct {
	URI        string        `envconfig:"THREADHOUSE_MONGO_URI"`
	Database   string        `envconfig:"THREADHOUSE_MONGO_DATABASE" default:"threadhouse"`
	Collection string        `envconfig:"THREADHOUSE_MONGO_CART_COLLECTION" default:"carts"`
	Timeout    time.Duration `envconfig:"THREADHOUSE_MONGO_TIMEOUT" default:"10s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"THREADHOUSE_CORS_ALLOWED_ORIGINS" default:"*"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"THREADHOUSE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"THREADHOUSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"THREADHOUSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"THREADHOUSE_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"THREADHOUSE_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB      int `envconfig:"THREADHOUSE_MAX_UPLOAD_MB" default:"5"`
	MaxProductImages int `envconfig:"THREADHOUSE_MAX_PRODUCT_IMAGES" default:"5"`
}

// MaxUploadBytes converts the configured limit into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 0
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	EmailTopic        string `envconfig:"THREADHOUSE_PUBSUB_EMAIL_TOPIC" default:"th-email-jobs"`
	EmailSubscription string `envconfig:"THREADHOUSE_PUBSUB_EMAIL_SUBSCRIPTION" default:"th-email-jobs-sub"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"THREADHOUSE_STRIPE_API_KEY"`
	Secret   string `envconfig:"THREADHOUSE_STRIPE_SECRET"`
	Env      string `envconfig:"THREADHOUSE_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"THREADHOUSE_STRIPE_CURRENCY" default:"inr"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SMTPConfig struct {
	Host     string `envconfig:"THREADHOUSE_SMTP_HOST"`
	Port     int    `envconfig:"THREADHOUSE_SMTP_PORT" default:"587"`
	Username string `envconfig:"THREADHOUSE_SMTP_USERNAME"`
	Password string `envconfig:"THREADHOUSE_SMTP_PASSWORD"`
	From     string `envconfig:"THREADHOUSE_SMTP_FROM" default:"orders@threadhouse.local"`
	AdminTo  string `envconfig:"THREADHOUSE_SMTP_ADMIN_TO"`
}

// Addr returns host:port for the relay.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
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
