package config

const EnvPrefix = "THREADHOUSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	CartStorePostgres = "postgres"
	CartStoreMongo    = "mongo"
)

const (
	EnvAppEnv   = "THREADHOUSE_APP_ENV"
	EnvPort     = "THREADHOUSE_APP_PORT"
	EnvLogLevel = "THREADHOUSE_LOG_LEVEL"

	EnvDBDSN  = "THREADHOUSE_DB_DSN"
	EnvDBHost = "THREADHOUSE_DB_HOST"
	EnvDBUser = "THREADHOUSE_DB_USER"
	EnvDBName = "THREADHOUSE_DB_NAME"

	EnvRedisURL = "THREADHOUSE_REDIS_URL"

	EnvJWTSecret              = "THREADHOUSE_JWT_SECRET"
	EnvJWTIssuer              = "THREADHOUSE_JWT_ISSUER"
	EnvJWTExpMins             = "THREADHOUSE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "THREADHOUSE_REFRESH_TOKEN_TTL_MINUTES"

	EnvCartStore       = "THREADHOUSE_CART_STORE"
	EnvCartGiftWrap    = "THREADHOUSE_CART_GIFT_WRAP_SURCHARGE"
	EnvCartBundlePrice = "THREADHOUSE_CART_BUNDLE_PRICE"
	EnvCartBundleSize  = "THREADHOUSE_CART_BUNDLE_SIZE"
	EnvCartSyncReprice = "THREADHOUSE_FEATURE_CART_SYNC_REPRICE"

	EnvMongoURI = "THREADHOUSE_MONGO_URI"

	EnvGCPProjectID = "THREADHOUSE_GCP_PROJECT_ID"
	EnvGCSBucket    = "THREADHOUSE_GCS_BUCKET_NAME"

	EnvPubSubEmailTopic = "THREADHOUSE_PUBSUB_EMAIL_TOPIC"
	EnvPubSubEmailSub   = "THREADHOUSE_PUBSUB_EMAIL_SUBSCRIPTION"

	EnvSMTPHost = "THREADHOUSE_SMTP_HOST"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
