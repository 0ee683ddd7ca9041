package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "LIBRALEND"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names for values referenced outside struct tags.
const (
	EnvAppEnv                 = "LIBRALEND_APP_ENV"
	EnvPort                   = "LIBRALEND_APP_PORT"
	EnvDBDSN                  = "LIBRALEND_DB_DSN"
	EnvDBHost                 = "LIBRALEND_DB_HOST"
	EnvDBUser                 = "LIBRALEND_DB_USER"
	EnvDBName                 = "LIBRALEND_DB_NAME"
	EnvRedisURL               = "LIBRALEND_REDIS_URL"
	EnvJWTSecret              = "LIBRALEND_JWT_SECRET"
	EnvJWTIssuer              = "LIBRALEND_JWT_ISSUER"
	EnvJWTExpMins             = "LIBRALEND_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "LIBRALEND_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "LIBRALEND_GCP_PROJECT_ID"
	EnvGCSBucket              = "LIBRALEND_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry        = "LIBRALEND_GCS_UPLOAD_URL_EXPIRY"
	EnvGCSDownloadExpiry      = "LIBRALEND_GCS_DOWNLOAD_URL_EXPIRY"
	EnvPubSubLendingTopic     = "LIBRALEND_PUBSUB_LENDING_TOPIC"
	EnvPubSubLendingSub       = "LIBRALEND_PUBSUB_LENDING_SUBSCRIPTION"
	EnvPubSubAlertTopic       = "LIBRALEND_PUBSUB_ALERT_TOPIC"
	EnvPubSubAlertSub         = "LIBRALEND_PUBSUB_ALERT_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
