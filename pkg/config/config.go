package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Lending       LendingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LIBRALEND_APP_ENV" required:"true"`
	Port         string `envconfig:"LIBRALEND_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LIBRALEND_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIBRALEND_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LIBRALEND_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LIBRALEND_DB_DSN"`
	Driver string `envconfig:"LIBRALEND_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LIBRALEND_DB_HOST"`
	LegacyPort     int    `envconfig:"LIBRALEND_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LIBRALEND_DB_USER"`
	LegacyPassword string `envconfig:"LIBRALEND_DB_PASSWORD"`
	LegacyName     string `envconfig:"LIBRALEND_DB_NAME"`
	LegacySSLMode  string `envconfig:"LIBRALEND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIBRALEND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIBRALEND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIBRALEND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIBRALEND_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIBRALEND_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LIBRALEND_REDIS_ADDR"`
	Password     string        `envconfig:"LIBRALEND_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIBRALEND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIBRALEND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIBRALEND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIBRALEND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIBRALEND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIBRALEND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LIBRALEND_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LIBRALEND_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LIBRALEND_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LIBRALEND_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LIBRALEND_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LIBRALEND_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LIBRALEND_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LIBRALEND_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LIBRALEND_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"LIBRALEND_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"LIBRALEND_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"LIBRALEND_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite           bool   `envconfig:"LIBRALEND_USE_SQLITE" default:"false"`
	AutoMigrate         bool   `envconfig:"LIBRALEND_AUTO_MIGRATE" default:"false"`
	GCSAccessMode       string `envconfig:"LIBRALEND_GCS_ACCESS_MODE" default:"public"`
	CoverUploadsEnabled bool   `envconfig:"LIBRALEND_COVER_UPLOADS_ENABLED" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"LIBRALEND_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// LendingConfig carries loan-term policy: how long a copy may be kept and
// what an overdue day costs.
type LendingConfig struct {
	LoanPeriodDays      int    `envconfig:"LIBRALEND_LOAN_PERIOD_DAYS" default:"14"`
	PenaltyDailyRate    string `envconfig:"LIBRALEND_PENALTY_DAILY_RATE" default:"5"`
	PenaltyGraceDays    int    `envconfig:"LIBRALEND_PENALTY_GRACE_DAYS" default:"0"`
	PenaltyCurrencyCode string `envconfig:"LIBRALEND_PENALTY_CURRENCY" default:"INR"`
}

// LoanPeriod returns the configured loan period as a duration.
func (l LendingConfig) LoanPeriod() time.Duration {
	if l.LoanPeriodDays <= 0 {
		return 0
	}
	return time.Duration(l.LoanPeriodDays) * 24 * time.Hour
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LIBRALEND_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LIBRALEND_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LIBRALEND_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"LIBRALEND_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"LIBRALEND_GCS_UPLOAD_URL_EXPIRY" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"LIBRALEND_GCS_DOWNLOAD_URL_EXPIRY" required:"true"`
	MaxCoverUploadMB  int           `envconfig:"LIBRALEND_GCS_MAX_COVER_UPLOAD_MB" default:"10"`
}

type PubSubConfig struct {
	LendingTopic        string `envconfig:"LIBRALEND_PUBSUB_LENDING_TOPIC" required:"true"`
	LendingSubscription string `envconfig:"LIBRALEND_PUBSUB_LENDING_SUBSCRIPTION" required:"true"`
	AlertTopic          string `envconfig:"LIBRALEND_PUBSUB_ALERT_TOPIC" default:"ll-alert-events"`
	AlertSubscription   string `envconfig:"LIBRALEND_PUBSUB_ALERT_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LIBRALEND_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LIBRALEND_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LIBRALEND_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
