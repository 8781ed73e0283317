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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Payments     PaymentsConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRADELINK_APP_ENV" required:"true"`
	Port         string `envconfig:"TRADELINK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TRADELINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRADELINK_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"TRADELINK_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"TRADELINK_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the configured CORS origins list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"TRADELINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRADELINK_DB_DSN"`
	Driver string `envconfig:"TRADELINK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TRADELINK_DB_HOST"`
	Port     int    `envconfig:"TRADELINK_DB_PORT" default:"5432"`
	User     string `envconfig:"TRADELINK_DB_USER"`
	Password string `envconfig:"TRADELINK_DB_PASSWORD"`
	Name     string `envconfig:"TRADELINK_DB_NAME"`
	SSLMode  string `envconfig:"TRADELINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADELINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADELINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADELINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADELINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"TRADELINK_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADELINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADELINK_REDIS_ADDR"`
	Password     string        `envconfig:"TRADELINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADELINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADELINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADELINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADELINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADELINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADELINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRADELINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRADELINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRADELINK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADELINK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"TRADELINK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL     time.Duration `envconfig:"TRADELINK_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"TRADELINK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"TRADELINK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"TRADELINK_PUBSUB_ORDERS_TOPIC" default:"tl-order-events"`
	InvoicesTopic string `envconfig:"TRADELINK_PUBSUB_INVOICES_TOPIC" default:"tl-invoice-events"`
	// Pub/Sub subscriptions are bound to one topic, so the notification
	// worker reads one subscription per event topic.
	OrderNotificationSubscription   string `envconfig:"TRADELINK_PUBSUB_ORDER_NOTIFICATION_SUBSCRIPTION" default:"tl-order-notification-sub"`
	InvoiceNotificationSubscription string `envconfig:"TRADELINK_PUBSUB_INVOICE_NOTIFICATION_SUBSCRIPTION" default:"tl-invoice-notification-sub"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"TRADELINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"TRADELINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"TRADELINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeout time.Duration `envconfig:"TRADELINK_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	Retention      time.Duration `envconfig:"TRADELINK_OUTBOX_RETENTION" default:"720h"`
}

type PaymentsConfig struct {
	Provider        string        `envconfig:"TRADELINK_PAYMENTS_PROVIDER" default:"razorpay"`
	BaseURL         string        `envconfig:"TRADELINK_PAYMENTS_BASE_URL" default:"https://api.razorpay.com"`
	KeyID           string        `envconfig:"TRADELINK_PAYMENTS_KEY_ID"`
	KeySecret       string        `envconfig:"TRADELINK_PAYMENTS_KEY_SECRET"`
	DefaultCurrency string        `envconfig:"TRADELINK_PAYMENTS_DEFAULT_CURRENCY" default:"INR"`
	ProviderTimeout time.Duration `envconfig:"TRADELINK_PAYMENTS_PROVIDER_TIMEOUT" default:"10s"`
	IntentTTL       time.Duration `envconfig:"TRADELINK_PAYMENTS_INTENT_TTL" default:"30m"`
}

func (p PaymentsConfig) validate() error {
	if p.ProviderTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvPaymentsProviderTimeout)
	}
	if p.IntentTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvPaymentsIntentTTL)
	}
	return nil
}

type RateLimitConfig struct {
	ConfirmWindow time.Duration `envconfig:"TRADELINK_RATE_LIMIT_CONFIRM_WINDOW" default:"1m"`
	ConfirmLimit  int           `envconfig:"TRADELINK_RATE_LIMIT_CONFIRM_LIMIT" default:"30"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"TRADELINK_CRON_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"TRADELINK_CRON_LOCK_TTL" default:"10m"`
	JobTimeout            time.Duration `envconfig:"TRADELINK_CRON_JOB_TIMEOUT" default:"5m"`
	NotificationRetention time.Duration `envconfig:"TRADELINK_NOTIFICATION_RETENTION" default:"2160h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
