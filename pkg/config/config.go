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
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Workflow     WorkflowConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Workflow.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"QUOTEFLOW_APP_ENV" required:"true"`
	Port         string   `envconfig:"QUOTEFLOW_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"QUOTEFLOW_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"QUOTEFLOW_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"QUOTEFLOW_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"QUOTEFLOW_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"QUOTEFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QUOTEFLOW_DB_DSN"`
	Driver string `envconfig:"QUOTEFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUOTEFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"QUOTEFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUOTEFLOW_DB_USER"`
	LegacyPassword string `envconfig:"QUOTEFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUOTEFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUOTEFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUOTEFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUOTEFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUOTEFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUOTEFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUOTEFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUOTEFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"QUOTEFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUOTEFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUOTEFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUOTEFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUOTEFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUOTEFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUOTEFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the settings used to verify bearer tokens. Tokens are minted elsewhere.
type JWTConfig struct {
	Secret string `envconfig:"QUOTEFLOW_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"QUOTEFLOW_JWT_ISSUER" required:"true"`
}

// RateLimitConfig bounds mutating API calls per client IP and per actor.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"QUOTEFLOW_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"QUOTEFLOW_RATE_LIMIT_IP_LIMIT" default:"120"`
	ActorLimit int           `envconfig:"QUOTEFLOW_RATE_LIMIT_ACTOR_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUOTEFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUOTEFLOW_AUTO_MIGRATE" default:"false"`
}

// WorkflowConfig tunes the quote workflow and automation passes.
type WorkflowConfig struct {
	ApprovalThreshold  string  `envconfig:"QUOTEFLOW_APPROVAL_THRESHOLD" default:"10000"`
	QuoteValidityDays  int     `envconfig:"QUOTEFLOW_QUOTE_VALIDITY_DAYS" default:"30"`
	AutomationMaxDepth int     `envconfig:"QUOTEFLOW_AUTOMATION_MAX_DEPTH" default:"3"`
	OverloadFactor     float64 `envconfig:"QUOTEFLOW_OVERLOAD_FACTOR" default:"1.5"`
	DeadlineWindowDays int     `envconfig:"QUOTEFLOW_DEADLINE_WINDOW_DAYS" default:"3"`
}

// Threshold parses ApprovalThreshold. validate guarantees it is well formed after Load.
func (w WorkflowConfig) Threshold() decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(w.ApprovalThreshold))
	if err != nil {
		return decimal.Zero
	}
	return value
}

func (w WorkflowConfig) validate() error {
	value, err := decimal.NewFromString(strings.TrimSpace(w.ApprovalThreshold))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvApprovalThreshold, err)
	}
	if value.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvApprovalThreshold)
	}
	if w.QuoteValidityDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvQuoteValidityDays)
	}
	if w.AutomationMaxDepth <= 0 {
		return fmt.Errorf("%s must be positive", EnvAutomationMaxDepth)
	}
	if w.OverloadFactor <= 0 {
		return fmt.Errorf("%s must be positive", EnvOverloadFactor)
	}
	return nil
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"QUOTEFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"QUOTEFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"QUOTEFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"QUOTEFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"QUOTEFLOW_PUBSUB_DOMAIN_TOPIC" default:"quoteflow-domain-events"`
	EmailTopic  string `envconfig:"QUOTEFLOW_PUBSUB_EMAIL_TOPIC" default:"quoteflow-email-requests"`
	// CreateTopics creates missing topics at startup. Meant for the emulator.
	CreateTopics bool `envconfig:"QUOTEFLOW_PUBSUB_CREATE_TOPICS" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"QUOTEFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"QUOTEFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"QUOTEFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"QUOTEFLOW_OUTBOX_METRICS_ADDR" default:":9103"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"QUOTEFLOW_CRON_INTERVAL" default:"15m"`
	LockTTL     time.Duration `envconfig:"QUOTEFLOW_CRON_LOCK_TTL" default:"10m"`
	MetricsAddr string        `envconfig:"QUOTEFLOW_CRON_METRICS_ADDR" default:":9102"`

	NotificationRetentionDays int `envconfig:"QUOTEFLOW_NOTIFICATION_RETENTION_DAYS" default:"90"`
	OutboxRetentionDays       int `envconfig:"QUOTEFLOW_OUTBOX_RETENTION_DAYS" default:"14"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
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
