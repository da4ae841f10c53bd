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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Sync         SyncConfig
	SideEffects  SideEffectsConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TAPLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"TAPLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TAPLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TAPLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TAPLINE_SERVICE_KIND" default:"api"`
	// TaxRate is the venue sales tax applied when totals are recomputed,
	// e.g. "0.0825".
	TaxRate string `envconfig:"TAPLINE_TAX_RATE" default:"0"`
}

type DBConfig struct {
	DSN    string `envconfig:"TAPLINE_DB_DSN"`
	Driver string `envconfig:"TAPLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TAPLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"TAPLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TAPLINE_DB_USER"`
	LegacyPassword string `envconfig:"TAPLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TAPLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TAPLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAPLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAPLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAPLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAPLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// AcquireTimeout bounds how long a mutation waits for a pooled
	// connection before failing with a retryable dependency error.
	AcquireTimeout time.Duration `envconfig:"TAPLINE_DB_ACQUIRE_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TAPLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TAPLINE_REDIS_ADDR"`
	Password     string        `envconfig:"TAPLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAPLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAPLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAPLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAPLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAPLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAPLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TAPLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TAPLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TAPLINE_JWT_EXPIRATION_MINUTES" default:"720"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TAPLINE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TAPLINE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TAPLINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TAPLINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic         string `envconfig:"TAPLINE_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription  string `envconfig:"TAPLINE_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	StationTopic        string `envconfig:"TAPLINE_PUBSUB_STATION_TOPIC" required:"true"`
	StationSubscription string `envconfig:"TAPLINE_PUBSUB_STATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"TAPLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"TAPLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"TAPLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionTTL   time.Duration `envconfig:"TAPLINE_OUTBOX_RETENTION_TTL" default:"168h"`
}

type SyncConfig struct {
	// RefetchDebounce is the window the sync agent waits before collapsing
	// queued refetches into one request.
	RefetchDebounce time.Duration `envconfig:"TAPLINE_SYNC_REFETCH_DEBOUNCE" default:"400ms"`
	// PollInterval is the disconnected fallback cadence, an order of
	// magnitude slower than the realtime path.
	PollInterval time.Duration `envconfig:"TAPLINE_SYNC_POLL_INTERVAL" default:"15s"`
	// RecoveryMaxEntries caps the per-order local recovery buffer.
	RecoveryMaxEntries int           `envconfig:"TAPLINE_SYNC_RECOVERY_MAX_ENTRIES" default:"100"`
	RecoveryTTL        time.Duration `envconfig:"TAPLINE_SYNC_RECOVERY_TTL" default:"72h"`
}

type SideEffectsConfig struct {
	Workers   int `envconfig:"TAPLINE_SIDE_EFFECT_WORKERS" default:"4"`
	QueueSize int `envconfig:"TAPLINE_SIDE_EFFECT_QUEUE_SIZE" default:"256"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"TAPLINE_CRON_INTERVAL" default:"1h"`
	LockTTL       time.Duration `envconfig:"TAPLINE_CRON_LOCK_TTL" default:"55m"`
	StaleDraftAge time.Duration `envconfig:"TAPLINE_CRON_STALE_DRAFT_AGE" default:"12h"`
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
