package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Settlement   SettlementConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Settlement.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COURSEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"COURSEHUB_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COURSEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURSEHUB_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"COURSEHUB_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COURSEHUB_DB_DSN"`
	Driver string `envconfig:"COURSEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURSEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"COURSEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURSEHUB_DB_USER"`
	LegacyPassword string `envconfig:"COURSEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURSEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURSEHUB_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"COURSEHUB_SQLITE_PATH" default:"coursehub.db"`

	MaxOpenConns    int           `envconfig:"COURSEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURSEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURSEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURSEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"COURSEHUB_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURSEHUB_REDIS_URL"`
	Address      string        `envconfig:"COURSEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"COURSEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURSEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURSEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURSEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURSEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURSEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURSEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COURSEHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COURSEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COURSEHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COURSEHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COURSEHUB_AUTO_MIGRATE" default:"false"`
}

// SettlementConfig controls the monthly settlement engine. Fee parameters are
// intentionally absent: they only exist as saved fee schedule versions.
type SettlementConfig struct {
	Timezone     string        `envconfig:"COURSEHUB_SETTLEMENT_TIMEZONE" default:"America/Sao_Paulo"`
	CronInterval time.Duration `envconfig:"COURSEHUB_SETTLEMENT_CRON_INTERVAL" default:"1h"`
	LockTTL      time.Duration `envconfig:"COURSEHUB_SETTLEMENT_LOCK_TTL" default:"10m"`
}

// Location resolves the reference timezone used for calendar month boundaries.
func (s SettlementConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return nil, fmt.Errorf("%s is required", EnvSettlementTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvSettlementTimezone, name, err)
	}
	return loc, nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COURSEHUB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"COURSEHUB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COURSEHUB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic       string `envconfig:"COURSEHUB_PUBSUB_SETTLEMENT_TOPIC" default:"coursehub-settlement-events"`
	AnalyticsSubscription string `envconfig:"COURSEHUB_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"coursehub-settlement-analytics"`
	MaxOutstanding        int    `envconfig:"COURSEHUB_PUBSUB_MAX_OUTSTANDING" default:"100"`
}

type BigQueryConfig struct {
	Dataset               string `envconfig:"COURSEHUB_BIGQUERY_DATASET" default:"coursehub_finance"`
	SettlementEventsTable string `envconfig:"COURSEHUB_BIGQUERY_SETTLEMENT_EVENTS_TABLE" default:"settlement_events"`
	InvoiceFactsTable     string `envconfig:"COURSEHUB_BIGQUERY_INVOICE_FACTS_TABLE" default:"invoice_facts"`
	CreateTables          bool   `envconfig:"COURSEHUB_BIGQUERY_CREATE_TABLES" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"COURSEHUB_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COURSEHUB_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COURSEHUB_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COURSEHUB_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite || db.DSN != "" {
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
