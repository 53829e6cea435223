package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Queue     QueueConfig
	Sequence  SequenceConfig
	Rappi     RappiConfig
	PedidosYa PedidosYaConfig
	RateLimit RateLimitConfig
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
	Env          string `envconfig:"CG_APP_ENV" required:"true"`
	Port         string `envconfig:"CG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CG_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"CG_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CG_DB_DSN"`
	Driver string `envconfig:"CG_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CG_DB_HOST"`
	LegacyPort     int    `envconfig:"CG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CG_DB_USER"`
	LegacyPassword string `envconfig:"CG_DB_PASSWORD"`
	LegacyName     string `envconfig:"CG_DB_NAME"`
	LegacySSLMode  string `envconfig:"CG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CG_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CG_REDIS_ADDR"`
	Password     string        `envconfig:"CG_REDIS_PASSWORD"`
	DB           int           `envconfig:"CG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CG_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CG_JWT_EXPIRATION_MINUTES" default:"720"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"CG_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"CG_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	WebhookJobsTopic        string `envconfig:"CG_PUBSUB_WEBHOOK_JOBS_TOPIC" default:"cg-webhook-jobs"`
	WebhookJobsSubscription string `envconfig:"CG_PUBSUB_WEBHOOK_JOBS_SUBSCRIPTION" required:"true"`
	KitchenTopic            string `envconfig:"CG_PUBSUB_KITCHEN_TOPIC" default:"cg-kitchen-events"`
}

type QueueConfig struct {
	// DedupTTL bounds how long a deterministic job id suppresses duplicate
	// enqueues of the same webhook delivery.
	DedupTTL       time.Duration `envconfig:"CG_QUEUE_DEDUP_TTL" default:"24h"`
	PublishTimeout time.Duration `envconfig:"CG_QUEUE_PUBLISH_TIMEOUT" default:"15s"`
}

type SequenceConfig struct {
	CutoffHour    int           `envconfig:"CG_BUSINESS_DAY_CUTOFF_HOUR" default:"6"`
	Shard         string        `envconfig:"CG_SEQUENCE_SHARD" default:"hourly"`
	RetryAttempts int           `envconfig:"CG_SEQUENCE_RETRY_ATTEMPTS" default:"4"`
	RetryBaseWait time.Duration `envconfig:"CG_SEQUENCE_RETRY_BASE_WAIT" default:"50ms"`
	SlowThreshold time.Duration `envconfig:"CG_SEQUENCE_SLOW_THRESHOLD" default:"100ms"`
	DailyBound    int64         `envconfig:"CG_SEQUENCE_DAILY_BOUND" default:"9999"`
}

// ShardDaily reports whether sequence shards roll per business day instead of
// per hour.
func (s SequenceConfig) ShardDaily() bool {
	return strings.EqualFold(strings.TrimSpace(s.Shard), "daily")
}

type RappiConfig struct {
	WebhookSecret string        `envconfig:"CG_RAPPI_WEBHOOK_SECRET"`
	APIToken      string        `envconfig:"CG_RAPPI_API_TOKEN"`
	BaseURL       string        `envconfig:"CG_RAPPI_BASE_URL" default:"https://services.rappi.com/api/v1"`
	Timeout       time.Duration `envconfig:"CG_RAPPI_TIMEOUT" default:"20s"`
}

type PedidosYaConfig struct {
	WebhookSecret string        `envconfig:"CG_PEDIDOSYA_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"CG_PEDIDOSYA_BASE_URL" default:"https://api.pedidosya.com/v3"`
	AuthURL       string        `envconfig:"CG_PEDIDOSYA_AUTH_URL" default:"https://auth.pedidosya.com/oauth/token"`
	ClientID      string        `envconfig:"CG_PEDIDOSYA_CLIENT_ID"`
	ClientSecret  string        `envconfig:"CG_PEDIDOSYA_CLIENT_SECRET"`
	Timeout       time.Duration `envconfig:"CG_PEDIDOSYA_TIMEOUT" default:"20s"`
}

type RateLimitConfig struct {
	OrderWindow time.Duration `envconfig:"CG_RATE_LIMIT_ORDER_WINDOW" default:"1m"`
	OrderLimit  int64         `envconfig:"CG_RATE_LIMIT_ORDER_LIMIT" default:"120"`
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
