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
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Patrol        PatrolConfig
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
	Env          string `envconfig:"SMARTPATROL_APP_ENV" required:"true"`
	Port         string `envconfig:"SMARTPATROL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SMARTPATROL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SMARTPATROL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SMARTPATROL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SMARTPATROL_DB_DSN"`
	Driver string `envconfig:"SMARTPATROL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SMARTPATROL_DB_HOST"`
	LegacyPort     int    `envconfig:"SMARTPATROL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SMARTPATROL_DB_USER"`
	LegacyPassword string `envconfig:"SMARTPATROL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SMARTPATROL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SMARTPATROL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SMARTPATROL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTPATROL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTPATROL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTPATROL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMARTPATROL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SMARTPATROL_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTPATROL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTPATROL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTPATROL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTPATROL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTPATROL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTPATROL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTPATROL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SMARTPATROL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SMARTPATROL_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SMARTPATROL_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SMARTPATROL_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SMARTPATROL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SMARTPATROL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SMARTPATROL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SMARTPATROL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SMARTPATROL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SMARTPATROL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SMARTPATROL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SMARTPATROL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SMARTPATROL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SMARTPATROL_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SMARTPATROL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool   `envconfig:"SMARTPATROL_USE_SQLITE" default:"false"`
	AutoMigrate   bool   `envconfig:"SMARTPATROL_AUTO_MIGRATE" default:"false"`
	GCSAccessMode string `envconfig:"SMARTPATROL_GCS_ACCESS_MODE" default:"public"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"SMARTPATROL_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SMARTPATROL_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SMARTPATROL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SMARTPATROL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"SMARTPATROL_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"SMARTPATROL_GCS_UPLOAD_URL_EXPIRY" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"SMARTPATROL_GCS_DOWNLOAD_URL_EXPIRY" required:"true"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"SMARTPATROL_MAX_UPLOAD_MB" default:"200"`
}

type PubSubConfig struct {
	PatrolTopic               string `envconfig:"SMARTPATROL_PUBSUB_PATROL_TOPIC" required:"true"`
	NotificationTopic         string `envconfig:"SMARTPATROL_PUBSUB_NOTIFICATION_TOPIC" default:"sp-notification-events"`
	NotificationSubscription  string `envconfig:"SMARTPATROL_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription     string `envconfig:"SMARTPATROL_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
	MediaDeletionSubscription string `envconfig:"SMARTPATROL_PUBSUB_MEDIA_DELETION_SUBSCRIPTION" required:"true"`
	MediaFinalizeSubscription string `envconfig:"SMARTPATROL_PUBSUB_MEDIA_FINALIZE_SUBSCRIPTION" default:"sp-media-finalize-events"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"SMARTPATROL_BIGQUERY_DATASET" default:"smartpatrol"`
	PatrolEventsTable string `envconfig:"SMARTPATROL_BIGQUERY_PATROL_TABLE" default:"patrol_events"`
	ScanFactsTable    string `envconfig:"SMARTPATROL_BIGQUERY_SCAN_TABLE" default:"scan_facts"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SMARTPATROL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SMARTPATROL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SMARTPATROL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	OutboxRetention        time.Duration `envconfig:"SMARTPATROL_CRON_OUTBOX_RETENTION" default:"336h"`
	NotificationRetention  time.Duration `envconfig:"SMARTPATROL_CRON_NOTIFICATION_RETENTION" default:"720h"`
	MediaPendingTTL        time.Duration `envconfig:"SMARTPATROL_CRON_MEDIA_PENDING_TTL" default:"24h"`
	AssignmentOverdueAfter time.Duration `envconfig:"SMARTPATROL_CRON_ASSIGNMENT_OVERDUE_AFTER" default:"48h"`
}

// PatrolConfig carries the patrol-domain tunables. MaxActiveAssignments is
// the per-user cap on concurrently active assignments; DefaultScanRadiusM
// applies to checkpoints that do not set their own radius.
type PatrolConfig struct {
	MaxActiveAssignments int     `envconfig:"SMARTPATROL_PATROL_MAX_ACTIVE_ASSIGNMENTS" default:"5"`
	DefaultScanRadiusM   float64 `envconfig:"SMARTPATROL_PATROL_DEFAULT_SCAN_RADIUS_M" default:"100"`
	MaxRouteCheckpoints  int     `envconfig:"SMARTPATROL_PATROL_MAX_ROUTE_CHECKPOINTS" default:"50"`
	MaxEstimatedMinutes  int     `envconfig:"SMARTPATROL_PATROL_MAX_ESTIMATED_MINUTES" default:"1440"`
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
