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
	Media         MediaConfig
	Mail          MailConfig
	GCP           GCPConfig
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
	Env          string `envconfig:"OPD_APP_ENV" required:"true"`
	Port         string `envconfig:"OPD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OPD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPD_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"OPD_APP_PUBLIC_URL" default:"http://localhost:3000"`
	FrontendURL  string `envconfig:"OPD_APP_FRONTEND_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OPD_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"OPD_DB_DSN"`
	Driver string `envconfig:"OPD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OPD_DB_HOST"`
	LegacyPort     int    `envconfig:"OPD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OPD_DB_USER"`
	LegacyPassword string `envconfig:"OPD_DB_PASSWORD"`
	LegacyName     string `envconfig:"OPD_DB_NAME"`
	LegacySSLMode  string `envconfig:"OPD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OPD_REDIS_ADDR"`
	Password     string        `envconfig:"OPD_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"OPD_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"OPD_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"OPD_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"OPD_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OPD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OPD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OPD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OPD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OPD_ARGON_KEY_LEN" default:"32"`

	AccountTokenTTL time.Duration `envconfig:"OPD_ACCOUNT_TOKEN_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"OPD_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"OPD_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"OPD_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"OPD_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"OPD_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"OPD_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"OPD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"OPD_AUTO_MIGRATE" default:"false"`
}

type MediaConfig struct {
	ImageDir    string `envconfig:"OPD_MEDIA_IMAGE_DIR" default:"public/images"`
	MaxUploadMB int    `envconfig:"OPD_MEDIA_MAX_UPLOAD_MB" default:"10"`
}

type MailConfig struct {
	FromAddress string `envconfig:"OPD_MAIL_FROM" default:"no-reply@oldphonedeals.local"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"OPD_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"OPD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"OPD_PUBSUB_ORDERS_TOPIC" default:"opd-order-events"`
	OrdersSubscription string `envconfig:"OPD_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"OPD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"OPD_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"OPD_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
