package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GAMECRATE_DB_DSN"
	EnvDBHost = "GAMECRATE_DB_HOST"
	EnvDBUser = "GAMECRATE_DB_USER"
	EnvDBName = "GAMECRATE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Loyalty      LoyaltyConfig
	Checkout     CheckoutConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"GAMECRATE_APP_ENV" required:"true"`
	Port         string `envconfig:"GAMECRATE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GAMECRATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GAMECRATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GAMECRATE_DB_DSN"`
	Driver string `envconfig:"GAMECRATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GAMECRATE_DB_HOST"`
	LegacyPort     int    `envconfig:"GAMECRATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GAMECRATE_DB_USER"`
	LegacyPassword string `envconfig:"GAMECRATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GAMECRATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GAMECRATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GAMECRATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GAMECRATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GAMECRATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GAMECRATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GAMECRATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GAMECRATE_REDIS_ADDR"`
	Password     string        `envconfig:"GAMECRATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GAMECRATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GAMECRATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GAMECRATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GAMECRATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GAMECRATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GAMECRATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GAMECRATE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GAMECRATE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GAMECRATE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// LoyaltyConfig carries the points economy rates. These are configuration,
// not compiled constants, so rate changes do not require a redeploy.
type LoyaltyConfig struct {
	EarnPointsPerDollar   int `envconfig:"GAMECRATE_LOYALTY_EARN_POINTS_PER_DOLLAR" default:"10"`
	RedeemPointsPerDollar int `envconfig:"GAMECRATE_LOYALTY_REDEEM_POINTS_PER_DOLLAR" default:"100"`
	MinRedemptionPoints   int `envconfig:"GAMECRATE_LOYALTY_MIN_REDEMPTION_POINTS" default:"100"`
}

type CheckoutConfig struct {
	CartTTL time.Duration `envconfig:"GAMECRATE_CART_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"GAMECRATE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"GAMECRATE_PUBSUB_NOTIFICATION_TOPIC" default:"gc-notification-events"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GAMECRATE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GAMECRATE_AUTO_MIGRATE" default:"false"`
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
