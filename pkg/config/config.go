package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable consumed by the service.
const EnvPrefix = "coinledger"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Orders       OrdersConfig
	Payment      PaymentConfig
	Sweep        SweepConfig
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
	Env          string `envconfig:"COINLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"COINLEDGER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COINLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COINLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"COINLEDGER_DB_DSN"`

	Host     string `envconfig:"COINLEDGER_DB_HOST"`
	Port     int    `envconfig:"COINLEDGER_DB_PORT" default:"5432"`
	User     string `envconfig:"COINLEDGER_DB_USER"`
	Password string `envconfig:"COINLEDGER_DB_PASSWORD"`
	Name     string `envconfig:"COINLEDGER_DB_NAME"`
	SSLMode  string `envconfig:"COINLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COINLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COINLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COINLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COINLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either COINLEDGER_DB_DSN or host/user/name must be set")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"COINLEDGER_REDIS_URL"`
	Address      string        `envconfig:"COINLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"COINLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"COINLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COINLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COINLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COINLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COINLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COINLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COINLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COINLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COINLEDGER_JWT_EXPIRATION_MINUTES" default:"60"`
}

type OrdersConfig struct {
	NumberPrefix string        `envconfig:"COINLEDGER_ORDER_NUMBER_PREFIX" default:"CL"`
	TTL          time.Duration `envconfig:"COINLEDGER_ORDER_TTL" default:"24h"`
}

type PaymentConfig struct {
	SignSecret string `envconfig:"COINLEDGER_PAYMENT_SIGN_SECRET" required:"true"`
}

type SweepConfig struct {
	OrderExpiryInterval time.Duration `envconfig:"COINLEDGER_SWEEP_ORDER_EXPIRY_INTERVAL" default:"1h"`
	VIPExpiryCooldown   time.Duration `envconfig:"COINLEDGER_SWEEP_VIP_EXPIRY_COOLDOWN" default:"5m"`
	LockTTL             time.Duration `envconfig:"COINLEDGER_SWEEP_LOCK_TTL" default:"30m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COINLEDGER_FEATURE_AUTO_MIGRATE" default:"false"`
}
