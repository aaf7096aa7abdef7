package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	Marketplace MarketplaceConfig
	Poller      PollerConfig
	Flags       FlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Marketplace.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"BRIDGE_APP_PORT" default:"8080"`
	APIKey       string `envconfig:"BRIDGE_API_KEY" required:"true"`
	LogLevel     string `envconfig:"BRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BRIDGE_DB_DSN"`
	Driver string `envconfig:"BRIDGE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BRIDGE_DB_HOST"`
	Port     int    `envconfig:"BRIDGE_DB_PORT" default:"5432"`
	User     string `envconfig:"BRIDGE_DB_USER"`
	Password string `envconfig:"BRIDGE_DB_PASSWORD"`
	Name     string `envconfig:"BRIDGE_DB_NAME"`
	SSLMode  string `envconfig:"BRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"BRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// MarketplaceConfig holds the fixed headers and endpoints for the
// marketplace Merchant API. The per-tenant OAuth credentials live in the
// companies table, not here.
type MarketplaceConfig struct {
	BaseURL     string        `envconfig:"BRIDGE_MARKETPLACE_BASE_URL" required:"true"`
	APIKey      string        `envconfig:"BRIDGE_MARKETPLACE_API_KEY" required:"true"`
	Env         string        `envconfig:"BRIDGE_MARKETPLACE_ENV" default:"development"`
	HTTPTimeout time.Duration `envconfig:"BRIDGE_MARKETPLACE_HTTP_TIMEOUT" default:"15s"`
}

// Environment returns the normalized marketplace env marker.
func (m MarketplaceConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(m.Env))
	if env == "" {
		return MarketplaceEnvDevelopment
	}
	return env
}

func (m MarketplaceConfig) validate() error {
	switch m.Environment() {
	case MarketplaceEnvDevelopment, MarketplaceEnvProduction:
		return nil
	default:
		return fmt.Errorf("marketplace env must be %q or %q", MarketplaceEnvDevelopment, MarketplaceEnvProduction)
	}
}

type PollerConfig struct {
	Interval      time.Duration `envconfig:"BRIDGE_POLLER_INTERVAL" default:"1m"`
	LockTTL       time.Duration `envconfig:"BRIDGE_POLLER_LOCK_TTL" default:"5m"`
	MaxAttempts   int           `envconfig:"BRIDGE_POLLER_MAX_ATTEMPTS" default:"3"`
	RetryBackoff  time.Duration `envconfig:"BRIDGE_POLLER_RETRY_BACKOFF" default:"2s"`
	EnrichDetails bool          `envconfig:"BRIDGE_POLLER_ENRICH_DETAILS" default:"false"`
}

type FlagsConfig struct {
	AutoMigrate bool `envconfig:"BRIDGE_AUTO_MIGRATE" default:"false"`
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
	for _, env := range requiredDBEnvVars {
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
