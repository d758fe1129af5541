package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

type Config struct {
	Port          string `env:"PORT,           default=8080"`
	Env           string `env:"ENV,            default=development"`
	LogLevel      string `env:"LOG_LEVEL,      default=info"`
	SessionSecret string `env:"SESSION_SECRET"`

	Backend BackendConfig
	Session SessionConfig
	Audit   AuditConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type BackendConfig struct {
	URL     string        `env:"BACKEND_URL,     default=http://localhost:5000/api"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT, default=15s"`
}

type SessionConfig struct {
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT,                  default=10s"`
	TrustCache     bool          `env:"TRUST_CACHE_WITHOUT_REVALIDATION, default=true"`
	CacheDriver    string        `env:"CACHE_DRIVER,                     default=memory"`
	// CredentialTTL of zero keeps cached credentials until logout.
	CredentialTTL time.Duration `env:"CREDENTIAL_TTL,  default=0s"`
	IdleTTL       time.Duration `env:"CLIENT_IDLE_TTL, default=30m"`
	SweepSchedule string        `env:"SWEEP_SCHEDULE,  default=@every 5m"`
}

type AuditConfig struct {
	Enabled bool `env:"AUDIT_ENABLED, default=false"`
	Workers int  `env:"AUDIT_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=clinic_web"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the combinations envconfig can't express.
func (c *Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" && c.IsProduction() {
		errs = append(errs, errors.New("SESSION_SECRET is required in production"))
	}
	switch c.Session.CacheDriver {
	case CacheDriverMemory, CacheDriverRedis:
	default:
		errs = append(errs, fmt.Errorf("CACHE_DRIVER must be %q or %q, got %q", CacheDriverMemory, CacheDriverRedis, c.Session.CacheDriver))
	}
	if c.Session.CredentialTTL < 0 {
		errs = append(errs, errors.New("CREDENTIAL_TTL must not be negative"))
	}
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	}
	return errors.Join(errs...)
}

// Load reads an optional .env file, then the environment, using go-envconfig.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith resolves the configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
