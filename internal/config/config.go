package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root application configuration, read from the environment.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Dialog   DialogConfig
	Twilio   TwilioConfig
	Admin    AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             string `env:"PORT"               env-default:"8080"`
	Environment      string `env:"ENVIRONMENT"        env-default:"production"`
	PublicBaseURL    string `env:"PUBLIC_BASE_URL"`
	EnableTestRoutes bool   `env:"ENABLE_TEST_ROUTES" env-default:"false"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	DSN            string `env:"DATABASE_DSN"`
	UseMemoryStore bool   `env:"USE_MEMORY_STORE" env-default:"false"`
}

// RedisConfig configures the cross-instance sender lock. An empty Addr
// selects the in-process locker.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB"       env-default:"0"`
	LockTTL  time.Duration `env:"LOCK_TTL"       env-default:"30s"`
}

// DialogConfig tunes the conversational processor.
type DialogConfig struct {
	SessionTTL    time.Duration `env:"SESSION_TTL"            env-default:"20m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" env-default:"5m"`
	SearchLimit   int           `env:"SEARCH_LIMIT"           env-default:"8"`
}

// TwilioConfig holds WhatsApp channel credentials.
type TwilioConfig struct {
	AccountSID               string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken                string `env:"TWILIO_AUTH_TOKEN"`
	WhatsAppFrom             string `env:"TWILIO_WHATSAPP_FROM"`
	DisableWebhookValidation bool   `env:"DISABLE_WEBHOOK_VALIDATION" env-default:"false"`
}

// AdminConfig holds settings for the tenant admin API.
type AdminConfig struct {
	JWTSecret string `env:"ADMIN_JWT_SECRET"`
	JWTIssuer string `env:"ADMIN_JWT_ISSUER" env-default:"menubot"`
}

// Load reads .env files when present, then the environment, and validates
// the result.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that override fields first.
func Read(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "environments/.env.development"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if !c.Database.UseMemoryStore && c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required unless USE_MEMORY_STORE=true"))
	}
	if c.Dialog.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Dialog.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.Dialog.SearchLimit <= 0 {
		errs = append(errs, errors.New("SEARCH_LIMIT must be positive"))
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// TwilioConfigured reports whether outbound WhatsApp replies can be sent.
func (c *Config) TwilioConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.WhatsAppFrom != ""
}
