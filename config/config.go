/*
config.go - Runtime configuration

PURPOSE:
  Reads process configuration from environment variables (optionally from a
  .env file) into one struct shared by cmd/server and cmd/freightctl.

ENVIRONMENT:
  PORT                     HTTP port (default 8080)
  DB_DRIVER                sqlite | mysql (default sqlite)
  DB_DSN                   file path, ":memory:" or MySQL DSN/URL
  REDIS_ADDR               enables the Redis sweep lock when set
  LATE_FEE_DAILY_RATE      seeds the "invoices" rate when the store has none
  CURRENCY                 default currency (USD)
  SWEEP_SCHEDULE           cron spec for late-fee sweeps ("@every 1h")
  SWEEP_ENABLED            run the scheduler (true)
  RECURRENCE_HORIZON_DAYS  cap for open-ended lanes (365)
  RATE_TABLE_FILE          JSON rate table; built-in preset when empty
  ROUTES_FILE              JSON routes; built-in lanes when empty
  CORS_ORIGINS             comma-separated allowed origins
  RATE_LIMIT_PER_MINUTE    per-IP API budget (120, 0 disables)
  LOG_LEVEL / LOG_FORMAT   zerolog level and json|console

SEE ALSO:
  - cmd/server/main.go: flags override Port and DB settings
  - logging/logging.go: Setup
*/

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
	"github.com/warp/freight-engine/recurrence"
)

// Config holds runtime configuration for the freight engine.
type Config struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"freight.db"`

	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	RedisLockKey string        `envconfig:"REDIS_LOCK_KEY" default:"freight:late-fee-sweep"`
	RedisLockTTL time.Duration `envconfig:"REDIS_LOCK_TTL" default:"5m"`

	// LateFeeDailyRate is a decimal string; empty means "use what the store has".
	LateFeeDailyRate string `envconfig:"LATE_FEE_DAILY_RATE"`
	Currency         string `envconfig:"CURRENCY" default:"USD"`

	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"@every 1h"`
	SweepEnabled  bool   `envconfig:"SWEEP_ENABLED" default:"true"`

	RecurrenceHorizonDays int `envconfig:"RECURRENCE_HORIZON_DAYS" default:"365"`

	RateTableFile string `envconfig:"RATE_TABLE_FILE"`
	RoutesFile    string `envconfig:"ROUTES_FILE"`

	CORSOrigins        []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// Load reads a .env file if present, then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig can't.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RecurrenceHorizonDays <= 0 {
		return fmt.Errorf("RECURRENCE_HORIZON_DAYS must be positive, got %d", c.RecurrenceHorizonDays)
	}
	if c.RecurrenceHorizonDays > recurrence.DefaultMaxWindowDays {
		return fmt.Errorf("RECURRENCE_HORIZON_DAYS must be at most %d, got %d", recurrence.DefaultMaxWindowDays, c.RecurrenceHorizonDays)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	switch generic.Currency(strings.ToUpper(c.Currency)) {
	case generic.USD, generic.EUR, generic.CAD:
	default:
		return fmt.Errorf("unsupported CURRENCY %q", c.Currency)
	}
	if _, _, err := c.DailyRate(); err != nil {
		return err
	}
	return nil
}

// DailyRate parses LATE_FEE_DAILY_RATE. ok is false when it is unset.
func (c *Config) DailyRate() (rate generic.Amount, ok bool, err error) {
	if strings.TrimSpace(c.LateFeeDailyRate) == "" {
		return generic.Amount{}, false, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(c.LateFeeDailyRate))
	if err != nil {
		return generic.Amount{}, false, fmt.Errorf("LATE_FEE_DAILY_RATE: %w", err)
	}
	if v.IsNegative() {
		return generic.Amount{}, false, fmt.Errorf("LATE_FEE_DAILY_RATE must not be negative")
	}
	return generic.Amount{Value: v, Currency: c.DefaultCurrency()}, true, nil
}

func (c *Config) DefaultCurrency() generic.Currency {
	return generic.Currency(strings.ToUpper(c.Currency))
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// LoggingConfig maps the log settings onto logging.Config.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	return lc
}
