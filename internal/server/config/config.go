// Package config loads gophmsg settings. Sources are applied in order, each
// overriding the previous one: built-in defaults, an optional JSON or YAML
// file (-c/-config), a .env file and GOPHMSG_* environment variables, and
// finally command-line flags. The result is validated before use.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const envPrefix = "GOPHMSG"

// Config holds runtime settings.
//
// Fields:
//   - DatabaseDriver: "sqlite" (modernc, default) or "pgx" (PostgreSQL).
//   - DatabaseDSN: data source name for the chosen driver.
//   - KeysDir: directory holding sealed private key files.
//   - SecretKey: HMAC secret for signing session JWTs (HS256).
//   - SessionTokenValidityDuration: session token lifetime.
//   - LoginAttempts / LoginAttemptInterval: per-identifier login throttle,
//     a burst of attempts refilled at one per interval.
//   - AuditLogPath: JSON Lines audit trail, disabled when empty.
//   - MetricsTextfile: Prometheus textfile written on shutdown, disabled when empty.
//   - LogLevel / LogFile: structured log settings.
type Config struct {
	DatabaseDriver               string        `envconfig:"DATABASE_DRIVER" validate:"required,oneof=sqlite pgx"`
	DatabaseDSN                  string        `envconfig:"DATABASE_DSN" validate:"required"`
	KeysDir                      string        `envconfig:"KEYS_DIR" validate:"required"`
	SecretKey                    string        `envconfig:"SECRET_KEY" validate:"required,min=8"`
	SessionTokenValidityDuration time.Duration `envconfig:"SESSION_TOKEN_VALIDITY" validate:"gt=0"`
	LoginAttempts                int           `envconfig:"LOGIN_ATTEMPTS" validate:"gte=1"`
	LoginAttemptInterval         time.Duration `envconfig:"LOGIN_ATTEMPT_INTERVAL" validate:"gt=0"`
	AuditLogPath                 string        `envconfig:"AUDIT_LOG"`
	MetricsTextfile              string        `envconfig:"METRICS_TEXTFILE"`
	LogLevel                     string        `envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile                      string        `envconfig:"LOG_FILE"`
}

// LoadDefaults populates Config with local development defaults.
// NOTE: the secret key must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:gophmsg.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	c.KeysDir = "private_keys"
	c.SecretKey = "secretKey"
	c.SessionTokenValidityDuration = 30 * time.Minute
	c.LoginAttempts = 3
	c.LoginAttemptInterval = 30 * time.Second
	c.AuditLogPath = "audit.jsonl"
	c.MetricsTextfile = ""
	c.LogLevel = "info"
	c.LogFile = "gophmsg.log"
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from defaults, the config file, the environment
// and command-line flags, in that order, and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
