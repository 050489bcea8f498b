package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophmsg/internal/flagx"
	"github.com/dmitrijs2005/gophmsg/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations use
// timex.Duration so they can be written as "15m" or as nanoseconds.
// Zero values leave the current setting untouched.
type FileConfig struct {
	DatabaseDriver               string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	KeysDir                      string         `json:"keys_dir" yaml:"keys_dir"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration" yaml:"session_token_validity_duration"`
	LoginAttempts                int            `json:"login_attempts" yaml:"login_attempts"`
	LoginAttemptInterval         timex.Duration `json:"login_attempt_interval" yaml:"login_attempt_interval"`
	AuditLogPath                 string         `json:"audit_log_path" yaml:"audit_log_path"`
	MetricsTextfile              string         `json:"metrics_textfile" yaml:"metrics_textfile"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	LogFile                      string         `json:"log_file" yaml:"log_file"`
}

// parseFile overlays values from the file named by -c/-config. Files ending
// in .yaml or .yml are decoded as YAML, everything else as JSON. Without the
// flag nothing is loaded.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.KeysDir, c.KeysDir)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.AuditLogPath, c.AuditLogPath)
	setString(&config.MetricsTextfile, c.MetricsTextfile)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)

	if c.SessionTokenValidityDuration.Duration != 0 {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	if c.LoginAttempts != 0 {
		config.LoginAttempts = c.LoginAttempts
	}
	if c.LoginAttemptInterval.Duration != 0 {
		config.LoginAttemptInterval = c.LoginAttemptInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
