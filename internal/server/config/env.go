package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// parseEnv loads dotenvPath into the process environment (variables already
// set win), then overlays every GOPHMSG_* variable onto config. A missing
// dotenv file is not an error.
func parseEnv(config *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	if err := envconfig.Process(envPrefix, config); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	return nil
}
