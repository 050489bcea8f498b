package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-D string   database driver, "sqlite" or "pgx"
//	-d string   database DSN
//	-k string   private key directory
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-n int      login attempts allowed before throttling
//	-a string   audit log path ("" disables)
//	-m string   prometheus textfile path ("" disables)
//	-l string   log level
//	-f string   log file
//
// Only the flags above are parsed; -c/-config and anything else is left to
// other readers.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-D", "-d", "-k", "-s", "-t", "-n", "-a", "-m", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver (sqlite|pgx)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.KeysDir, "k", config.KeysDir, "private key directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTokenValidity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session token validity (in minutes)")

	fs.IntVar(&config.LoginAttempts, "n", config.LoginAttempts, "login attempts before throttling")
	fs.StringVar(&config.AuditLogPath, "a", config.AuditLogPath, "audit log path")
	fs.StringVar(&config.MetricsTextfile, "m", config.MetricsTextfile, "prometheus textfile path")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidity) * time.Minute
		}
	})

	return nil
}
