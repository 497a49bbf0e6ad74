// Package config reads sunshine's runtime configuration from the environment.
//
// An optional env file is loaded first with godotenv; variables already set
// in the process environment win over the file. CLI flags are applied on top
// by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvFormat      = "SUNSHINE_FORMAT"
	EnvVerbose     = "SUNSHINE_VERBOSE"
	EnvJournalMode = "SUNSHINE_JOURNAL_MODE"
	EnvBusyTimeout = "SUNSHINE_BUSY_TIMEOUT"
)

// Defaults.
const (
	DefaultFormat      = "text"
	DefaultJournalMode = "WAL"
	DefaultBusyTimeout = 5 * time.Second
)

var validJournalModes = []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}

// Config holds the settings shared by all commands.
type Config struct {
	// Format is the output format: "text" or "json".
	Format string

	// Verbose enables debug logging.
	Verbose bool

	// JournalMode is the SQLite journal_mode pragma applied on open.
	JournalMode string

	// BusyTimeout is the SQLite busy_timeout applied on open.
	BusyTimeout time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Format:      DefaultFormat,
		JournalMode: DefaultJournalMode,
		BusyTimeout: DefaultBusyTimeout,
	}
}

// Load reads configuration from the environment after loading envFile.
// An empty envFile skips file loading; a named file that does not exist is
// an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function, starting from Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvFormat); ok && v != "" {
		cfg.Format = v
	}
	if v, ok := lookup(EnvVerbose); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvVerbose, err)
		}
		cfg.Verbose = b
	}
	if v, ok := lookup(EnvJournalMode); ok && v != "" {
		cfg.JournalMode = strings.ToUpper(v)
	}
	if v, ok := lookup(EnvBusyTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvBusyTimeout, err)
		}
		cfg.BusyTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("invalid format %q: must be one of [text json]", c.Format)
	}
	if !isValidJournalMode(c.JournalMode) {
		return fmt.Errorf("invalid journal mode %q: must be one of %v", c.JournalMode, validJournalModes)
	}
	if c.BusyTimeout < 0 {
		return errors.New("busy timeout must not be negative")
	}
	return nil
}

func isValidJournalMode(mode string) bool {
	for _, m := range validJournalModes {
		if m == mode {
			return true
		}
	}
	return false
}
