// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/roach88/quorum/internal/ledger"
)

// Config is the runtime configuration shared by the CLI and the HTTP server.
// Command-line flags override these values.
type Config struct {
	DBPath          string        `env:"QUORUM_DB_PATH"          envDefault:"quorum.db"`
	LogLevel        string        `env:"QUORUM_LOG_LEVEL"        envDefault:"info"`
	HTTPAddr        string        `env:"QUORUM_HTTP_ADDR"        envDefault:"127.0.0.1:8080"`
	ApprovalPolicy  string        `env:"QUORUM_APPROVAL_POLICY"  envDefault:"guarded"`
	ShutdownTimeout time.Duration `env:"QUORUM_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file from the working directory and then
// parses the environment. Variables already set in the environment win
// over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that env tags cannot express.
func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := ledger.ParseApprovalPolicy(c.ApprovalPolicy); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

// Policy returns the parsed approval policy. Call Validate first.
func (c Config) Policy() ledger.ApprovalPolicy {
	p, _ := ledger.ParseApprovalPolicy(c.ApprovalPolicy)
	return p
}

// ParseLogLevel maps debug, info, warn, and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
