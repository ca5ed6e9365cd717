// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

// Package config loads server configuration.
//
// Sources are applied in increasing precedence: built-in defaults, an
// optional YAML file, a .env file, process environment, then command-line
// flags the user explicitly set.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogauth/blogauth/internal/auth"
	"github.com/blogauth/blogauth/internal/logging"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// DefaultEnvFile is read when present. A missing default file is not an error.
const DefaultEnvFile = ".env"

// ThrottleConfig configures login lockout.
type ThrottleConfig struct {
	Enabled   bool          `koanf:"enabled" env:"ENABLED"`
	Threshold int           `koanf:"threshold" env:"THRESHOLD"`
	Lockout   time.Duration `koanf:"lockout" env:"LOCKOUT"`
	Window    time.Duration `koanf:"window" env:"WINDOW"`
}

// Config is the complete server configuration.
type Config struct {
	Port            int            `koanf:"port" env:"PORT"`
	DatabaseURL     string         `koanf:"database_url" env:"DATABASE_URL"`
	DBMaxConns      int32          `koanf:"db_max_conns" env:"DB_MAX_CONNS"`
	JWTSecret       string         `koanf:"jwt_secret" env:"JWT_SECRET"`
	Store           string         `koanf:"store" env:"STORE"`
	Hasher          string         `koanf:"hasher" env:"HASHER"`
	BcryptCost      int            `koanf:"bcrypt_cost" env:"BCRYPT_COST"`
	HashWorkers     int            `koanf:"hash_workers" env:"HASH_WORKERS"`
	TokenTTL        time.Duration  `koanf:"token_ttl" env:"TOKEN_TTL"`
	TokenLeeway     time.Duration  `koanf:"token_leeway" env:"TOKEN_LEEWAY"`
	CookieSecure    bool           `koanf:"cookie_secure" env:"COOKIE_SECURE"`
	CORSOrigins     []string       `koanf:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	LogFormat       string         `koanf:"log_format" env:"LOG_FORMAT"`
	LogLevel        string         `koanf:"log_level" env:"LOG_LEVEL"`
	MetricsAddr     string         `koanf:"metrics_addr" env:"METRICS_ADDR"`
	RedisURL        string         `koanf:"redis_url" env:"REDIS_URL"`
	ShutdownTimeout time.Duration  `koanf:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	Throttle        ThrottleConfig `koanf:"throttle" envPrefix:"THROTTLE_"`
}

// Default returns the built-in configuration.
func Default() Config {
	policy := auth.DefaultThrottlePolicy()
	return Config{
		Port:            8000,
		Store:           StorePostgres,
		Hasher:          auth.AlgorithmBcrypt,
		BcryptCost:      auth.DefaultBcryptCost,
		TokenTTL:        auth.DefaultTokenTTL,
		CookieSecure:    true,
		LogFormat:       LogFormatJSON,
		LogLevel:        "info",
		MetricsAddr:     "127.0.0.1:9100",
		ShutdownTimeout: 10 * time.Second,
		Throttle: ThrottleConfig{
			Enabled:   true,
			Threshold: policy.Threshold,
			Lockout:   policy.Lockout,
			Window:    policy.Window,
		},
	}
}

// Options selects the sources Load reads.
type Options struct {
	// ConfigFile is an optional YAML file. Empty skips it.
	ConfigFile string

	// EnvFile is a dotenv file. Empty means DefaultEnvFile, read only if present.
	EnvFile string

	// Flags holds parsed command-line flags. Only flags marked Changed apply.
	Flags *pflag.FlagSet

	// SkipValidation returns the merged config without calling Validate.
	// Tools that need only part of the config, such as migrate, use it.
	SkipValidation bool
}

// Load builds a Config from defaults and the sources in opts, then validates it.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(opts.ConfigFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.ConfigFile).Wrap(err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.ConfigFile).Wrap(err)
		}
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}

	if opts.Flags != nil {
		k := koanf.New(".")
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
		if err := k.Unmarshal("", &cfg); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	if opts.SkipValidation {
		return &cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile exports variables from a dotenv file without overriding ones
// already in the environment.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("file", path).Wrap(err)
	}
	return nil
}

// RegisterFlags defines the flags Load understands on fs.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.Int("port", d.Port, "HTTP listen port")
	flags.String("database-url", d.DatabaseURL, "PostgreSQL connection string")
	flags.Int32("db-max-conns", d.DBMaxConns, "PostgreSQL pool size (0 = pgx default)")
	flags.String("store", d.Store, "credential store (postgres, memory)")
	flags.String("hasher", d.Hasher, "password hash algorithm (bcrypt, argon2id)")
	flags.Int("hash-workers", d.HashWorkers, "concurrent hash operations (0 = GOMAXPROCS)")
	flags.String("log-format", d.LogFormat, "log format (json, text)")
	flags.String("log-level", d.LogLevel, "minimum log level (debug, info, warn, error)")
	flags.String("metrics-addr", d.MetricsAddr, "observability listen address (empty disables)")
	flags.String("redis-url", d.RedisURL, "Redis URL for the shared login throttle")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(key string, value any, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).With("value", value).Errorf(format, args...)
	}

	switch {
	case c.JWTSecret == "":
		return oops.Code("CONFIG_INVALID").With("key", "jwt_secret").Errorf("JWT_SECRET is required")
	case c.Port < 1 || c.Port > 65535:
		return invalid("port", c.Port, "port must be between 1 and 65535")
	case c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost:
		return invalid("bcrypt_cost", c.BcryptCost, "bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	case c.DBMaxConns < 0:
		return invalid("db_max_conns", c.DBMaxConns, "db max conns must not be negative")
	case c.HashWorkers < 0:
		return invalid("hash_workers", c.HashWorkers, "hash workers must not be negative")
	case c.TokenTTL <= 0:
		return invalid("token_ttl", c.TokenTTL, "token ttl must be positive")
	case c.TokenLeeway < 0:
		return invalid("token_leeway", c.TokenLeeway, "token leeway must not be negative")
	case c.ShutdownTimeout <= 0:
		return invalid("shutdown_timeout", c.ShutdownTimeout, "shutdown timeout must be positive")
	}

	switch c.LogFormat {
	case LogFormatJSON, LogFormatText:
	default:
		return invalid("log_format", c.LogFormat, "unknown log format %q", c.LogFormat)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", c.LogLevel, "unknown log level %q", c.LogLevel)
	}

	switch c.Hasher {
	case auth.AlgorithmBcrypt, auth.AlgorithmArgon2id:
	default:
		return invalid("hasher", c.Hasher, "unknown hasher %q", c.Hasher)
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").With("key", "database_url").Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return invalid("store", c.Store, "unknown store %q", c.Store)
	}

	if c.Throttle.Enabled && c.Throttle.Threshold <= 0 {
		return invalid("throttle.threshold", c.Throttle.Threshold, "throttle threshold must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// SlogLevel returns the parsed log level. Call after Validate.
func (c *Config) SlogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// ThrottlePolicy converts the throttle settings.
func (c *Config) ThrottlePolicy() auth.ThrottlePolicy {
	return auth.ThrottlePolicy{
		Threshold: c.Throttle.Threshold,
		Lockout:   c.Throttle.Lockout,
		Window:    c.Throttle.Window,
	}
}
