// Package config loads settings from flags, EXAMTAKER_* environment
// variables and an optional examtaker.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abhisek/examtaker/internal/auth"
	"github.com/abhisek/examtaker/internal/logging"
)

// Order store backends.
const (
	OrderStoreNone   = "none"
	OrderStoreMemory = "memory"
	OrderStoreRedis  = "redis"
)

// Config holds all client configuration.
type Config struct {
	APIURL        string
	Token         string
	TokenFile     string
	Timeout       time.Duration // per call, retries included
	RetryAttempts int           // GET requests only
	DB            string        // SQLite audit log; "" uses the XDG default
	OrderStore    string
	Redis         RedisConfig
	Log           logging.Config
	Tick          time.Duration // countdown cadence
}

// RedisConfig addresses the Redis order store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Default returns a Config with defaults.
func Default() Config {
	return Config{
		APIURL:        "http://localhost:8000/api/v1",
		Timeout:       15 * time.Second,
		RetryAttempts: 3,
		OrderStore:    OrderStoreNone,
		Redis:         RedisConfig{Addr: "localhost:6379"},
		Log:           logging.Config{Level: "info", Format: "text"},
		Tick:          time.Second,
	}
}

// RegisterFlags adds the configuration flags to cmd as persistent flags.
func RegisterFlags(cmd *cobra.Command) {
	d := Default()
	f := cmd.PersistentFlags()
	f.String("api-url", d.APIURL, "Exam API base URL")
	f.String("token", "", "Bearer token (or set EXAMTAKER_TOKEN)")
	f.String("token-file", "", "File holding the bearer token")
	f.Duration("timeout", d.Timeout, "Timeout per API call")
	f.Int("retry-attempts", d.RetryAttempts, "Attempts for idempotent API reads")
	f.String("db", "", "Path to SQLite audit database (overrides EXAMTAKER_DB)")
	f.String("order-store", d.OrderStore, "Pin presented question order: none, memory, redis")
	f.String("redis-addr", d.Redis.Addr, "Redis address for --order-store=redis")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
	f.String("log-level", d.Log.Level, "Log level (debug, info, warn, error)")
	f.String("log-format", d.Log.Format, "Log format (text, json)")
	f.String("log-file", "", "Log file while the terminal UI runs")
	f.Duration("tick", d.Tick, "Countdown refresh interval")
}

// Load reads the configuration for cmd and validates it.
func Load(cmd *cobra.Command) (Config, error) {
	v := viperForCmd(cmd)
	cfg := Config{
		APIURL:        strings.TrimSpace(v.GetString("api-url")),
		Token:         strings.TrimSpace(v.GetString("token")),
		TokenFile:     v.GetString("token-file"),
		Timeout:       v.GetDuration("timeout"),
		RetryAttempts: v.GetInt("retry-attempts"),
		DB:            v.GetString("db"),
		OrderStore:    strings.ToLower(v.GetString("order-store")),
		Redis: RedisConfig{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
		},
		Log: logging.Config{
			Level:  v.GetString("log-level"),
			Format: v.GetString("log-format"),
			File:   v.GetString("log-file"),
		},
		Tick: v.GetDuration("tick"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMTAKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examtaker")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examtaker")
	v.AddConfigPath("/etc/examtaker")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api-url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry-attempts must be at least 1, got %d", c.RetryAttempts)
	}
	switch c.OrderStore {
	case OrderStoreNone, OrderStoreMemory:
	case OrderStoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis-addr is required for --order-store=redis")
		}
	default:
		return fmt.Errorf("unknown order store: %q", c.OrderStore)
	}
	return nil
}

// Credential returns the bearer token from --token, or the contents of
// --token-file.
func (c Config) Credential() (auth.Credential, error) {
	if c.Token != "" {
		return auth.Credential(c.Token), nil
	}
	if c.TokenFile == "" {
		return "", fmt.Errorf("%w: set --token, --token-file or EXAMTAKER_TOKEN", auth.ErrCredentialInvalid)
	}
	b, err := os.ReadFile(c.TokenFile)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("%w: token file %s is empty", auth.ErrCredentialInvalid, c.TokenFile)
	}
	return auth.Credential(tok), nil
}
