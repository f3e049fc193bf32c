// Package config loads supplyq settings from a YAML file, .env and the
// environment (prefix SUPPLYQ, dots become underscores).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SUPPLYQ"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ErrMissingCredential is returned by RequireAPIKey when no LLM key is set.
var ErrMissingCredential = errors.New("config: missing LLM api key (set --api-key, llm.api_key, SUPPLYQ_LLM_API_KEY or ANTHROPIC_API_KEY)")

// Config is the full runtime configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Log      LogConfig      `mapstructure:"log"`
	Review   ReviewConfig   `mapstructure:"review"`
	Events   EventsConfig   `mapstructure:"events"`
	Server   ServerConfig   `mapstructure:"server"`
}

// DatabaseConfig selects the task store. Asset tables always use Path.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

type LLMConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LogConfig mirrors the options of internal/logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type ReviewConfig struct {
	TariffRateThreshold float64 `mapstructure:"tariff_rate_threshold"`
}

// EventsConfig enables NATS publishing when NatsURL is set.
type EventsConfig struct {
	NatsURL string `mapstructure:"nats_url"`
}

type ServerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	MaxTasks  int           `mapstructure:"max_tasks"`
	AgentType string        `mapstructure:"agent_type"`
	// Schedules maps a schedule name (daily, weekly, monthly) to how often
	// the server enqueues it. Empty leaves scheduling to an external cron.
	Schedules map[string]time.Duration `mapstructure:"schedules"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "supply_chain.db")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.namespace", "tasks")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.anthropic.com")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.max_tokens", 8000)
	v.SetDefault("llm.timeout", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "logs/supplyq.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("review.tariff_rate_threshold", 0.5)

	v.SetDefault("events.nats_url", "")

	v.SetDefault("server.interval", "1m")
	v.SetDefault("server.max_tasks", 10)
	v.SetDefault("server.agent_type", "")
	v.SetDefault("server.schedules", map[string]string{})
}

// Load reads .env (if present), then path, or ./supplyq.yaml when path is
// empty and the file exists, and applies SUPPLYQ_* overrides.
// ANTHROPIC_API_KEY is used when no other key is configured.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("supplyq")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("config: read supplyq.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
// The LLM key is not required here; see RequireAPIKey.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported %q", c.Database.Driver))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path: required"))
	}
	if c.Database.Driver == DriverRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr: required for the redis driver"))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout: must not be negative"))
	}
	if c.Review.TariffRateThreshold < 0 {
		errs = append(errs, errors.New("review.tariff_rate_threshold: must not be negative"))
	}
	if c.Server.Interval <= 0 {
		errs = append(errs, errors.New("server.interval: must be positive"))
	}
	if c.Server.MaxTasks <= 0 {
		errs = append(errs, errors.New("server.max_tasks: must be positive"))
	}
	for name, every := range c.Server.Schedules {
		if every <= 0 {
			errs = append(errs, fmt.Errorf("server.schedules.%s: must be positive", name))
		}
	}
	switch strings.ToLower(c.Log.Output) {
	case "stdout", "stderr":
	case "file":
		if c.Log.FilePath == "" {
			errs = append(errs, errors.New("log.file_path: required when log.output is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("log.output: unsupported %q", c.Log.Output))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// RequireAPIKey returns ErrMissingCredential when no LLM key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingCredential
	}
	return nil
}
