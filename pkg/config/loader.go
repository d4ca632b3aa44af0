// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads ./configs/<APP_ENV>.yaml plus environment overrides.
func Load() (*Config, error) {
	loadDotEnv(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	return load(fmt.Sprintf("./configs/%s.yaml", env), env)
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	loadDotEnv(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	return load(path, env)
}

func load(path, env string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads each file that exists. Variables already set win.
func loadDotEnv(files ...string) {
	for _, file := range files {
		_ = godotenv.Load(file)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 30)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "interview")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "interview.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("interview.state_backend", "memory")
	v.SetDefault("interview.session_ttl", 24*time.Hour)
	v.SetDefault("interview.lock_ttl", 2*time.Minute)
	v.SetDefault("interview.lock_wait", 30*time.Second)
	v.SetDefault("interview.language", "zh-tw")

	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("question_bank.path", "")
	v.SetDefault("question_bank.watch", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 30)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.whitelist", []string{})

	v.SetDefault("idempotency.ttl", 10*time.Minute)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 10*time.Second)

	v.SetDefault("jobs.enabled", false)
	v.SetDefault("jobs.cleanup_cron", "*/15 * * * *")
	v.SetDefault("jobs.retention_cron", "0 3 * * *")
	v.SetDefault("jobs.log_retention", 30*24*time.Hour)
	v.SetDefault("jobs.concurrency", 2)
}
