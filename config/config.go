// Package config loads server settings from a YAML file and OVERTIME_*
// environment variables.
//
// Precedence: environment > config file > defaults. A missing config file
// is not an error.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig points at the SQLite file. ":memory:" is accepted for demos.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig configures the staging store. Empty Addr keeps staging in memory.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	StagingTTL time.Duration `mapstructure:"staging_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// AuthConfig configures bearer-token verification. Tokens are HS256 signed
// with JWTSecret; OwnerClaim names the claim carrying the owner id.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	OwnerClaim string `mapstructure:"owner_claim"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SchedulerConfig drives the periodic accrual reconciliation.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from path (or ./config/config.yaml, ./config.yaml
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"*"})

	v.SetDefault("db.path", "./data/overtime.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.staging_ttl", "24h")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.owner_claim", "uid")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "1h")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("OVERTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.OwnerClaim == "" {
		return errors.New("config: auth.owner_claim must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("config: server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return errors.New("config: db.path is required")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return errors.New("config: scheduler.interval must be positive")
	}
	return nil
}
