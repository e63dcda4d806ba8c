package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Gate      GateConfig      `mapstructure:"gate"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	// Type selects the repository backend: "postgres" or "memory".
	Type string `mapstructure:"type"`
	// URL is a postgres connection string; required when type is postgres.
	URL string `mapstructure:"url"`
	// MigrationsPath is the golang-migrate source, e.g. "file://migrations".
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type GateConfig struct {
	// TokenTTL bounds how long an issued access token stays valid.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// HoneypotField is the reserved form field key; a submission that
	// fills it gets a silent empty success.
	HoneypotField string `mapstructure:"honeypot_field"`
}

type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type CORSConfig struct {
	// OwnHost is the gate's own host, always allowed.
	OwnHost string `mapstructure:"own_host"`
	// AllowedHosts are external hosts allowed cross-origin access,
	// matched exactly or as a suffix (subdomains).
	AllowedHosts []string `mapstructure:"allowed_hosts"`
}

type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Events  []string      `mapstructure:"events"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("database.type", "memory")
	v.SetDefault("database.migrations_path", "file://migrations")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("gate.token_ttl", "1h")
	v.SetDefault("gate.honeypot_field", "website")
	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cors.allowed_hosts", []string{"github.io"})
	v.SetDefault("webhook.timeout", "3s")
	v.SetDefault("webhook.events", []string{"form_submit", "asset_event"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rtgate")
	}

	// Environment variables override: RTG_SERVER_PORT, RTG_DATABASE_URL, ...
	v.SetEnvPrefix("RTG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Type == "postgres" && cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is required when database.type is postgres")
	}

	if cfg.Gate.TokenTTL <= 0 {
		return nil, fmt.Errorf("gate.token_ttl must be positive, got %v", cfg.Gate.TokenTTL)
	}

	return &cfg, nil
}
