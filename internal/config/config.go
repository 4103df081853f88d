package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port        int      `mapstructure:"port"`
	Environment string   `mapstructure:"environment"`
	JWTSecret   string   `mapstructure:"jwt_secret"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	Database DatabaseConfig `mapstructure:"database"`
	Sweep    SweepConfig    `mapstructure:"sweep"`

	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	DSN            string `mapstructure:"dsn"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// SweepConfig controls the missed-ping sweep job.
type SweepConfig struct {
	// Schedule is a cron expression with a seconds field.
	Schedule       string        `mapstructure:"schedule"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	SMTPTimeout    time.Duration `mapstructure:"smtp_timeout"`
}

// Load loads configuration from environment variables with defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("environment", "production")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors_origins", []string{"http://localhost:3000", "http://localhost:8080"})

	v.SetDefault("database.dsn", defaultPostgresDSN())
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.migrations_path", "file://./migrations")

	v.SetDefault("sweep.schedule", "*/30 * * * * *")
	v.SetDefault("sweep.webhook_timeout", "5s")
	v.SetDefault("sweep.smtp_timeout", "10s")

	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultPostgresDSN() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword("cronpulse", "secret"),
		Host:   "localhost:5432",
		Path:   "cronpulse",
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if c.Environment == "production" {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}

		insecureSecrets := []string{
			"change-this-secret-in-production",
			"change-me-in-production",
			"secret",
			"password",
			"changeme",
		}
		for _, insecure := range insecureSecrets {
			if c.JWTSecret == insecure {
				return fmt.Errorf("JWT_SECRET is set to an insecure default value")
			}
		}
	}

	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be configured")
	}

	if c.Sweep.Schedule == "" {
		return fmt.Errorf("sweep schedule must not be empty")
	}
	if c.Sweep.WebhookTimeout <= 0 {
		return fmt.Errorf("sweep webhook timeout must be positive")
	}

	return nil
}
