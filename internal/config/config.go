// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
// An empty DatabaseURL is allowed; storage calls then fail as unconfigured.
type Config struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
	// TrustedProxies are CIDRs whose X-Forwarded-For hops are believed.
	// Empty means the peer address is always the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	DatabaseURL    string        `env:"DATABASE_URL"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RabbitURL      string `env:"RABBITMQ_URL"`
	RabbitExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"enrollment.events"`
	WorkerCount    int    `env:"WORKER_COUNT" envDefault:"1"`

	AdminJWTSecret  string `env:"ADMIN_JWT_SECRET"`
	StrictUserEmail bool   `env:"USERS_STRICT_EMAIL" envDefault:"false"`

	SignupRateLimit     int           `env:"SIGNUP_RATE_LIMIT" envDefault:"5"`
	SignupRateWindow    time.Duration `env:"SIGNUP_RATE_WINDOW" envDefault:"1m"`
	EnrollmentsCacheTTL time.Duration `env:"ENROLLMENTS_CACHE_TTL" envDefault:"30s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Debug     bool   `env:"DEBUG"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.WorkerCount <= 0 {
		errs = append(errs, fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount))
	}
	if c.SignupRateLimit < 0 {
		errs = append(errs, fmt.Errorf("SIGNUP_RATE_LIMIT must not be negative, got %d", c.SignupRateLimit))
	}
	if c.SignupRateWindow <= 0 {
		errs = append(errs, errors.New("SIGNUP_RATE_WINDOW must be positive"))
	}
	if c.StorageTimeout <= 0 {
		errs = append(errs, errors.New("STORAGE_TIMEOUT must be positive"))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: invalid CIDR %q", cidr))
		}
	}
	return errors.Join(errs...)
}
