// Package config содержит логику чтения конфигурации сервиса управления тендерами.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress  = "localhost:8080"
	defaultCacheTTL    = 5 * time.Minute
	defaultEnvironment = "development"
)

// Config содержит параметры конфигурации сервиса управления тендерами.
type Config struct {
	RunAddress   string        `env:"RUN_ADDRESS"`
	DatabaseURI  string        `env:"DATABASE_URI"`
	RedisURL     string        `env:"REDIS_URL"`
	CacheTTL     time.Duration `env:"CACHE_TTL"`
	OTLPEndpoint string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment  string        `env:"ENVIRONMENT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisURL, "r", "", "redis URL for read cache, in-memory cache if empty")
	flag.DurationVar(&cfg.CacheTTL, "t", defaultCacheTTL, "read cache TTL")
	flag.StringVar(&cfg.OTLPEndpoint, "o", "", "OTLP HTTP endpoint for traces")
	flag.StringVar(&cfg.Environment, "e", defaultEnvironment, "deployment environment")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.RedisURL != "" {
		cfg.RedisURL = envCfg.RedisURL
	}
	if envCfg.CacheTTL != 0 {
		cfg.CacheTTL = envCfg.CacheTTL
	}
	if envCfg.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = envCfg.OTLPEndpoint
	}
	if envCfg.Environment != "" {
		cfg.Environment = envCfg.Environment
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", cfg.CacheTTL)
	}

	return cfg, nil
}
