// Package config provides configuration management for Skillgate.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server configuration loaded from environment variables.
type ServerConfig struct {
	Environment   Environment
	ListenAddr    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// SigningSecret is the shared HMAC key for license credentials.
	SigningSecret string
	// GlobalRateLimitRequests caps requests per IP per period, ahead of
	// tier-aware quotas.
	GlobalRateLimitRequests int64
	GlobalRateLimitPeriod   string
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() (ServerConfig, error) {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	cfg := ServerConfig{
		Environment:             env,
		ListenAddr:              getEnvString("LISTEN_ADDR", ":8080"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisAddr:               getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		SigningSecret:           os.Getenv("LICENSE_SIGNING_SECRET"),
		GlobalRateLimitRequests: int64(getEnvInt("GLOBAL_RATE_LIMIT_REQUESTS", 300)),
		GlobalRateLimitPeriod:   getEnvString("GLOBAL_RATE_LIMIT_PERIOD", "1m"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.SigningSecret == "" {
		return cfg, errors.New("LICENSE_SIGNING_SECRET is required")
	}

	return cfg, nil
}

// getEnvString reads a string from an environment variable, returning the
// default if unset.
func getEnvString(key, defaultVal string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt reads an integer from an environment variable, returning the
// default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
