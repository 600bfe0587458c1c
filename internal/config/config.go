// Package config loads portal settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

const envPrefix = "PORTAL"

// minTimeout is the shortest request or restore timeout accepted.
const minTimeout = time.Millisecond

// Config holds application configuration.
type Config struct {
	APIBaseURL        string
	RequestTimeout    time.Duration
	RestoreTimeout    time.Duration
	RequestsPerSecond float64
	LogLevel          string

	Store           string
	CredentialsPath string
	Redis           RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Load reads .env (if present) and PORTAL_* environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("RESTORE_TIMEOUT", 10*time.Second)
	v.SetDefault("REQUESTS_PER_SECOND", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE", StoreFile)
	v.SetDefault("CREDENTIALS_PATH", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "portal:")

	cfg := &Config{
		APIBaseURL:        strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		RequestTimeout:    v.GetDuration("REQUEST_TIMEOUT"),
		RestoreTimeout:    v.GetDuration("RESTORE_TIMEOUT"),
		RequestsPerSecond: v.GetFloat64("REQUESTS_PER_SECOND"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		Store:             strings.ToLower(v.GetString("STORE")),
		CredentialsPath:   v.GetString("CREDENTIALS_PATH"),
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: %s_API_BASE_URL must be an http(s) URL, got %q", envPrefix, c.APIBaseURL)
	}
	// A bare number parses as nanoseconds.
	if c.RequestTimeout < minTimeout {
		return fmt.Errorf("config: %s_REQUEST_TIMEOUT must be at least %s, got %s (durations need a unit, e.g. 10s)", envPrefix, minTimeout, c.RequestTimeout)
	}
	if c.RestoreTimeout < minTimeout {
		return fmt.Errorf("config: %s_RESTORE_TIMEOUT must be at least %s, got %s (durations need a unit, e.g. 10s)", envPrefix, minTimeout, c.RestoreTimeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("config: %s_REQUESTS_PER_SECOND must not be negative", envPrefix)
	}
	switch c.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: %s_REDIS_ADDR is required for the redis store", envPrefix)
		}
	default:
		return fmt.Errorf("config: unknown %s_STORE %q (want file, redis or memory)", envPrefix, c.Store)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %s_LOG_LEVEL: %w", envPrefix, err)
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
