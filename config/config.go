// Package config provides YAML configuration parsing for HaloLight.
//
// This package enables running HaloLight as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
// Every setting can also be overridden with a HALOLIGHT_* environment
// variable.
//
// Example configuration:
//
//	title: Ops Console
//	port: 8080
//
//	demo:
//	  email: ops@example.com
//	  password: ${DEMO_PASSWORD:-123456}
//
//	auth:
//	  token_secret: ${HALOLIGHT_SECRET}
//	  token_ttl: 12h
//
//	notify:
//	  interval: 5s
//	  probability: 0.5
//
//	storage:
//	  backend: redis
//	  redis:
//	    addr: localhost:6379
package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HALOLIGHT_"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

const (
	defaultPort        = 8080
	defaultTitle       = "HaloLight"
	defaultLogLevel    = "info"
	defaultTokenTTL    = 24 * time.Hour
	defaultInterval    = 10 * time.Second
	defaultProbability = 0.2
	defaultRedisPrefix = "halolight:"
	minTokenSecret     = 16

	// minNotifyInterval keeps a misconfigured push channel from flooding
	// the inbox and every connected stream.
	minNotifyInterval = 100 * time.Millisecond
)

// Config is the root configuration structure for HaloLight.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config.
type Config struct {
	// Title is the console title. Defaults to "HaloLight".
	Title string `yaml:"title" env:"TITLE, overwrite"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port" env:"PORT, overwrite"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL, overwrite"`

	// InstantResponses removes the simulated latency of sign-in and the
	// mock API.
	InstantResponses bool `yaml:"instant_responses" env:"INSTANT_RESPONSES, overwrite"`

	Demo    DemoConfig    `yaml:"demo" env:", prefix=DEMO_"`
	Auth    AuthConfig    `yaml:"auth" env:", prefix=AUTH_"`
	Notify  NotifyConfig  `yaml:"notify" env:", prefix=NOTIFY_"`
	HTTP    HTTPConfig    `yaml:"http" env:", prefix=HTTP_"`
	Storage StorageConfig `yaml:"storage" env:", prefix=STORAGE_"`
}

// DemoConfig holds the credentials the login accepts. Both or neither must
// be set; the built-in demo account is used when neither is.
type DemoConfig struct {
	Email    string `yaml:"email" env:"EMAIL, overwrite"`
	Password string `yaml:"password" env:"PASSWORD, overwrite"`
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	// TokenSecret signs session tokens. At least 16 bytes. When empty a
	// random secret is used and sessions do not survive a restart.
	TokenSecret string `yaml:"token_secret" env:"TOKEN_SECRET, overwrite"`

	// TokenTTL is how long a token stays valid. Defaults to 24h.
	TokenTTL Duration `yaml:"token_ttl" env:"TOKEN_TTL, overwrite"`
}

// NotifyConfig configures the simulated push channel.
type NotifyConfig struct {
	// Interval is the tick period. Defaults to 10s.
	Interval Duration `yaml:"interval" env:"INTERVAL, overwrite"`

	// Probability is the chance a tick emits, in [0, 1]. Defaults to 0.2.
	Probability *float64 `yaml:"probability" env:"PROBABILITY, overwrite, noinit"`
}

// HTTPConfig configures the API surface.
type HTTPConfig struct {
	// AllowedOrigin is the CORS origin. Defaults to "*".
	AllowedOrigin string `yaml:"allowed_origin" env:"ALLOWED_ORIGIN, overwrite"`

	RateLimit RateLimitConfig `yaml:"rate_limit" env:", prefix=RATE_LIMIT_"`
}

// RateLimitConfig holds request budgets per minute. Zero keeps the default.
type RateLimitConfig struct {
	GeneralPerMinute int `yaml:"general_per_minute" env:"GENERAL_PER_MINUTE, overwrite"`
	AuthPerMinute    int `yaml:"auth_per_minute" env:"AUTH_PER_MINUTE, overwrite"`
}

// StorageConfig selects where console state is persisted.
type StorageConfig struct {
	// Backend is memory, file or redis. Defaults to memory.
	Backend string `yaml:"backend" env:"BACKEND, overwrite"`

	// Path is the JSON document used by the file backend.
	Path string `yaml:"path" env:"PATH, overwrite"`

	Redis RedisConfig `yaml:"redis" env:", prefix=REDIS_"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string   `yaml:"addr" env:"ADDR, overwrite"`
	Password string   `yaml:"password" env:"PASSWORD, overwrite"`
	DB       int      `yaml:"db" env:"DB, overwrite"`
	Prefix   string   `yaml:"prefix" env:"PREFIX, overwrite"`
	Timeout  Duration `yaml:"timeout" env:"TIMEOUT, overwrite"`
}

// Duration wraps time.Duration for YAML and environment decoding.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.EnvDecode(s)
}

// EnvDecode implements envconfig.Decoder for Duration.
func (d *Duration) EnvDecode(s string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns using lookup.
func expandEnvVars(s string, lookup envconfig.Lookuper) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := lookup.Lookup(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads a YAML configuration file, applies HALOLIGHT_* environment
// overrides and validates the result. An empty path loads from the
// environment alone.
func Load(ctx context.Context, path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return ParseWithEnv(ctx, data, envconfig.OsLookuper())
}

// Parse parses YAML configuration data against the process environment.
func Parse(data []byte) (*Config, error) {
	return ParseWithEnv(context.Background(), data, envconfig.OsLookuper())
}

// ParseWithEnv parses YAML configuration data, expanding ${VAR} references
// and applying HALOLIGHT_* overrides from lookup. Defaults are applied to
// unset fields before validation.
func ParseWithEnv(ctx context.Context, data []byte, lookup envconfig.Lookuper) (*Config, error) {
	expanded, err := expandEnvVars(string(data), lookup)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookup),
	}); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = Duration(defaultTokenTTL)
	}
	if c.Notify.Interval == 0 {
		c.Notify.Interval = Duration(defaultInterval)
	}
	if c.Notify.Probability == nil {
		p := defaultProbability
		c.Notify.Probability = &p
	}
	if c.HTTP.AllowedOrigin == "" {
		c.HTTP.AllowedOrigin = "*"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Storage.Backend == BackendRedis && c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = defaultRedisPrefix
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	if (c.Demo.Email == "") != (c.Demo.Password == "") {
		return fmt.Errorf("demo: email and password must be set together")
	}

	if s := c.Auth.TokenSecret; s != "" && len(s) < minTokenSecret {
		return fmt.Errorf("auth: token_secret must be at least %d bytes, got %d", minTokenSecret, len(s))
	}
	if c.Auth.TokenTTL.Duration() <= 0 {
		return fmt.Errorf("auth: token_ttl must be positive, got %s", c.Auth.TokenTTL.Duration())
	}

	if c.Notify.Interval.Duration() < minNotifyInterval {
		return fmt.Errorf("notify: interval must be at least %s, got %s", minNotifyInterval, c.Notify.Interval.Duration())
	}
	if p := *c.Notify.Probability; p < 0 || p > 1 {
		return fmt.Errorf("notify: probability must be within [0, 1], got %v", p)
	}

	if c.HTTP.RateLimit.GeneralPerMinute < 0 || c.HTTP.RateLimit.AuthPerMinute < 0 {
		return fmt.Errorf("http: rate limits cannot be negative")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: path is required for the file backend")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage: redis.addr is required for the redis backend")
		}
		if c.Storage.Redis.Timeout < 0 {
			return fmt.Errorf("storage: redis.timeout cannot be negative")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q (expected memory, file or redis)", c.Storage.Backend)
	}

	return nil
}
