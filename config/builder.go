package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jpalmerr/halolight"
)

// BuildOptions converts parsed configuration into SDK options. The storage
// backend is opened separately with [OpenStorage] because it may hold a
// connection the caller must close.
func BuildOptions(cfg *Config) []halolight.Option {
	opts := []halolight.Option{
		halolight.WithTitle(cfg.Title),
		halolight.WithPort(cfg.Port),
		halolight.WithTokenTTL(cfg.Auth.TokenTTL.Duration()),
		halolight.WithNotifyInterval(cfg.Notify.Interval.Duration()),
		halolight.WithAllowedOrigin(cfg.HTTP.AllowedOrigin),
	}

	if cfg.Notify.Probability != nil {
		opts = append(opts, halolight.WithNotifyProbability(*cfg.Notify.Probability))
	}

	if cfg.Demo.Email != "" {
		opts = append(opts, halolight.WithDemoCredentials(cfg.Demo.Email, cfg.Demo.Password))
	}

	if cfg.Auth.TokenSecret != "" {
		opts = append(opts, halolight.WithTokenSecret([]byte(cfg.Auth.TokenSecret)))
	}

	// zero keeps the default for that tier
	limits := halolight.DefaultRateLimits()
	if n := cfg.HTTP.RateLimit.GeneralPerMinute; n > 0 {
		limits.GeneralPerMinute = n
	}
	if n := cfg.HTTP.RateLimit.AuthPerMinute; n > 0 {
		limits.AuthPerMinute = n
	}
	opts = append(opts, halolight.WithRateLimits(limits))

	if cfg.InstantResponses {
		opts = append(opts, halolight.WithInstantResponses())
	}

	return opts
}

// OpenStorage opens the configured storage backend. The returned close
// function releases it and is never nil.
func OpenStorage(ctx context.Context, cfg StorageConfig) (halolight.Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", BackendMemory:
		return halolight.NewMemoryStorage(), noop, nil
	case BackendFile:
		st, err := halolight.OpenFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		return st, noop, nil
	case BackendRedis:
		st, err := halolight.ConnectRedisStorage(ctx, halolight.RedisStorageConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			Timeout:  cfg.Redis.Timeout.Duration(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis storage: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ParseLevel maps a log_level setting to a slog level. Unknown values map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
