package halolight

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// consoleConfig holds mutable state during Console construction.
type consoleConfig struct {
	title         string
	port          int
	logger        *slog.Logger
	storage       Storage
	demoEmail     string
	demoPassword  string
	tokenSecret   []byte
	tokenTTL      time.Duration
	notifyEvery   time.Duration
	notifyChance  float64
	instant       bool
	allowedOrigin string
	rateLimits    RateLimits
	registry      *prometheus.Registry
	callbacks     []func(Notification)
}

// Option is a function that configures a [Console] instance during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails.
type Option func(*consoleConfig) error

// WithPort sets the HTTP port for the console server.
//
// The console and its API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *consoleConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Console instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *consoleConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the console title displayed in the browser tab and header.
//
// If not specified, defaults to "HaloLight".
func WithTitle(title string) Option {
	return func(cfg *consoleConfig) error {
		cfg.title = title
		return nil
	}
}

// WithStorage sets where console state (session, theme, tabs, settings,
// layout) is persisted. Defaults to process memory, which forgets everything
// on restart. See [NewMemoryStorage], [OpenFileStorage] and
// [ConnectRedisStorage].
func WithStorage(st Storage) Option {
	return func(cfg *consoleConfig) error {
		if st == nil {
			return errors.New("storage cannot be nil")
		}
		cfg.storage = st
		return nil
	}
}

// WithDemoCredentials sets the only email and password the login accepts.
//
// Example:
//
//	c, err := halolight.New(
//	    halolight.WithDemoCredentials("ops@example.com", "letmein"),
//	)
func WithDemoCredentials(email, password string) Option {
	return func(cfg *consoleConfig) error {
		if email == "" || password == "" {
			return errors.New("demo email and password cannot be empty")
		}
		cfg.demoEmail = email
		cfg.demoPassword = password
		return nil
	}
}

// WithTokenSecret sets the HMAC key session tokens are signed with. Without
// it a random key is generated at start, so persisted sessions do not
// survive a restart.
//
// Returns an error if the secret is shorter than 16 bytes.
func WithTokenSecret(secret []byte) Option {
	return func(cfg *consoleConfig) error {
		if len(secret) < 16 {
			return fmt.Errorf("token secret must be at least 16 bytes, got %d", len(secret))
		}
		cfg.tokenSecret = append([]byte(nil), secret...)
		return nil
	}
}

// WithTokenTTL sets how long session tokens stay valid. Defaults to 24 hours.
func WithTokenTTL(d time.Duration) Option {
	return func(cfg *consoleConfig) error {
		if d <= 0 {
			return errors.New("token ttl must be positive")
		}
		cfg.tokenTTL = d
		return nil
	}
}

// WithNotifyInterval sets how often the simulated push channel considers
// emitting a notification. Defaults to 10 seconds.
func WithNotifyInterval(d time.Duration) Option {
	return func(cfg *consoleConfig) error {
		if d <= 0 {
			return errors.New("notify interval must be positive")
		}
		cfg.notifyEvery = d
		return nil
	}
}

// WithNotifyProbability sets the chance, in [0, 1], that a push tick emits a
// notification. Defaults to 0.2.
func WithNotifyProbability(p float64) Option {
	return func(cfg *consoleConfig) error {
		if p < 0 || p > 1 {
			return fmt.Errorf("notify probability must be within [0, 1], got %v", p)
		}
		cfg.notifyChance = p
		return nil
	}
}

// WithInstantResponses removes the artificial latency of sign-in, the mock
// API and the push handshake. Useful for tests and scripted demos.
func WithInstantResponses() Option {
	return func(cfg *consoleConfig) error {
		cfg.instant = true
		return nil
	}
}

// WithAllowedOrigin sets the CORS origin of the API. WebSocket handshakes
// from other origins are refused. Defaults to "*".
func WithAllowedOrigin(origin string) Option {
	return func(cfg *consoleConfig) error {
		cfg.allowedOrigin = origin
		return nil
	}
}

// WithRateLimits sets the request budgets of the API.
func WithRateLimits(limits RateLimits) Option {
	return func(cfg *consoleConfig) error {
		if limits.GeneralPerMinute <= 0 || limits.AuthPerMinute <= 0 {
			return errors.New("rate limits must be positive")
		}
		cfg.rateLimits = limits
		return nil
	}
}

// WithRegistry sets the Prometheus registry the console metrics are
// registered with and /metrics serves. Defaults to a fresh registry with the
// Go and process collectors.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(cfg *consoleConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithNotificationCallback registers a function called for every
// notification the push channel delivers.
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the push channel's
// goroutine, and a slow callback delays the next tick. Panics within
// callbacks are recovered and logged.
//
// Example:
//
//	c, err := halolight.New(
//	    halolight.WithNotificationCallback(func(n halolight.Notification) {
//	        if n.Type == "system" {
//	            log.Printf("system notice: %s", n.Message)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithNotificationCallback(cb func(Notification)) Option {
	return func(cfg *consoleConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
