package halolight

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/halolight/dashboard"
	"github.com/jpalmerr/halolight/internal/auth"
	"github.com/jpalmerr/halolight/internal/metrics"
	"github.com/jpalmerr/halolight/internal/mockapi"
	"github.com/jpalmerr/halolight/internal/notify"
	"github.com/jpalmerr/halolight/internal/server"
	"github.com/jpalmerr/halolight/internal/shell"
	"github.com/jpalmerr/halolight/internal/tabs"
	"github.com/jpalmerr/halolight/internal/theme"
	"github.com/jpalmerr/halolight/internal/uisettings"
	"github.com/jpalmerr/halolight/internal/widgets"
)

const (
	defaultPort  = 8080
	defaultTitle = "HaloLight"
	secretLength = 32
)

// Console is the admin console backend: the session, preference and layout
// stores, the mock API, the simulated push channel and the HTTP server that
// exposes them.
//
// Console is created using [New] with functional options and started with
// [Console.Start]:
//
//	c, err := halolight.New(halolight.WithPort(9090))
//	if err != nil {
//	    slog.Error("failed to create console", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	c.Start(ctx) // blocks until context cancelled
type Console struct {
	cfg       consoleConfig
	logger    *slog.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
}

// New creates a new [Console] with the given options.
//
// Every option has a default:
//   - Port: 8080
//   - Title: "HaloLight"
//   - Storage: process memory
//   - Demo credentials: admin@halolight.h7ml.cn / 123456
//   - Token TTL: 24 hours
//   - Push channel: a 20% chance every 10 seconds
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Console, error) {
	cfg := consoleConfig{
		title:        defaultTitle,
		port:         defaultPort,
		demoEmail:    auth.DefaultDemoEmail,
		demoPassword: auth.DefaultDemoPassword,
		tokenTTL:     auth.DefaultTokenTTL,
		notifyEvery:  notify.DefaultInterval,
		notifyChance: notify.DefaultProbability,
		rateLimits:   DefaultRateLimits(),
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.storage == nil {
		cfg.storage = NewMemoryStorage()
	}
	if cfg.tokenSecret == nil {
		cfg.tokenSecret = make([]byte, secretLength)
		if _, err := rand.Read(cfg.tokenSecret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		logger.Warn("no token secret configured, sessions will not survive a restart")
	}

	registry := cfg.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Console{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		collector: metrics.NewCollector(registry),
	}, nil
}

// Start builds the stores from storage and serves the console until ctx is
// cancelled.
//
// During execution:
//
//   - Persisted session, theme, tabs, settings and layout are restored
//   - The HTTP server starts on the configured port
//   - The push channel connects whenever a user is signed in
//   - The dashboard is available at http://localhost:<port>
//
// Returns nil on graceful shutdown. Returns an error if a store cannot be
// restored or the HTTP server fails to start.
func (c *Console) Start(ctx context.Context) error {
	c.logger.Info("halolight starting", "title", c.cfg.title)
	c.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", c.cfg.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	rec := c.collector
	hook := rec.StoreChanged
	st := c.cfg.storage

	authOpts := []auth.Option{
		auth.WithLogger(c.logger),
		auth.WithSecret(c.cfg.tokenSecret),
		auth.WithDemoCredentials(c.cfg.demoEmail, c.cfg.demoPassword),
		auth.WithTokenTTL(c.cfg.tokenTTL),
		auth.WithChangeHook(hook),
	}
	apiOpts := []mockapi.Option{
		mockapi.WithDemoCredentials(c.cfg.demoEmail, c.cfg.demoPassword),
		mockapi.WithObserver(rec.MockAPICall),
		mockapi.WithLogger(c.logger),
	}
	srcOpts := []notify.SourceOption{
		notify.WithInterval(c.cfg.notifyEvery),
		notify.WithProbability(c.cfg.notifyChance),
		notify.WithSourceLogger(c.logger),
	}
	if c.cfg.instant {
		authOpts = append(authOpts, auth.WithDelays(0, 0))
		apiOpts = append(apiOpts, mockapi.WithoutDelays())
		srcOpts = append(srcOpts, notify.WithConnectDelay(0))
	}

	sessions, err := auth.New(ctx, st, authOpts...)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	themeStore := theme.New(ctx, st, theme.WithLogger(c.logger), theme.WithChangeHook(hook))
	tabStore := tabs.New(ctx, st, tabs.WithLogger(c.logger), tabs.WithChangeHook(hook))
	settings := uisettings.New(ctx, st, uisettings.WithLogger(c.logger), uisettings.WithChangeHook(hook))
	layout := widgets.New(ctx, st, widgets.WithLogger(c.logger), widgets.WithChangeHook(hook))

	api := mockapi.New(apiOpts...)
	seed, err := api.Notifications(ctx)
	if err != nil {
		// only a cancelled ctx fails here
		return nil
	}
	inbox := notify.NewInbox(*seed.Data,
		notify.WithInboxLogger(c.logger),
		notify.WithInboxChangeHook(hook),
	)

	src := notify.NewSource(srcOpts...)
	src.OnStatus(func(s notify.Status) { rec.PushStatus(string(s)) })
	src.OnMessage(func(n Notification) {
		// inbox first so callbacks observe the updated unread count
		inbox.Push(n)
		rec.NotificationEmitted(string(n.Type))
		for _, cb := range c.cfg.callbacks {
			invokeCallbackSafe(cb, n, c.logger)
		}
	})

	sh, err := shell.New(ctx, sessions, st,
		shell.WithLogger(c.logger),
		shell.WithTabs(tabStore),
		shell.WithPushSource(src),
		shell.WithChangeHook(hook),
	)
	if err != nil {
		src.Close()
		return fmt.Errorf("restore shell: %w", err)
	}

	// cleanup stops the push channel before the stores it feeds go away
	cleanup := func() {
		sh.Close()
		src.Close()
	}

	httpServer, err := server.NewServer(server.Deps{
		Auth:          sessions,
		Theme:         themeStore,
		Tabs:          tabStore,
		Settings:      settings,
		Layout:        layout,
		Inbox:         inbox,
		Push:          src,
		Shell:         sh,
		API:           api,
		Metrics:       rec,
		Gatherer:      c.registry,
		Assets:        dashboard.Assets,
		Title:         c.cfg.title,
		AllowedOrigin: c.cfg.allowedOrigin,
		RateLimits:    c.cfg.rateLimits.limiterConfig(),
		Logger:        c.logger,
	}, c.cfg.port)
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	if err := httpServer.Start(ctx); err != nil {
		httpServer.Close()
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	c.logger.Info("halolight stopped")
	return nil
}

// Port returns the configured HTTP port.
func (c *Console) Port() int {
	return c.cfg.port
}

// Title returns the configured console title.
func (c *Console) Title() string {
	return c.cfg.title
}

// Registry returns the Prometheus registry the console reports to.
func (c *Console) Registry() *prometheus.Registry {
	return c.registry
}

func (l RateLimits) limiterConfig() server.RateLimiterConfig {
	cfg := server.DefaultRateLimiterConfig()
	cfg.GeneralRate = rate.Limit(float64(l.GeneralPerMinute) / 60)
	cfg.GeneralBurst = l.GeneralPerMinute
	cfg.AuthRate = rate.Limit(float64(l.AuthPerMinute) / 60)
	cfg.AuthBurst = l.AuthPerMinute
	return cfg
}

// invokeCallbackSafe calls a notification callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Notification), n Notification, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("notification callback panicked",
				"panic", r,
				"notification_id", n.ID,
			)
		}
	}()
	cb(n)
}
