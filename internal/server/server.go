package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/halolight/internal/auth"
	"github.com/jpalmerr/halolight/internal/metrics"
	"github.com/jpalmerr/halolight/internal/mockapi"
	"github.com/jpalmerr/halolight/internal/notify"
	"github.com/jpalmerr/halolight/internal/shell"
	"github.com/jpalmerr/halolight/internal/tabs"
	"github.com/jpalmerr/halolight/internal/theme"
	"github.com/jpalmerr/halolight/internal/uisettings"
	"github.com/jpalmerr/halolight/internal/widgets"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// WebSocket write. Must be <= shutdownTimeout.
	streamWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "HaloLight"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Deps holds everything the HTTP layer serves. The stores, the push source,
// the shell and the mock API are required.
type Deps struct {
	Auth     *auth.Store
	Theme    *theme.Store
	Tabs     *tabs.Store
	Settings *uisettings.Store
	Layout   *widgets.Store
	Inbox    *notify.Inbox
	Push     *notify.Source
	Shell    *shell.Shell
	API      *mockapi.API

	// Metrics receives request and stream metrics. Optional.
	Metrics metrics.Recorder
	// Gatherer backs GET /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer

	// Assets holds assets/index.html. The dashboard page is not served when nil.
	Assets fs.FS
	Title  string

	// AllowedOrigin is the CORS origin, "*" when empty. WebSocket handshakes
	// are checked against it too.
	AllowedOrigin string
	RateLimits    RateLimiterConfig

	Logger *slog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Auth == nil:
		return errors.New("auth store is required")
	case d.Theme == nil:
		return errors.New("theme store is required")
	case d.Tabs == nil:
		return errors.New("tabs store is required")
	case d.Settings == nil:
		return errors.New("ui settings store is required")
	case d.Layout == nil:
		return errors.New("layout store is required")
	case d.Inbox == nil:
		return errors.New("inbox is required")
	case d.Push == nil:
		return errors.New("push source is required")
	case d.Shell == nil:
		return errors.New("shell is required")
	case d.API == nil:
		return errors.New("mock api is required")
	}
	return nil
}

// Server handles HTTP requests for the console: the dashboard page, the JSON
// API over the stores and the mock API, and the SSE and WebSocket streams.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	deps       Deps
	port       int
	httpServer *http.Server
	handler    http.Handler
	limiter    *RateLimiter
	metrics    metrics.Recorder
	title      string
	logger     *slog.Logger
	stopOnce   sync.Once
}

// NewServer creates a new HTTP [Server] listening on port once started.
// The rate limiter's cleanup goroutine starts immediately; [Server.Close]
// or the end of [Server.Start] stops it.
func NewServer(deps Deps, port int) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("port %d out of range", port)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := deps.Metrics
	if rec == nil {
		rec = nopRecorder{}
	}
	title := deps.Title
	if title == "" {
		title = defaultTitle
	}
	limits := deps.RateLimits
	if limits == (RateLimiterConfig{}) {
		limits = DefaultRateLimiterConfig()
	}

	s := &Server{
		deps:    deps,
		port:    port,
		limiter: NewRateLimiter(limits, logger),
		metrics: rec,
		title:   title,
		logger:  logger,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the router. Useful for mounting under httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases background resources. It does not stop a started server;
// cancel the context passed to [Server.Start] for that.
func (s *Server) Close() {
	s.stopOnce.Do(s.limiter.Stop)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(newRecoveryMiddleware(s.logger))
	r.Use(newLoggingMiddleware(s.logger, s.metrics))
	r.Use(newCORSMiddleware(s.deps.AllowedOrigin))

	r.Get("/health", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.deps.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.limiter.AuthMiddleware())
				r.Post("/login", s.handleLogin)
				r.Post("/register", s.handleRegister)
				r.Post("/token", s.handleIssueToken)
			})
			r.Get("/session", s.handleSession)
			r.Group(func(r chi.Router) {
				r.Use(newBearerMiddleware(s.deps.Auth))
				r.Post("/logout", s.handleLogout)
				r.Post("/switch", s.handleSwitchAccount)
				r.Post("/accounts", s.handleAddAccount)
			})
		})

		// chrome shown on the sign-in pages too
		r.Get("/theme", s.handleGetTheme)
		r.Put("/theme", s.handleSetTheme)
		r.Post("/theme/toggle", s.handleToggleTheme)
		r.Put("/theme/system", s.handleSystemPreference)
		r.Get("/ui-settings", s.handleGetSettings)
		r.Put("/ui-settings/skin", s.handleSetSkin)
		r.Post("/ui-settings/toggle", s.handleToggleSetting)
		r.Post("/ui-settings/reset", s.handleResetSettings)
		r.Get("/menu", s.handleMenu)

		r.Route("/shell", func(r chi.Router) {
			r.Get("/", s.handleGetShell)
			r.Post("/navigate", s.handleNavigate)
			r.Post("/back", s.handleBack)
			r.Post("/forward", s.handleForward)
			r.Put("/sidebar", s.handleSetSidebar)
			r.Post("/sidebar/toggle", s.handleToggleSidebar)
		})

		r.Group(func(r chi.Router) {
			r.Use(newBearerMiddleware(s.deps.Auth))
			r.Use(s.limiter.GeneralMiddleware())

			r.Get("/me", s.handleCurrentUser)

			r.Get("/users", s.handleUsers)
			r.Get("/users/recent", s.handleRecentUsers)
			r.Get("/users/{id}", s.handleUserByID)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/summary", s.handleSummary)
				r.Get("/charts/{chart}", s.handleChart)
				r.Get("/activities", s.handleActivities)
				r.Get("/tasks", s.handleTasks)
			})

			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/read-all", s.handleMarkAllRead)
			r.Post("/notifications/{id}/read", s.handleMarkRead)

			r.Route("/tabs", func(r chi.Router) {
				r.Get("/", s.handleGetTabs)
				r.Post("/", s.handleAddTab)
				r.Post("/active", s.handleSetActiveTab)
				r.Post("/close-others", s.handleCloseOtherTabs)
				r.Post("/close-all", s.handleCloseAllTabs)
				r.Delete("/{id}", s.handleCloseTab)
			})

			r.Get("/layout", s.handleGetLayout)
			r.Put("/layout", s.handleSetLayout)
			r.Post("/layout/reset", s.handleResetLayout)

			r.Get("/stream", s.handleSSE)
			r.Get("/ws", s.handleWebSocket)
		})

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})

	if s.deps.Assets != nil {
		// console paths are client-side locations; every one of them gets the page
		r.Get("/*", s.handleDashboard)
	}

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so long-running streams end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		defer s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{
		"status": "ok",
		"push":   string(s.deps.Push.Status()),
	})
}

type nopRecorder struct{}

func (nopRecorder) StoreChanged(string) {}
func (nopRecorder) NotificationEmitted(string) {}
func (nopRecorder) PushStatus(string) {}
func (nopRecorder) MockAPICall(string, int, time.Duration) {}
func (nopRecorder) HTTPRequest(string, string, int, time.Duration) {}
func (nopRecorder) LoginAttempt(bool) {}
func (nopRecorder) StreamOpened(string) {}
func (nopRecorder) StreamClosed(string) {}
