// Package halolight provides an embeddable admin console backend: session
// management, persisted UI preferences, a tab bar, a dashboard layout, a mock
// content API and a simulated real-time notification channel, served over a
// JSON API with Server-Sent Events and WebSocket streams.
//
// HaloLight is designed as an SDK-first library. The console is configured
// with functional options and its lifecycle is controlled by a context.
//
// # Quick Start
//
//	c, _ := halolight.New(halolight.WithPort(8080))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	c.Start(ctx) // blocks until context is cancelled
//
// Sign in with the demo credentials (admin@halolight.h7ml.cn / 123456 unless
// changed by [WithDemoCredentials]) through POST /api/auth/login, then send
// the returned token as a Bearer header.
//
// # Persistence
//
// Session, theme, tabs, UI settings, layout and sidebar state are persisted
// through a [Storage]. Memory is the default; [OpenFileStorage] keeps a JSON
// document on disk and [ConnectRedisStorage] shares state through Redis:
//
//	st, err := halolight.OpenFileStorage("/var/lib/halolight/state.json")
//	if err != nil {
//	    return err
//	}
//	c, err := halolight.New(
//	    halolight.WithStorage(st),
//	    halolight.WithTokenSecret(secret),
//	)
//
// Without [WithTokenSecret] tokens are signed with a random key, and a
// persisted session is dropped at the next start.
//
// # Notifications
//
// While a user is signed in the push channel emits a notification with the
// configured probability on every tick. Notifications land in the inbox, on
// the event streams and in every [WithNotificationCallback].
//
// # Architecture
//
// HaloLight consists of several internal packages (under internal/):
//
//   - internal/store: Generic observable state container
//   - internal/storage: Memory, file and Redis key-value backends
//   - internal/auth, theme, tabs, uisettings, widgets: Persisted domain stores
//   - internal/notify: Push source and notification inbox
//   - internal/router, shell: Route table, guards and navigation state
//   - internal/mockapi: Paged users, dashboard data and charts
//   - internal/server: HTTP API, SSE and WebSocket
//   - internal/metrics: Prometheus collectors
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package halolight
