// Package shell is the console's root: it owns the current location and its
// history, gates pages through the router, opens tabs for visited pages and
// reacts to sign-in and sign-out.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/jpalmerr/halolight/internal/auth"
	"github.com/jpalmerr/halolight/internal/router"
	"github.com/jpalmerr/halolight/internal/storage"
	"github.com/jpalmerr/halolight/internal/store"
	"github.com/jpalmerr/halolight/internal/tabs"
)

// Location is where the console currently is.
type Location struct {
	Path       string            `json:"path"`
	Route      router.Route      `json:"route"`
	Params     map[string]string `json:"params,omitempty"`
	Redirected bool              `json:"redirected"`
}

// State is the shell snapshot.
type State struct {
	Location         Location `json:"location"`
	CanGoBack        bool     `json:"canGoBack"`
	CanGoForward     bool     `json:"canGoForward"`
	SidebarCollapsed bool     `json:"sidebarCollapsed"`
}

func cloneState(s State) State {
	s.Location.Params = maps.Clone(s.Location.Params)
	return s
}

// TabOpener receives a tab for every protected page visited.
type TabOpener interface {
	Add(ctx context.Context, tab tabs.Tab)
}

// PushSource is a push channel that follows the session: connected while
// signed in, closed after sign-out.
type PushSource interface {
	Connect(ctx context.Context)
	Close()
	// IsActive reports whether the source is connecting or connected.
	IsActive() bool
}

// Option configures a [Shell].
type Option func(*Shell)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTabs opens a tab for each protected page visited.
func WithTabs(t TabOpener) Option {
	return func(s *Shell) { s.tabs = t }
}

// WithPushSource connects src while a session is active.
func WithPushSource(src PushSource) Option {
	return func(s *Shell) { s.push = src }
}

// WithInitialPath sets the first location. Defaults to "/".
func WithInitialPath(path string) Option {
	return func(s *Shell) {
		if path != "" {
			s.initialPath = path
		}
	}
}

// WithChangeHook forwards to the underlying observable store.
func WithChangeHook(hook store.ChangeHook) Option {
	return func(s *Shell) { s.hook = hook }
}

// Shell is the console root. It must be released with Close.
type Shell struct {
	auth        store.Observable[auth.State]
	storage     storage.Storage
	tabs        TabOpener
	push        PushSource
	logger      *slog.Logger
	hook        store.ChangeHook
	initialPath string

	// ctx outlives individual requests. It carries navigations triggered
	// by session changes and the push connection, and ends with the parent
	// context or Close.
	ctx    context.Context
	cancel context.CancelFunc

	state *store.Store[State]

	mu      sync.Mutex
	history []string
	index   int

	unsubscribe func()
}

var _ store.Observable[State] = (*Shell)(nil)

// New creates the shell, resolves the initial location and starts following
// session changes in sessions.
func New(ctx context.Context, sessions store.Observable[auth.State], st storage.Storage, opts ...Option) (*Shell, error) {
	if sessions == nil {
		return nil, errors.New("shell: session store cannot be nil")
	}
	if st == nil {
		return nil, errors.New("shell: storage cannot be nil")
	}

	s := &Shell{
		auth:        sessions,
		storage:     st,
		logger:      slog.Default(),
		initialPath: "/",
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, opt := range opts {
		opt(s)
	}

	collapsed := false
	if _, err := storage.LoadJSON(ctx, st, storage.KeySidebarCollapsed, &collapsed); err != nil {
		s.logger.Warn("ignoring persisted sidebar state", "error", err)
	}

	authed := sessions.Get().IsAuthenticated
	loc := s.locate(s.initialPath, authed)
	s.history = []string{loc.Path}

	s.state = store.New("shell", State{Location: loc, SidebarCollapsed: collapsed},
		store.WithClone(cloneState),
		store.WithLogger[State](s.logger),
		store.WithChangeHook[State](s.hook),
	)

	s.openTab(ctx, loc)
	s.syncPush(authed)
	s.unsubscribe = sessions.Subscribe(s.onSession)
	return s, nil
}

// Get returns the shell state.
func (s *Shell) Get() State { return s.state.Get() }

// Subscribe registers a shell listener.
func (s *Shell) Subscribe(l store.Listener[State]) func() { return s.state.Subscribe(l) }

// Watch returns a channel view of shell changes.
func (s *Shell) Watch(buffer int) (<-chan State, func()) { return s.state.Watch(buffer) }

// Close stops following session changes and cancels the context the push
// source was connected with. Close is idempotent.
func (s *Shell) Close() {
	s.unsubscribe()
	s.cancel()
}

// Navigate goes to path, pushing it onto the history and discarding any
// forward entries.
func (s *Shell) Navigate(ctx context.Context, path string) Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc := s.locate(path, s.auth.Get().IsAuthenticated)

	s.history = append(s.history[:s.index+1], loc.Path)
	s.index = len(s.history) - 1
	s.commit(ctx, loc)
	return loc
}

// NavigateTo goes to the page route shows with params.
func (s *Shell) NavigateTo(ctx context.Context, route router.Route, params map[string]string) (Location, error) {
	path, err := router.PathFor(route, params)
	if err != nil {
		return Location{}, err
	}
	return s.Navigate(ctx, path), nil
}

// Back moves one entry back in the history. It reports false at the start.
func (s *Shell) Back(ctx context.Context) (Location, bool) {
	return s.step(ctx, -1)
}

// Forward moves one entry forward in the history. It reports false at the
// end.
func (s *Shell) Forward(ctx context.Context) (Location, bool) {
	return s.step(ctx, 1)
}

// SetSidebarCollapsed records whether the sidebar is folded.
func (s *Shell) SetSidebarCollapsed(ctx context.Context, collapsed bool) {
	s.updateSidebar(ctx, func(bool) bool { return collapsed })
}

// ToggleSidebar flips the sidebar state.
func (s *Shell) ToggleSidebar(ctx context.Context) {
	s.updateSidebar(ctx, func(collapsed bool) bool { return !collapsed })
}

func (s *Shell) updateSidebar(ctx context.Context, fn func(collapsed bool) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := s.state.Update(func(st State) (State, bool) {
		collapsed := fn(st.SidebarCollapsed)
		if st.SidebarCollapsed == collapsed {
			return st, false
		}
		st.SidebarCollapsed = collapsed
		return st, true
	})
	if !changed {
		return
	}
	if err := s.storage.Set(ctx, storage.KeySidebarCollapsed, strconv.FormatBool(next.SidebarCollapsed)); err != nil {
		s.logger.Warn("failed to persist sidebar state", "error", err)
	}
}

func (s *Shell) step(ctx context.Context, delta int) (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.index + delta
	if next < 0 || next >= len(s.history) {
		return s.state.Get().Location, false
	}
	s.index = next

	// history entries are re-resolved: the session may have changed since
	loc := s.locate(s.history[next], s.auth.Get().IsAuthenticated)
	s.commit(ctx, loc)
	return loc, true
}

// commit publishes loc. It must be called with s.mu held.
func (s *Shell) commit(ctx context.Context, loc Location) {
	back, forward := s.index > 0, s.index < len(s.history)-1
	s.state.Update(func(st State) (State, bool) {
		st.Location = loc
		st.CanGoBack = back
		st.CanGoForward = forward
		return st, true
	})
	s.openTab(ctx, loc)
	s.logger.Debug("navigated", "path", loc.Path, "route", loc.Route, "redirected", loc.Redirected)
}

// locate resolves path. A redirect rewrites the path to the target page.
func (s *Shell) locate(path string, authenticated bool) Location {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	res := router.Resolve(path, authenticated)
	loc := Location{Path: path, Route: res.Route, Params: res.Params, Redirected: res.Redirected}
	if res.Redirected {
		if target, err := router.PathFor(res.Route, nil); err == nil {
			loc.Path = target
		}
	}
	return loc
}

func (s *Shell) openTab(ctx context.Context, loc Location) {
	if s.tabs == nil || !router.IsProtected(loc.Route) {
		return
	}
	tab, err := tabFor(loc)
	if err != nil {
		s.logger.Warn("no tab for location", "path", loc.Path, "error", err)
		return
	}
	s.tabs.Add(ctx, tab)
}

func tabFor(loc Location) (tabs.Tab, error) {
	info, ok := router.Lookup(loc.Route)
	if !ok {
		return tabs.Tab{}, fmt.Errorf("%w: %q", router.ErrUnknownRoute, loc.Route)
	}
	if loc.Route == router.UserDetail {
		id := loc.Params[router.ParamID]
		return tabs.Tab{ID: "user-" + id, Title: info.Title + " " + id, Path: loc.Path}, nil
	}
	return tabs.Tab{ID: string(loc.Route), Title: info.Title, Path: loc.Path}, nil
}

// onSession runs on every session change.
func (s *Shell) onSession(st auth.State) {
	route := s.state.Get().Location.Route
	switch {
	case st.IsAuthenticated && router.IsAuthPage(route):
		s.logger.Info("session started, leaving sign-in page")
		if _, err := s.NavigateTo(s.ctx, router.Dashboard, nil); err != nil {
			s.logger.Error("redirect failed", "error", err)
		}
	case !st.IsAuthenticated && router.IsProtected(route):
		s.logger.Info("session ended, returning to sign-in page")
		if _, err := s.NavigateTo(s.ctx, router.Login, nil); err != nil {
			s.logger.Error("redirect failed", "error", err)
		}
	}
	s.syncPush(st.IsAuthenticated)
}

func (s *Shell) syncPush(authenticated bool) {
	if s.push == nil {
		return
	}
	switch {
	case authenticated && !s.push.IsActive():
		s.push.Connect(s.ctx)
	case !authenticated && s.push.IsActive():
		s.push.Close()
	}
}
