// Package widgets keeps the dashboard page's widget set and grid layout.
package widgets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jpalmerr/halolight/internal/storage"
	"github.com/jpalmerr/halolight/internal/store"
)

// Columns is the width of the dashboard grid.
const Columns = 12

// Type is the kind of content a widget renders.
type Type string

const (
	ChartBar    Type = "chart-bar"
	ChartPie    Type = "chart-pie"
	RecentUsers Type = "recent-users"
	Tasks       Type = "tasks"
	Calendar    Type = "calendar"
)

// Widget is a dashboard card.
type Widget struct {
	ID     string         `json:"id"`
	Type   Type           `json:"type"`
	Title  string         `json:"title"`
	Config map[string]any `json:"config,omitempty"`
}

// Layout places widget I on the grid.
type Layout struct {
	I string `json:"i"`
	X int    `json:"x"`
	Y int    `json:"y"`
	W int    `json:"w"`
	H int    `json:"h"`
}

// ErrInvalidLayout is returned by SetLayouts for layouts that reference
// unknown widgets or fall outside the grid.
var ErrInvalidLayout = errors.New("widgets: invalid layout")

// State is the dashboard snapshot.
type State struct {
	Widgets []Widget `json:"widgets"`
	Layouts []Layout `json:"layouts"`
}

// Defaults returns the factory dashboard.
func Defaults() State {
	return State{
		Widgets: []Widget{
			{ID: "chart-bar-1", Type: ChartBar, Title: "Sales"},
			{ID: "chart-pie-1", Type: ChartPie, Title: "Traffic Sources"},
			{ID: "recent-users-1", Type: RecentUsers, Title: "Recent Users"},
			{ID: "tasks-1", Type: Tasks, Title: "Tasks"},
			{ID: "calendar-1", Type: Calendar, Title: "Today"},
		},
		Layouts: []Layout{
			{I: "chart-bar-1", X: 0, Y: 0, W: 6, H: 4},
			{I: "chart-pie-1", X: 6, Y: 0, W: 6, H: 4},
			{I: "recent-users-1", X: 0, Y: 4, W: 4, H: 4},
			{I: "tasks-1", X: 4, Y: 4, W: 4, H: 4},
			{I: "calendar-1", X: 8, Y: 4, W: 4, H: 4},
		},
	}
}

func cloneState(s State) State {
	s.Widgets = slices.Clone(s.Widgets)
	s.Layouts = slices.Clone(s.Layouts)
	return s
}

// Validate checks every layout against the widget set and the grid.
func (s State) Validate() error {
	seen := make(map[string]bool, len(s.Layouts))
	for _, l := range s.Layouts {
		if !slices.ContainsFunc(s.Widgets, func(w Widget) bool { return w.ID == l.I }) {
			return fmt.Errorf("%w: unknown widget %q", ErrInvalidLayout, l.I)
		}
		if seen[l.I] {
			return fmt.Errorf("%w: duplicate layout for %q", ErrInvalidLayout, l.I)
		}
		seen[l.I] = true
		if l.X < 0 || l.Y < 0 || l.W <= 0 || l.H <= 0 || l.X+l.W > Columns {
			return fmt.Errorf("%w: %q is outside the grid", ErrInvalidLayout, l.I)
		}
	}
	return nil
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChangeHook forwards to the underlying observable store.
func WithChangeHook(hook store.ChangeHook) Option {
	return func(s *Store) {
		s.hook = hook
	}
}

// Store is the observable dashboard layout store.
type Store struct {
	state   *store.Store[State]
	storage storage.Storage
	logger  *slog.Logger
	hook    store.ChangeHook

	persistMu sync.Mutex
}

var _ store.Observable[State] = (*Store)(nil)

// New restores the persisted dashboard from st, falling back to the defaults
// when nothing valid is stored.
func New(ctx context.Context, st storage.Storage, opts ...Option) *Store {
	s := &Store{storage: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	initial := Defaults()
	var saved State
	ok, err := storage.LoadJSON(ctx, st, storage.KeyDashboard, &saved)
	switch {
	case err != nil:
		s.logger.Warn("ignoring persisted dashboard", "error", err)
	case ok:
		if verr := saved.Validate(); verr != nil || len(saved.Widgets) == 0 {
			s.logger.Warn("ignoring persisted dashboard", "error", verr)
		} else {
			initial = saved
		}
	}

	s.state = store.New("dashboard", initial,
		store.WithClone(cloneState),
		store.WithLogger[State](s.logger),
		store.WithChangeHook[State](s.hook),
	)
	return s
}

// Get returns the current dashboard.
func (s *Store) Get() State { return s.state.Get() }

// Subscribe registers a dashboard listener.
func (s *Store) Subscribe(l store.Listener[State]) func() { return s.state.Subscribe(l) }

// Watch returns a channel view of dashboard changes.
func (s *Store) Watch(buffer int) (<-chan State, func()) { return s.state.Watch(buffer) }

// SetLayouts replaces the grid layout.
func (s *Store) SetLayouts(ctx context.Context, layouts []Layout) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	var verr error
	next, changed := s.state.Update(func(st State) (State, bool) {
		st.Layouts = slices.Clone(layouts)
		if verr = st.Validate(); verr != nil {
			return st, false
		}
		return st, true
	})
	if !changed {
		return verr
	}
	s.persist(ctx, next)
	return nil
}

// Reset restores the factory widgets and layout.
func (s *Store) Reset(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	next, _ := s.state.Update(func(State) (State, bool) { return Defaults(), true })
	s.persist(ctx, next)
}

func (s *Store) persist(ctx context.Context, st State) {
	if err := storage.SaveJSON(ctx, s.storage, storage.KeyDashboard, st); err != nil {
		s.logger.Warn("failed to persist dashboard", "error", err)
	}
}
