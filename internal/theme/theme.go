// Package theme tracks the console colour scheme.
package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jpalmerr/halolight/internal/storage"
	"github.com/jpalmerr/halolight/internal/store"
)

// Theme is the user's colour scheme choice.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
	Auto  Theme = "auto"
)

// ErrUnknownTheme is returned by SetTheme for values other than light, dark
// and auto.
var ErrUnknownTheme = errors.New("theme: unknown theme")

// Parse validates s as a [Theme].
func Parse(s string) (Theme, error) {
	switch t := Theme(s); t {
	case Light, Dark, Auto:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
	}
}

// State is the theme snapshot. IsDark follows the system preference when
// Theme is auto.
type State struct {
	Theme  Theme `json:"theme"`
	IsDark bool  `json:"isDark"`
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

// WithSystemPreference sets whether the host prefers a dark scheme.
func WithSystemPreference(prefersDark bool) Option {
	return func(s *Store) {
		s.prefersDark.Store(prefersDark)
	}
}

// WithChangeHook forwards to the underlying observable store.
func WithChangeHook(hook store.ChangeHook) Option {
	return func(s *Store) {
		s.hook = hook
	}
}

// Store is the observable theme store.
type Store struct {
	state *store.Store[State]

	storage     storage.Storage
	logger      *slog.Logger
	hook        store.ChangeHook
	prefersDark atomic.Bool

	// persistMu keeps the persisted theme in step with the state.
	persistMu sync.Mutex
}

var _ store.Observable[State] = (*Store)(nil)

// New restores the persisted theme from st. Without a valid persisted value
// the theme follows the system preference.
func New(ctx context.Context, st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage: st,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	initial := s.systemTheme()
	raw, err := st.Get(ctx, storage.KeyTheme)
	switch {
	case err == nil:
		if t, perr := Parse(raw); perr == nil {
			initial = t
		} else {
			s.logger.Warn("ignoring persisted theme", "value", raw)
		}
	case !errors.Is(err, storage.ErrNotFound):
		s.logger.Warn("failed to read persisted theme", "error", err)
	}

	s.state = store.New("theme", s.resolve(initial),
		store.WithLogger[State](s.logger),
		store.WithChangeHook[State](s.hook),
	)
	return s
}

// Get returns the current theme.
func (s *Store) Get() State { return s.state.Get() }

// Subscribe registers a theme listener.
func (s *Store) Subscribe(l store.Listener[State]) func() { return s.state.Subscribe(l) }

// Watch returns a channel view of theme changes.
func (s *Store) Watch(buffer int) (<-chan State, func()) { return s.state.Watch(buffer) }

// SetTheme applies t, recomputes IsDark and persists t.
func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if _, err := Parse(string(t)); err != nil {
		return err
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.state.Set(s.resolve(t))
	s.persist(ctx, t)
	return nil
}

// ToggleTheme flips IsDark and persists the matching explicit theme.
func (s *Store) ToggleTheme(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	next, _ := s.state.Update(func(st State) (State, bool) {
		if st.IsDark {
			return s.resolve(Light), true
		}
		return s.resolve(Dark), true
	})
	s.persist(ctx, next.Theme)
}

// SetSystemPreference records a change of the host scheme. Listeners are
// notified only when the theme is auto.
func (s *Store) SetSystemPreference(prefersDark bool) {
	s.prefersDark.Store(prefersDark)
	s.state.Update(func(st State) (State, bool) {
		if st.Theme != Auto {
			return st, false
		}
		return s.resolve(Auto), true
	})
}

func (s *Store) systemTheme() Theme {
	if s.prefersDark.Load() {
		return Dark
	}
	return Light
}

func (s *Store) resolve(t Theme) State {
	isDark := t == Dark
	if t == Auto {
		isDark = s.prefersDark.Load()
	}
	return State{Theme: t, IsDark: isDark}
}

func (s *Store) persist(ctx context.Context, t Theme) {
	if err := s.storage.Set(ctx, storage.KeyTheme, string(t)); err != nil {
		s.logger.Warn("failed to persist theme", "error", err)
	}
}
