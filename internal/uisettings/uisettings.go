// Package uisettings holds the console's layout preferences: the colour skin
// and which chrome elements are shown or pinned.
package uisettings

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

// Skin is a colour preset.
type Skin string

// Skins lists every preset in picker order.
var Skins = []Skin{
	"default", "blue", "emerald", "amber", "violet", "rose",
	"teal", "slate", "ocean", "sunset", "aurora",
}

// Field names a boolean setting.
type Field string

const (
	ShowFooter        Field = "showFooter"
	ShowTabBar        Field = "showTabBar"
	MobileHeaderFixed Field = "mobileHeaderFixed"
	MobileTabBarFixed Field = "mobileTabBarFixed"
)

var (
	ErrUnknownSkin  = errors.New("uisettings: unknown skin")
	ErrUnknownField = errors.New("uisettings: unknown field")
)

// ParseSkin validates s as a [Skin].
func ParseSkin(s string) (Skin, error) {
	if !slices.Contains(Skins, Skin(s)) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSkin, s)
	}
	return Skin(s), nil
}

// ParseField validates s as a [Field].
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case ShowFooter, ShowTabBar, MobileHeaderFixed, MobileTabBarFixed:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}

// State is the settings snapshot.
type State struct {
	Skin              Skin `json:"skin"`
	ShowFooter        bool `json:"showFooter"`
	ShowTabBar        bool `json:"showTabBar"`
	MobileHeaderFixed bool `json:"mobileHeaderFixed"`
	MobileTabBarFixed bool `json:"mobileTabBarFixed"`
}

// Defaults returns the factory settings.
func Defaults() State {
	return State{
		Skin:              "default",
		ShowFooter:        true,
		ShowTabBar:        true,
		MobileHeaderFixed: true,
		MobileTabBarFixed: true,
	}
}

func (s State) with(f Field, v bool) State {
	switch f {
	case ShowFooter:
		s.ShowFooter = v
	case ShowTabBar:
		s.ShowTabBar = v
	case MobileHeaderFixed:
		s.MobileHeaderFixed = v
	case MobileTabBarFixed:
		s.MobileTabBarFixed = v
	}
	return s
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

// Store is the observable settings store. Every change is persisted whole.
type Store struct {
	state   *store.Store[State]
	storage storage.Storage
	logger  *slog.Logger
	hook    store.ChangeHook

	persistMu sync.Mutex
}

var _ store.Observable[State] = (*Store)(nil)

// New loads settings from st. Persisted fields override the defaults; fields
// missing from the persisted document keep their default value.
func New(ctx context.Context, st storage.Storage, opts ...Option) *Store {
	s := &Store{storage: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	initial := Defaults()
	merged := Defaults()
	if _, err := storage.LoadJSON(ctx, st, storage.KeyUISettings, &merged); err != nil {
		s.logger.Warn("ignoring persisted ui settings", "error", err)
	} else {
		initial = merged
	}
	if _, err := ParseSkin(string(initial.Skin)); err != nil {
		s.logger.Warn("ignoring persisted skin", "skin", initial.Skin)
		initial.Skin = Defaults().Skin
	}

	s.state = store.New("ui-settings", initial,
		store.WithLogger[State](s.logger),
		store.WithChangeHook[State](s.hook),
	)
	return s
}

// Get returns the current settings.
func (s *Store) Get() State { return s.state.Get() }

// Subscribe registers a settings listener.
func (s *Store) Subscribe(l store.Listener[State]) func() { return s.state.Subscribe(l) }

// Watch returns a channel view of settings changes.
func (s *Store) Watch(buffer int) (<-chan State, func()) { return s.state.Watch(buffer) }

// SetSkin switches the colour preset.
func (s *Store) SetSkin(ctx context.Context, skin Skin) error {
	if _, err := ParseSkin(string(skin)); err != nil {
		return err
	}
	s.mutate(ctx, func(st State) State {
		st.Skin = skin
		return st
	})
	return nil
}

// Toggle sets the boolean setting f to v.
func (s *Store) Toggle(ctx context.Context, f Field, v bool) error {
	if _, err := ParseField(string(f)); err != nil {
		return err
	}
	s.mutate(ctx, func(st State) State { return st.with(f, v) })
	return nil
}

// Reset restores the factory settings.
func (s *Store) Reset(ctx context.Context) {
	s.mutate(ctx, func(State) State { return Defaults() })
}

func (s *Store) mutate(ctx context.Context, fn func(State) State) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	next, _ := s.state.Update(func(st State) (State, bool) { return fn(st), true })
	if err := storage.SaveJSON(ctx, s.storage, storage.KeyUISettings, next); err != nil {
		s.logger.Warn("failed to persist ui settings", "error", err)
	}
}
