// Package tabs keeps the console's open page tabs and which one is active.
package tabs

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/jpalmerr/halolight/internal/storage"
	"github.com/jpalmerr/halolight/internal/store"
)

// Tab is an open page.
type Tab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
	// Closable defaults to true when unset.
	Closable *bool `json:"closable,omitempty"`
}

// IsClosable reports whether the tab can be closed.
func (t Tab) IsClosable() bool {
	return t.Closable == nil || *t.Closable
}

// HomeID is the ID of the pinned dashboard tab.
const HomeID = "home"

// Home returns the pinned dashboard tab present in every fresh state.
func Home() Tab {
	pinned := false
	return Tab{ID: HomeID, Title: "Home", Path: "/dashboard", Closable: &pinned}
}

// State lists the open tabs in display order.
type State struct {
	Tabs        []Tab  `json:"tabs"`
	ActiveTabID string `json:"activeTabId"`
}

// Active returns the active tab, if it is open.
func (s State) Active() (Tab, bool) {
	i := slices.IndexFunc(s.Tabs, func(t Tab) bool { return t.ID == s.ActiveTabID })
	if i < 0 {
		return Tab{}, false
	}
	return s.Tabs[i], true
}

func defaultState() State {
	return State{Tabs: []Tab{Home()}, ActiveTabID: HomeID}
}

func cloneState(s State) State {
	s.Tabs = slices.Clone(s.Tabs)
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

// Store is the observable tab bar store. Every change is persisted.
type Store struct {
	state   *store.Store[State]
	storage storage.Storage
	logger  *slog.Logger
	hook    store.ChangeHook

	// persistMu keeps storage writes in mutation order.
	persistMu sync.Mutex
}

var _ store.Observable[State] = (*Store)(nil)

// New restores the persisted tab bar from st, or starts with the home tab.
func New(ctx context.Context, st storage.Storage, opts ...Option) *Store {
	s := &Store{storage: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	initial := defaultState()
	var saved State
	ok, err := storage.LoadJSON(ctx, st, storage.KeyTabs, &saved)
	switch {
	case err != nil:
		s.logger.Warn("ignoring persisted tabs", "error", err)
	case ok && len(saved.Tabs) > 0:
		initial = saved
		if _, found := initial.Active(); !found {
			initial.ActiveTabID = HomeID
		}
	}

	s.state = store.New("tabs", initial,
		store.WithClone(cloneState),
		store.WithLogger[State](s.logger),
		store.WithChangeHook[State](s.hook),
	)
	return s
}

// Get returns the current tab bar.
func (s *Store) Get() State { return s.state.Get() }

// Subscribe registers a tab bar listener.
func (s *Store) Subscribe(l store.Listener[State]) func() { return s.state.Subscribe(l) }

// Watch returns a channel view of tab bar changes.
func (s *Store) Watch(buffer int) (<-chan State, func()) { return s.state.Watch(buffer) }

// Add opens tab and makes it active. If a tab with the same path is already
// open, that tab is activated instead.
func (s *Store) Add(ctx context.Context, tab Tab) {
	s.mutate(ctx, func(st State) (State, bool) {
		if i := indexByPath(st.Tabs, tab.Path); i >= 0 {
			st.ActiveTabID = st.Tabs[i].ID
			return st, true
		}
		st.Tabs = append(st.Tabs, tab)
		st.ActiveTabID = tab.ID
		return st, true
	})
}

// Close removes the tab with id. Pinned and unknown tabs are left alone and
// nobody is notified. Closing the active tab activates the last remaining
// tab, or home when none remain.
func (s *Store) Close(ctx context.Context, id string) {
	s.mutate(ctx, func(st State) (State, bool) {
		next := slices.DeleteFunc(slices.Clone(st.Tabs), func(t Tab) bool {
			return t.ID == id && t.IsClosable()
		})
		if len(next) == len(st.Tabs) {
			return st, false
		}
		st.Tabs = next
		if st.ActiveTabID == id {
			st.ActiveTabID = lastOrHome(next)
		}
		return st, true
	})
}

// CloseOthers closes every closable tab except id, which becomes active.
func (s *Store) CloseOthers(ctx context.Context, id string) {
	s.mutate(ctx, func(st State) (State, bool) {
		if indexByID(st.Tabs, id) < 0 {
			return st, false
		}
		next := slices.DeleteFunc(slices.Clone(st.Tabs), func(t Tab) bool {
			return t.ID != id && t.IsClosable()
		})
		if len(next) == len(st.Tabs) && st.ActiveTabID == id {
			return st, false
		}
		st.Tabs = next
		st.ActiveTabID = id
		return st, true
	})
}

// CloseAll closes every closable tab.
func (s *Store) CloseAll(ctx context.Context) {
	s.mutate(ctx, func(st State) (State, bool) {
		next := slices.DeleteFunc(slices.Clone(st.Tabs), Tab.IsClosable)
		if len(next) == len(st.Tabs) {
			return st, false
		}
		st.Tabs = next
		if indexByID(next, st.ActiveTabID) < 0 {
			st.ActiveTabID = lastOrHome(next)
		}
		return st, true
	})
}

// SetActive activates the tab with id. Unknown ids are ignored.
func (s *Store) SetActive(ctx context.Context, id string) {
	s.mutate(ctx, func(st State) (State, bool) {
		if indexByID(st.Tabs, id) < 0 {
			return st, false
		}
		st.ActiveTabID = id
		return st, true
	})
}

// SetActiveByPath activates the tab showing path, if one is open.
func (s *Store) SetActiveByPath(ctx context.Context, path string) {
	s.mutate(ctx, func(st State) (State, bool) {
		i := indexByPath(st.Tabs, path)
		if i < 0 {
			return st, false
		}
		st.ActiveTabID = st.Tabs[i].ID
		return st, true
	})
}

// mutate applies fn and persists the result when it reports a change.
func (s *Store) mutate(ctx context.Context, fn func(State) (State, bool)) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	next, changed := s.state.Update(fn)
	if !changed {
		return
	}
	if err := storage.SaveJSON(ctx, s.storage, storage.KeyTabs, next); err != nil {
		s.logger.Warn("failed to persist tabs", "error", err)
	}
}

func indexByPath(tabs []Tab, path string) int {
	return slices.IndexFunc(tabs, func(t Tab) bool { return t.Path == path })
}

func indexByID(tabs []Tab, id string) int {
	return slices.IndexFunc(tabs, func(t Tab) bool { return t.ID == id })
}

func lastOrHome(tabs []Tab) string {
	if len(tabs) == 0 {
		return HomeID
	}
	return tabs[len(tabs)-1].ID
}
