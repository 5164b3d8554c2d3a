package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Listener receives the full state after every change.
type Listener[S any] func(S)

// Observable is the read side of a [Store]. Transports and the shell depend on
// this interface rather than on a concrete store.
type Observable[S any] interface {
	Get() S
	Subscribe(l Listener[S]) (unsubscribe func())
	Watch(buffer int) (<-chan S, func())
}

// ChangeHook is called after each notification round with the store name.
// It is used for metrics and must not block.
type ChangeHook func(name string)

// Option configures a [Store] at construction.
type Option[S any] func(*Store[S])

// WithClone sets the function used to copy state before it leaves the store.
// States holding slices or maps need a deep copy here; plain structs can use
// the default, which returns the value as is.
func WithClone[S any](clone func(S) S) Option[S] {
	return func(s *Store[S]) {
		if clone != nil {
			s.clone = clone
		}
	}
}

// WithLogger sets the logger used to report listener panics.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChangeHook registers a hook invoked after every notification round.
func WithChangeHook[S any](hook ChangeHook) Option[S] {
	return func(s *Store[S]) {
		s.hook = hook
	}
}

type subscription[S any] struct {
	id uint64
	fn Listener[S]
}

// Store is a concurrency-safe observable holder of a single state value.
type Store[S any] struct {
	name   string
	clone  func(S) S
	logger *slog.Logger
	hook   ChangeHook

	mu    sync.RWMutex
	state S

	// dispatchMu serializes mutate+notify so listeners see mutations in order.
	dispatchMu sync.Mutex

	subMu     sync.Mutex
	nextID    uint64
	listeners []subscription[S]
}

// New creates a [Store] named name holding initial.
func New[S any](name string, initial S, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		name:   name,
		clone:  func(v S) S { return v },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.clone(initial)
	return s
}

// Name returns the store name given to [New].
func (s *Store[S]) Name() string {
	return s.name
}

// Get returns a copy of the current state.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.state)
}

// Set replaces the state and notifies all listeners.
func (s *Store[S]) Set(next S) {
	s.Update(func(S) (S, bool) { return next, true })
}

// Update applies fn to a copy of the current state. When fn reports a change,
// the returned value becomes the new state and listeners are notified; when it
// does not, the store is left untouched and nobody is notified.
//
// Update returns the resulting state and whether it changed.
func (s *Store[S]) Update(fn func(S) (S, bool)) (S, bool) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next, changed := fn(s.clone(s.state))
	if !changed {
		current := s.clone(s.state)
		s.mu.Unlock()
		return current, false
	}
	s.state = s.clone(next)
	snapshot := s.clone(s.state)
	s.mu.Unlock()

	s.notify(snapshot)
	return snapshot, true
}

// Subscribe registers l and returns a function that removes it. The returned
// function is safe to call more than once.
func (s *Store[S]) Subscribe(l Listener[S]) func() {
	if l == nil {
		return func() {}
	}

	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription[S]{id: id, fn: l})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

// Watch returns a channel receiving every state change, buffered to buffer
// entries (minimum 1), and a cancel function that unsubscribes and closes the
// channel. Updates are dropped for a reader whose buffer is full.
func (s *Store[S]) Watch(buffer int) (<-chan S, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan S, buffer)

	unsubscribe := s.Subscribe(func(state S) {
		select {
		case ch <- state:
		default:
			// reader is slow, drop the update
		}
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			// wait out an in-flight dispatch before closing
			s.dispatchMu.Lock()
			close(ch)
			s.dispatchMu.Unlock()
		})
	}
	return ch, cancel
}

// Len returns the number of registered listeners.
func (s *Store[S]) Len() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.listeners)
}

func (s *Store[S]) unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for i, sub := range s.listeners {
		if sub.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// notify delivers state to a snapshot of the listener list. Listeners added
// or removed during delivery take effect on the next round.
func (s *Store[S]) notify(state S) {
	s.subMu.Lock()
	listeners := make([]subscription[S], len(s.listeners))
	copy(listeners, s.listeners)
	s.subMu.Unlock()

	for _, sub := range listeners {
		s.invokeSafe(sub.fn, s.clone(state))
	}

	if s.hook != nil {
		s.hook(s.name)
	}
}

// invokeSafe calls a listener with panic recovery so one faulty subscriber
// cannot break delivery to the others.
func (s *Store[S]) invokeSafe(l Listener[S], state S) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store listener panicked",
				"store", s.name,
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	l(state)
}
