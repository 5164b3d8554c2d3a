package notify

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/halolight/internal/model"
	"github.com/jpalmerr/halolight/internal/store"
)

// Status is the connection state of a [Source].
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Defaults applied by [NewSource].
const (
	DefaultConnectDelay = 800 * time.Millisecond
	DefaultInterval     = 10 * time.Second
	DefaultProbability  = 0.2
)

type payload struct {
	kind    model.NotificationType
	title   string
	message string
}

var payloads = []payload{
	{model.NotificationSystem, "System notice", "Simulated real-time notification"},
	{model.NotificationUser, "New user registered", "A new user just completed registration"},
	{model.NotificationTask, "Task updated", "You have a new task waiting"},
}

// SourceOption configures a [Source].
type SourceOption func(*Source)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithConnectDelay sets how long Connect stays in the connecting state.
func WithConnectDelay(d time.Duration) SourceOption {
	return func(s *Source) {
		if d >= 0 {
			s.connectDelay = d
		}
	}
}

// WithProbability sets the chance, in [0, 1], that a tick emits.
func WithProbability(p float64) SourceOption {
	return func(s *Source) {
		if p >= 0 && p <= 1 {
			s.probability = p
		}
	}
}

// WithRandom replaces the source of randomness. fn must return values in
// [0, 1). It is called twice per tick: once to decide whether to emit and
// once to pick the payload.
func WithRandom(fn func() float64) SourceOption {
	return func(s *Source) {
		if fn != nil {
			s.random = fn
		}
	}
}

// WithSourceLogger sets the logger. Defaults to slog.Default().
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Source is a simulated push feed.
//
// Listeners run on the source's goroutine and must not call Connect or Close.
// All methods are safe for concurrent use.
type Source struct {
	interval     time.Duration
	connectDelay time.Duration
	probability  float64
	random       func() float64
	logger       *slog.Logger

	status   *store.Store[Status]
	messages *store.Store[model.Notification]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSource creates a disconnected [Source].
func NewSource(opts ...SourceOption) *Source {
	s := &Source{
		interval:     DefaultInterval,
		connectDelay: DefaultConnectDelay,
		probability:  DefaultProbability,
		random:       rand.Float64,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.status = store.New("notify.status", StatusDisconnected, store.WithLogger[Status](s.logger))
	s.messages = store.New("notify.messages", model.Notification{}, store.WithLogger[model.Notification](s.logger))
	return s
}

// Status returns the connection state.
func (s *Source) Status() Status {
	return s.status.Get()
}

// IsActive reports whether the source is connecting or connected.
func (s *Source) IsActive() bool {
	st := s.status.Get()
	return st == StatusConnecting || st == StatusConnected
}

// OnStatus registers a listener for status transitions.
func (s *Source) OnStatus(l func(Status)) func() {
	return s.status.Subscribe(l)
}

// OnMessage registers a listener for emitted notifications.
func (s *Source) OnMessage(l func(model.Notification)) func() {
	return s.messages.Subscribe(l)
}

// Connect starts connecting in the background and returns immediately.
// After the connect delay the source is connected and starts ticking.
// Connect is a no-op while connecting or connected. Cancelling ctx while
// connecting moves the source to error; cancelling it while connected
// disconnects.
func (s *Source) Connect(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.status.Get(); st == StatusConnecting || st == StatusConnected {
		return
	}

	s.gen++
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.transition(StatusConnecting)

	s.wg.Add(1)
	go s.run(runCtx, s.gen)
}

// Close disconnects and stops future ticks. A delivery already in progress
// finishes before Close returns. Close is idempotent.
func (s *Source) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.transition(StatusDisconnected)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Source) run(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	delay := time.NewTimer(s.connectDelay)
	select {
	case <-ctx.Done():
		delay.Stop()
		s.finish(gen, StatusConnecting, StatusError)
		return
	case <-delay.C:
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.transition(StatusConnected)
	s.mu.Unlock()
	s.logger.Debug("notification source connected")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finish(gen, StatusConnected, StatusDisconnected)
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			s.tick()
		}
	}
}

// finish moves a still-current connection from one status to another when
// its context ends without Close being called.
func (s *Source) finish(gen uint64, from, to Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.status.Get() != from {
		return
	}
	s.cancel = nil
	s.transition(to)
	s.logger.Debug("notification source stopped", "status", to)
}

func (s *Source) tick() {
	if s.random() >= s.probability {
		return
	}

	i := int(s.random() * float64(len(payloads)))
	if i >= len(payloads) {
		i = len(payloads) - 1
	}
	p := payloads[i]

	n := model.Notification{
		ID:        "ws-" + uuid.NewString(),
		Type:      p.kind,
		Title:     p.title,
		Message:   p.message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.logger.Debug("emitting notification", "id", n.ID, "type", n.Type)
	s.messages.Set(n)
}

// transition must be called with s.mu held.
func (s *Source) transition(to Status) {
	s.status.Update(func(cur Status) (Status, bool) {
		return to, cur != to
	})
}
