package notify

import (
	"log/slog"
	"slices"

	"github.com/jpalmerr/halolight/internal/model"
	"github.com/jpalmerr/halolight/internal/store"
)

// DefaultInboxCapacity bounds how many notifications an [Inbox] keeps.
const DefaultInboxCapacity = 100

// InboxState lists notifications newest first.
type InboxState struct {
	Items  []model.Notification `json:"items"`
	Unread int                  `json:"unread"`
}

func cloneInbox(s InboxState) InboxState {
	s.Items = slices.Clone(s.Items)
	return s
}

func countUnread(items []model.Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

// InboxOption configures an [Inbox].
type InboxOption func(*inboxConfig)

type inboxConfig struct {
	capacity int
	logger   *slog.Logger
	hook     store.ChangeHook
}

// WithCapacity bounds the inbox. The oldest entries are dropped first.
func WithCapacity(n int) InboxOption {
	return func(c *inboxConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithInboxLogger sets the logger. Defaults to slog.Default().
func WithInboxLogger(logger *slog.Logger) InboxOption {
	return func(c *inboxConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInboxChangeHook forwards to the underlying observable store.
func WithInboxChangeHook(hook store.ChangeHook) InboxOption {
	return func(c *inboxConfig) {
		c.hook = hook
	}
}

// Inbox is the observable list of received notifications.
type Inbox struct {
	state    *store.Store[InboxState]
	capacity int
}

var _ store.Observable[InboxState] = (*Inbox)(nil)

// NewInbox creates an inbox holding seed, which is expected newest first.
func NewInbox(seed []model.Notification, opts ...InboxOption) *Inbox {
	cfg := inboxConfig{capacity: DefaultInboxCapacity, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	items := slices.Clone(seed)
	if len(items) > cfg.capacity {
		items = items[:cfg.capacity]
	}

	return &Inbox{
		state: store.New("inbox", InboxState{Items: items, Unread: countUnread(items)},
			store.WithClone(cloneInbox),
			store.WithLogger[InboxState](cfg.logger),
			store.WithChangeHook[InboxState](cfg.hook),
		),
		capacity: cfg.capacity,
	}
}

// Get returns the inbox contents.
func (b *Inbox) Get() InboxState { return b.state.Get() }

// Subscribe registers an inbox listener.
func (b *Inbox) Subscribe(l store.Listener[InboxState]) func() { return b.state.Subscribe(l) }

// Watch returns a channel view of inbox changes.
func (b *Inbox) Watch(buffer int) (<-chan InboxState, func()) { return b.state.Watch(buffer) }

// Push adds n as the newest notification. A notification whose ID is already
// in the inbox is ignored.
func (b *Inbox) Push(n model.Notification) {
	b.state.Update(func(st InboxState) (InboxState, bool) {
		if slices.ContainsFunc(st.Items, func(it model.Notification) bool { return it.ID == n.ID }) {
			return st, false
		}
		st.Items = slices.Insert(st.Items, 0, n)
		if len(st.Items) > b.capacity {
			st.Items = st.Items[:b.capacity]
		}
		st.Unread = countUnread(st.Items)
		return st, true
	})
}

// MarkRead marks the notification with id as read. It reports whether the
// notification exists.
func (b *Inbox) MarkRead(id string) bool {
	found := false
	b.state.Update(func(st InboxState) (InboxState, bool) {
		i := slices.IndexFunc(st.Items, func(it model.Notification) bool { return it.ID == id })
		if i < 0 {
			return st, false
		}
		found = true
		if st.Items[i].Read {
			return st, false
		}
		st.Items[i].Read = true
		st.Unread = countUnread(st.Items)
		return st, true
	})
	return found
}

// MarkAllRead marks every notification as read.
func (b *Inbox) MarkAllRead() {
	b.state.Update(func(st InboxState) (InboxState, bool) {
		if st.Unread == 0 {
			return st, false
		}
		for i := range st.Items {
			st.Items[i].Read = true
		}
		st.Unread = 0
		return st, true
	})
}

// UnreadCount returns the number of unread notifications.
func (b *Inbox) UnreadCount() int {
	return b.state.Get().Unread
}
