package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/jpalmerr/halolight/internal/model"
	"github.com/jpalmerr/halolight/internal/storage"
	"github.com/jpalmerr/halolight/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// Defaults applied by [New] when the matching option is not set.
const (
	DefaultDemoEmail     = "admin@halolight.h7ml.cn"
	DefaultDemoPassword  = "123456"
	DefaultLoginDelay    = 600 * time.Millisecond
	DefaultRegisterDelay = 800 * time.Millisecond
	DefaultTokenTTL      = 24 * time.Hour
)

// State is the session snapshot. IsAuthenticated is true exactly when both
// User and Token are set.
type State struct {
	User            *model.User  `json:"user"`
	Token           string       `json:"token,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
	Accounts        []model.User `json:"accounts"`
	ActiveAccountID string       `json:"activeAccountId,omitempty"`
}

func cloneState(s State) State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	s.Accounts = slices.Clone(s.Accounts)
	return s
}

// Option configures a [Store].
type Option func(*Store) error

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithDemoCredentials sets the only email/password pair Login accepts.
func WithDemoCredentials(email, password string) Option {
	return func(s *Store) error {
		if email == "" || password == "" {
			return errors.New("demo credentials cannot be empty")
		}
		s.demoEmail = email
		s.demoPassword = password
		return nil
	}
}

// WithSecret sets the HS256 signing key for session tokens.
func WithSecret(secret []byte) Option {
	return func(s *Store) error {
		if len(secret) < 16 {
			return errors.New("token secret must be at least 16 bytes")
		}
		s.secret = secret
		return nil
	}
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Store) error {
		if d <= 0 {
			return errors.New("token ttl must be positive")
		}
		s.tokenTTL = d
		return nil
	}
}

// WithDelays sets the simulated latency of Login and Register. Zero disables
// the wait.
func WithDelays(login, register time.Duration) Option {
	return func(s *Store) error {
		if login < 0 || register < 0 {
			return errors.New("delays cannot be negative")
		}
		s.loginDelay = login
		s.registerDelay = register
		return nil
	}
}

// WithChangeHook forwards to the underlying observable store.
func WithChangeHook(hook store.ChangeHook) Option {
	return func(s *Store) error {
		s.hook = hook
		return nil
	}
}

// Store is the observable session store.
type Store struct {
	state   *store.Store[State]
	storage storage.Storage
	logger  *slog.Logger
	hook    store.ChangeHook

	demoEmail    string
	demoPassword string
	demoHash     []byte

	secret        []byte
	tokenTTL      time.Duration
	loginDelay    time.Duration
	registerDelay time.Duration

	now func() time.Time

	// persistMu serializes session mutations with their storage writes.
	persistMu sync.Mutex
}

var _ store.Observable[State] = (*Store)(nil)

// New creates a session store backed by st and restores any persisted
// session. A persisted session that cannot be decoded, or whose token no
// longer verifies, is cleared.
func New(ctx context.Context, st storage.Storage, opts ...Option) (*Store, error) {
	if st == nil {
		return nil, errors.New("auth: storage cannot be nil")
	}

	s := &Store{
		storage:       st,
		logger:        slog.Default(),
		demoEmail:     DefaultDemoEmail,
		demoPassword:  DefaultDemoPassword,
		tokenTTL:      DefaultTokenTTL,
		loginDelay:    DefaultLoginDelay,
		registerDelay: DefaultRegisterDelay,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.secret == nil {
		return nil, errors.New("auth: token secret is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s.demoHash = hash
	s.demoPassword = ""

	s.state = store.New("auth", s.restore(ctx),
		store.WithClone(cloneState),
		store.WithLogger[State](s.logger),
		store.WithChangeHook[State](s.hook),
	)
	return s, nil
}

// Get returns the current session.
func (s *Store) Get() State { return s.state.Get() }

// Subscribe registers a session listener.
func (s *Store) Subscribe(l store.Listener[State]) func() { return s.state.Subscribe(l) }

// Watch returns a channel view of session changes.
func (s *Store) Watch(buffer int) (<-chan State, func()) { return s.state.Watch(buffer) }

// DemoEmail returns the email Login accepts.
func (s *Store) DemoEmail() string { return s.demoEmail }

// Login checks email and password against the demo credentials after the
// login delay. On success the admin user is signed in and the session is
// persisted. A cancelled ctx counts as a failed attempt.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	s.setLoading(true)

	if !wait(ctx, s.loginDelay) {
		s.setLoading(false)
		return false
	}

	if email != s.demoEmail || bcrypt.CompareHashAndPassword(s.demoHash, []byte(password)) != nil {
		s.logger.Info("login rejected", "email", email)
		s.setLoading(false)
		return false
	}

	user := model.DemoAdmin(s.demoEmail, s.now())
	if !s.signIn(ctx, user) {
		s.setLoading(false)
		return false
	}

	s.logger.Info("login succeeded", "user_id", user.ID)
	return true
}

// Register creates a viewer account and signs it in after the register
// delay. It only fails when ctx is cancelled during the wait.
func (s *Store) Register(ctx context.Context, name, email, password string) bool {
	s.setLoading(true)

	if !wait(ctx, s.registerDelay) {
		s.setLoading(false)
		return false
	}

	now := s.now()
	user := model.User{
		ID:          strconv.FormatInt(now.UnixMilli(), 10),
		Name:        name,
		Email:       email,
		Avatar:      model.AvatarURL(email),
		Role:        model.RoleViewer,
		Status:      model.UserActive,
		CreatedAt:   now.UTC().Format(time.RFC3339),
		LastLoginAt: now.UTC().Format(time.RFC3339),
	}
	if !s.signIn(ctx, user) {
		s.setLoading(false)
		return false
	}

	s.logger.Info("account registered", "user_id", user.ID)
	return true
}

// Logout clears the session and its persisted keys.
func (s *Store) Logout(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.clearPersisted(ctx)
	s.state.Set(State{})
	s.logger.Info("logged out")
}

// SwitchAccount makes the account with id active and issues it a new token.
// It reports false, changing nothing, when nobody is signed in or id is not
// one of the session's accounts.
func (s *Store) SwitchAccount(ctx context.Context, id string) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	var issueErr error
	next, changed := s.state.Update(func(st State) (State, bool) {
		if !st.IsAuthenticated {
			return st, false
		}
		idx := slices.IndexFunc(st.Accounts, func(u model.User) bool { return u.ID == id })
		if idx < 0 {
			return st, false
		}
		user := st.Accounts[idx]

		token, err := issueToken(user.ID, s.secret, s.tokenTTL, s.now())
		if err != nil {
			issueErr = err
			return st, false
		}
		st.User = &user
		st.Token = token
		st.ActiveAccountID = user.ID
		return st, true
	})
	if issueErr != nil {
		s.logger.Error("failed to issue token", "account_id", id, "error", issueErr)
		return false
	}
	if !changed {
		s.logger.Debug("switch to unknown account ignored", "account_id", id)
		return false
	}

	s.persist(ctx, next.Token, *next.User)
	s.logger.Info("account switched", "account_id", id)
	return true
}

// AddAccount makes user available to SwitchAccount for the current session.
// It reports false when nobody is signed in or an account with the same ID
// is already present. Added accounts last until the session ends.
func (s *Store) AddAccount(user model.User) bool {
	_, changed := s.state.Update(func(st State) (State, bool) {
		if !st.IsAuthenticated {
			return st, false
		}
		if slices.ContainsFunc(st.Accounts, func(u model.User) bool { return u.ID == user.ID }) {
			return st, false
		}
		st.Accounts = append(st.Accounts, user)
		return st, true
	})
	if changed {
		s.logger.Info("account added", "account_id", user.ID)
	}
	return changed
}

// VerifyToken checks that token is well signed, unexpired and is the current
// session token. It returns the user ID the token was issued to.
func (s *Store) VerifyToken(token string) (string, error) {
	userID, err := parseToken(token, s.secret)
	if err != nil {
		return "", err
	}

	current := s.state.Get()
	if !current.IsAuthenticated {
		return "", ErrNoSession
	}
	if current.Token != token {
		return "", ErrStaleToken
	}
	return userID, nil
}

func (s *Store) signIn(ctx context.Context, user model.User) bool {
	token, err := issueToken(user.ID, s.secret, s.tokenTTL, s.now())
	if err != nil {
		s.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		return false
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.persist(ctx, token, user)

	s.state.Set(State{
		User:            &user,
		Token:           token,
		IsAuthenticated: true,
		Accounts:        []model.User{user},
		ActiveAccountID: user.ID,
	})
	return true
}

func (s *Store) setLoading(loading bool) {
	s.state.Update(func(st State) (State, bool) {
		st.Loading = loading
		return st, true
	})
}

// persist writes token and user. Storage failures are logged; the in-memory
// session stays authoritative.
func (s *Store) persist(ctx context.Context, token string, user model.User) {
	if err := s.storage.Set(ctx, storage.KeyToken, token); err != nil {
		s.logger.Warn("failed to persist token", "error", err)
	}
	if err := storage.SaveJSON(ctx, s.storage, storage.KeyUser, user); err != nil {
		s.logger.Warn("failed to persist user", "error", err)
	}
}

func (s *Store) clearPersisted(ctx context.Context) {
	for _, key := range []string{storage.KeyToken, storage.KeyUser} {
		if err := s.storage.Remove(ctx, key); err != nil {
			s.logger.Warn("failed to clear session key", "key", key, "error", err)
		}
	}
}

func (s *Store) restore(ctx context.Context) State {
	token, err := s.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read persisted token", "error", err)
		}
		return State{}
	}

	var user model.User
	ok, err := storage.LoadJSON(ctx, s.storage, storage.KeyUser, &user)
	if err != nil {
		s.logger.Warn("discarding unreadable session", "error", err)
		s.clearPersisted(ctx)
		return State{}
	}
	if !ok || token == "" {
		return State{}
	}

	if _, err := parseToken(token, s.secret); err != nil {
		s.logger.Warn("discarding expired session", "error", err)
		s.clearPersisted(ctx)
		return State{}
	}

	s.logger.Debug("session restored", "user_id", user.ID)
	return State{
		User:            &user,
		Token:           token,
		IsAuthenticated: true,
		Accounts:        []model.User{user},
		ActiveAccountID: user.ID,
	}
}

// wait blocks for d or until ctx is done. It reports whether the full delay
// elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
