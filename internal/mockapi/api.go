// Package mockapi serves canned console data behind an artificial latency,
// wrapped in the {code, message, data} envelope the dashboard expects.
//
// Calls never fail for business reasons with a Go error: unknown users and
// bad credentials come back as a non-200 code with null data. The only error
// returned is the context's, when it ends during the simulated delay.
package mockapi

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/halolight/internal/model"
)

// Response is the envelope of every API call. Data is nil on failure.
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Response[T] {
	return Response[T]{Code: http.StatusOK, Message: "success", Data: &data}
}

// Fail builds a failed envelope with a null payload.
func Fail[T any](code int, message string) Response[T] {
	return Response[T]{Code: code, Message: message}
}

// Succeeded reports whether the envelope carries code 200.
func (r Response[T]) Succeeded() bool {
	return r.Code == http.StatusOK
}

// LoginResult is the payload of a successful Login.
type LoginResult struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// Delays is the simulated latency of each operation.
type Delays struct {
	Login         time.Duration
	CurrentUser   time.Duration
	Users         time.Duration
	UserByID      time.Duration
	Summary       time.Duration
	Visits        time.Duration
	Sales         time.Duration
	Pie           time.Duration
	Activities    time.Duration
	Tasks         time.Duration
	Notifications time.Duration
	RecentUsers   time.Duration
}

// DefaultDelays returns the stock latencies.
func DefaultDelays() Delays {
	return Delays{
		Login:         600 * time.Millisecond,
		CurrentUser:   200 * time.Millisecond,
		Users:         400 * time.Millisecond,
		UserByID:      300 * time.Millisecond,
		Summary:       400 * time.Millisecond,
		Visits:        300 * time.Millisecond,
		Sales:         300 * time.Millisecond,
		Pie:           200 * time.Millisecond,
		Activities:    300 * time.Millisecond,
		Tasks:         200 * time.Millisecond,
		Notifications: 200 * time.Millisecond,
		RecentUsers:   200 * time.Millisecond,
	}
}

// Observer is told the outcome of every completed call.
type Observer func(op string, code int, elapsed time.Duration)

// Paging defaults.
const (
	DefaultPageSize    = 10
	MaxPageSize        = 100
	DefaultRecentLimit = 5
)

// Option configures an [API].
type Option func(*API)

// WithDelays replaces the latency table.
func WithDelays(d Delays) Option {
	return func(a *API) { a.delays = d }
}

// WithoutDelays disables every simulated wait.
func WithoutDelays() Option {
	return func(a *API) { a.delays = Delays{} }
}

// WithDemoCredentials sets the pair Login accepts.
func WithDemoCredentials(email, password string) Option {
	return func(a *API) {
		a.demoEmail = email
		a.demoPassword = password
	}
}

// WithSeed makes the generated chart data reproducible.
func WithSeed(seed uint64) Option {
	return func(a *API) { a.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithTokenFunc sets how Login mints tokens.
func WithTokenFunc(fn func(userID string) (string, error)) Option {
	return func(a *API) {
		if fn != nil {
			a.token = fn
		}
	}
}

// WithObserver registers a callback run after every call.
func WithObserver(obs Observer) Option {
	return func(a *API) { a.observer = obs }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// API is the mock backend. It is safe for concurrent use; its data never
// changes after creation.
type API struct {
	delays       Delays
	demoEmail    string
	demoPassword string
	rng          *rand.Rand
	token        func(userID string) (string, error)
	observer     Observer
	logger       *slog.Logger
	now          func() time.Time

	data *dataset
}

// New creates the API and generates its data.
func New(opts ...Option) *API {
	a := &API{
		delays:       DefaultDelays(),
		demoEmail:    "admin@halolight.h7ml.cn",
		demoPassword: "123456",
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		token:        func(string) (string, error) { return "mock-token-" + uuid.NewString(), nil },
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.data = newDataset(a.now(), a.rng)
	return a
}

// Login checks email and password against the demo credentials without
// touching any session.
func (a *API) Login(ctx context.Context, email, password string) (Response[LoginResult], error) {
	return call(ctx, a, "login", a.delays.Login, func() Response[LoginResult] {
		if email != a.demoEmail || password != a.demoPassword {
			return Fail[LoginResult](http.StatusUnauthorized, "invalid email or password")
		}
		user := model.DemoAdmin(a.demoEmail, a.now())
		token, err := a.token(user.ID)
		if err != nil {
			a.logger.Error("failed to mint token", "error", err)
			return Fail[LoginResult](http.StatusInternalServerError, "could not issue token")
		}
		return OK(LoginResult{User: user, Token: token})
	})
}

// CurrentUser returns the first directory user.
func (a *API) CurrentUser(ctx context.Context) (Response[model.User], error) {
	return call(ctx, a, "current_user", a.delays.CurrentUser, func() Response[model.User] {
		return OK(a.data.users[0])
	})
}

// Users returns one page of the user directory. page starts at 1; values
// below 1 select the first page. pageSize defaults to [DefaultPageSize] and
// is capped at [MaxPageSize].
func (a *API) Users(ctx context.Context, page, pageSize int) (Response[model.Page[model.User]], error) {
	return call(ctx, a, "users", a.delays.Users, func() Response[model.Page[model.User]] {
		return OK(paginate(a.data.users, page, pageSize))
	})
}

// UserByID looks up a user, answering 404 when there is none.
func (a *API) UserByID(ctx context.Context, id string) (Response[model.User], error) {
	return call(ctx, a, "user_by_id", a.delays.UserByID, func() Response[model.User] {
		i := slices.IndexFunc(a.data.users, func(u model.User) bool { return u.ID == id })
		if i < 0 {
			return Fail[model.User](http.StatusNotFound, "user not found")
		}
		return OK(a.data.users[i])
	})
}

// RecentUsers returns the first limit users. A non-positive limit means
// [DefaultRecentLimit].
func (a *API) RecentUsers(ctx context.Context, limit int) (Response[[]model.User], error) {
	return call(ctx, a, "recent_users", a.delays.RecentUsers, func() Response[[]model.User] {
		if limit <= 0 {
			limit = DefaultRecentLimit
		}
		limit = min(limit, len(a.data.users))
		return OK(slices.Clone(a.data.users[:limit]))
	})
}

// DashboardSummary returns the headline figures.
func (a *API) DashboardSummary(ctx context.Context) (Response[model.DashboardSummary], error) {
	return call(ctx, a, "summary", a.delays.Summary, func() Response[model.DashboardSummary] {
		return OK(a.data.summary)
	})
}

// VisitsChart returns daily traffic for the last 30 days.
func (a *API) VisitsChart(ctx context.Context) (Response[model.ChartData], error) {
	return call(ctx, a, "visits_chart", a.delays.Visits, func() Response[model.ChartData] {
		return OK(cloneChart(a.data.visits))
	})
}

// SalesChart returns monthly revenue and orders.
func (a *API) SalesChart(ctx context.Context) (Response[model.ChartData], error) {
	return call(ctx, a, "sales_chart", a.delays.Sales, func() Response[model.ChartData] {
		return OK(cloneChart(a.data.sales))
	})
}

// PieChart returns the traffic source split.
func (a *API) PieChart(ctx context.Context) (Response[model.ChartData], error) {
	return call(ctx, a, "pie_chart", a.delays.Pie, func() Response[model.ChartData] {
		return OK(cloneChart(a.data.pie))
	})
}

// Activities returns the recent activity feed.
func (a *API) Activities(ctx context.Context) (Response[[]model.Activity], error) {
	return call(ctx, a, "activities", a.delays.Activities, func() Response[[]model.Activity] {
		return OK(slices.Clone(a.data.activities))
	})
}

// Tasks returns the to-do list.
func (a *API) Tasks(ctx context.Context) (Response[[]model.Task], error) {
	return call(ctx, a, "tasks", a.delays.Tasks, func() Response[[]model.Task] {
		return OK(slices.Clone(a.data.tasks))
	})
}

// Notifications returns the canned inbox, newest first.
func (a *API) Notifications(ctx context.Context) (Response[[]model.Notification], error) {
	return call(ctx, a, "notifications", a.delays.Notifications, func() Response[[]model.Notification] {
		return OK(slices.Clone(a.data.notifications))
	})
}

// call waits d, runs fn and reports the outcome to the observer.
func call[T any](ctx context.Context, a *API, op string, d time.Duration, fn func() Response[T]) (Response[T], error) {
	start := time.Now()
	if err := sleep(ctx, d); err != nil {
		return Response[T]{}, err
	}

	resp := fn()
	if a.observer != nil {
		a.observer(op, resp.Code, time.Since(start))
	}
	a.logger.Debug("mock api call", "op", op, "code", resp.Code)
	return resp, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func paginate[T any](all []T, page, pageSize int) model.Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)

	start := min((page-1)*pageSize, len(all))
	end := min(start+pageSize, len(all))

	return model.Page[T]{
		Items:      slices.Clone(all[start:end]),
		Total:      len(all),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(len(all)) / float64(pageSize))),
	}
}

func cloneChart(c model.ChartData) model.ChartData {
	c.Labels = slices.Clone(c.Labels)
	c.Datasets = slices.Clone(c.Datasets)
	for i := range c.Datasets {
		c.Datasets[i].Data = slices.Clone(c.Datasets[i].Data)
		c.Datasets[i].BackgroundColor = slices.Clone(c.Datasets[i].BackgroundColor)
	}
	return c
}
