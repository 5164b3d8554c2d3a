// Package router maps console locations to logical pages.
//
// Paths are matched exactly against a fixed table; the only dynamic segment
// is the user id in /users/{id}. Protected pages resolve to the login page
// for anonymous visitors, and the login page resolves to the dashboard once
// the visitor is authenticated.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Route names a logical page.
type Route string

const (
	Login          Route = "login"
	Register       Route = "register"
	ForgotPassword Route = "forgot-password"
	Dashboard      Route = "dashboard"
	Users          Route = "users"
	UserDetail     Route = "user-detail"
	Messages       Route = "messages"
	Files          Route = "files"
	Calendar       Route = "calendar"
	Analytics      Route = "analytics"
	Security       Route = "security"
	Settings       Route = "settings"
	Privacy        Route = "privacy"
	Terms          Route = "terms"
	NotFound       Route = "not-found"
)

// Access is who may see a page.
type Access int

const (
	// Public pages are visible to everyone.
	Public Access = iota
	// Entry pages resolve to the dashboard for authenticated visitors.
	Entry
	// Protected pages require a session.
	Protected
)

// ParamID is the name of the /users/{id} parameter.
const ParamID = "id"

// Info describes a page.
type Info struct {
	Route   Route  `json:"route"`
	Pattern string `json:"pattern"`
	Title   string `json:"title"`
	Icon    string `json:"icon,omitempty"`
	Access  Access `json:"access"`
	InMenu  bool   `json:"inMenu"`

	// AuthPage marks the sign-in flow. A session that starts while one of
	// these is shown moves to the dashboard.
	AuthPage bool `json:"-"`
}

// pages is the route table; menu entries appear in sidebar order.
var pages = []Info{
	{Route: Dashboard, Pattern: "/dashboard", Title: "Dashboard", Icon: "layout-dashboard", Access: Protected, InMenu: true},
	{Route: Users, Pattern: "/users", Title: "Users", Icon: "users", Access: Protected, InMenu: true},
	{Route: Messages, Pattern: "/messages", Title: "Messages", Icon: "message-square", Access: Protected, InMenu: true},
	{Route: Files, Pattern: "/files", Title: "Files", Icon: "folder", Access: Protected, InMenu: true},
	{Route: Calendar, Pattern: "/calendar", Title: "Calendar", Icon: "calendar", Access: Protected, InMenu: true},
	{Route: Analytics, Pattern: "/analytics", Title: "Analytics", Icon: "bar-chart-2", Access: Protected, InMenu: true},
	{Route: Security, Pattern: "/security", Title: "Security", Icon: "shield", Access: Protected, InMenu: true},
	{Route: Settings, Pattern: "/settings", Title: "Settings", Icon: "settings", Access: Protected, InMenu: true},
	{Route: UserDetail, Pattern: "/users/{id}", Title: "User Details", Access: Protected},
	{Route: Login, Pattern: "/login", Title: "Sign In", Access: Entry, AuthPage: true},
	{Route: Register, Pattern: "/register", Title: "Sign Up", Access: Public, AuthPage: true},
	{Route: ForgotPassword, Pattern: "/forgot-password", Title: "Forgot Password", Access: Public, AuthPage: true},
	{Route: Privacy, Pattern: "/privacy", Title: "Privacy Policy", Access: Public},
	{Route: Terms, Pattern: "/terms", Title: "Terms of Service", Access: Public},
}

var (
	// ErrUnknownRoute is returned by PathFor for routes outside the table.
	ErrUnknownRoute = errors.New("router: unknown route")
	// ErrMissingParam is returned by PathFor when a required parameter is empty.
	ErrMissingParam = errors.New("router: missing route parameter")
)

type table struct {
	mux       *chi.Mux
	byPattern map[string]Info
	byRoute   map[Route]Info
}

var routes = newTable()

func newTable() *table {
	t := &table{
		mux:       chi.NewMux(),
		byPattern: make(map[string]Info, len(pages)+1),
		byRoute:   make(map[Route]Info, len(pages)),
	}
	noop := func(http.ResponseWriter, *http.Request) {}

	for _, p := range pages {
		t.mux.Get(p.Pattern, noop)
		t.byPattern[p.Pattern] = p
		t.byRoute[p.Route] = p
	}
	// the root resolves like /login
	t.mux.Get("/", noop)
	t.byPattern["/"] = t.byRoute[Login]
	return t
}

// Resolution is the outcome of resolving a path.
type Resolution struct {
	Route      Route             `json:"route"`
	Params     map[string]string `json:"params,omitempty"`
	Redirected bool              `json:"redirected"`
}

// Resolve maps path to a page for a visitor who is or is not authenticated.
// Query strings and fragments are ignored. Redirected is set when the
// visitor is sent somewhere other than the page the path names.
func Resolve(path string, authenticated bool) Resolution {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		return Resolution{Route: NotFound}
	}

	rctx := chi.NewRouteContext()
	pattern := routes.mux.Find(rctx, http.MethodGet, path)
	info, ok := routes.byPattern[pattern]
	if !ok {
		return Resolution{Route: NotFound}
	}

	switch {
	case info.Access == Protected && !authenticated:
		return Resolution{Route: Login, Redirected: true}
	case info.Access == Entry && authenticated:
		return Resolution{Route: Dashboard, Redirected: info.Route != Dashboard}
	}

	res := Resolution{Route: info.Route}
	if id := rctx.URLParam(ParamID); id != "" {
		res.Params = map[string]string{ParamID: id}
	}
	return res
}

// PathFor is the inverse of Resolve: it builds the path that shows route
// with params.
func PathFor(route Route, params map[string]string) (string, error) {
	info, ok := routes.byRoute[route]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, route)
	}
	if route != UserDetail {
		return info.Pattern, nil
	}

	id := params[ParamID]
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, ParamID)
	}
	return "/users/" + id, nil
}

// Lookup returns the table entry for route.
func Lookup(route Route) (Info, bool) {
	info, ok := routes.byRoute[route]
	return info, ok
}

// Menu returns the sidebar entries in display order.
func Menu() []Info {
	menu := make([]Info, 0, len(pages))
	for _, p := range pages {
		if p.InMenu {
			menu = append(menu, p)
		}
	}
	return menu
}

// IsEntry reports whether route resolves to the dashboard for authenticated
// visitors.
func IsEntry(route Route) bool {
	info, ok := routes.byRoute[route]
	return ok && info.Access == Entry
}

// IsAuthPage reports whether route is part of the sign-in flow.
func IsAuthPage(route Route) bool {
	info, ok := routes.byRoute[route]
	return ok && info.AuthPage
}

// IsProtected reports whether route requires a session.
func IsProtected(route Route) bool {
	info, ok := routes.byRoute[route]
	return ok && info.Access == Protected
}
