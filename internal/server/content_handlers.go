package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jpalmerr/halolight/internal/mockapi"
)

// relay writes a mock API result, or the context error that cut it short.
func relay[T any](w http.ResponseWriter, resp mockapi.Response[T], err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	writeResponse(w, resp)
}

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errInvalidBody, name)
	}
	return v, nil
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.API.CurrentUser(r.Context())
	relay(w, resp, err)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeErr(w, err)
		return
	}
	size, err := queryInt(r, "pageSize", mockapi.DefaultPageSize)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp, err := s.deps.API.Users(r.Context(), page, size)
	relay(w, resp, err)
}

func (s *Server) handleRecentUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", mockapi.DefaultRecentLimit)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp, err := s.deps.API.RecentUsers(r.Context(), limit)
	relay(w, resp, err)
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.API.UserByID(r.Context(), chi.URLParam(r, "id"))
	relay(w, resp, err)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.API.DashboardSummary(r.Context())
	relay(w, resp, err)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch chart := chi.URLParam(r, "chart"); chart {
	case "visits":
		resp, err := s.deps.API.VisitsChart(ctx)
		relay(w, resp, err)
	case "sales":
		resp, err := s.deps.API.SalesChart(ctx)
		relay(w, resp, err)
	case "pie":
		resp, err := s.deps.API.PieChart(ctx)
		relay(w, resp, err)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown chart %q", chart))
	}
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.API.Activities(r.Context())
	relay(w, resp, err)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.API.Tasks(r.Context())
	relay(w, resp, err)
}

// handleNotifications returns the live inbox, seeded from the mock API and
// fed by the push source.
func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.deps.Inbox.Get())
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Inbox.MarkRead(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeOK(w, s.deps.Inbox.Get())
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, _ *http.Request) {
	s.deps.Inbox.MarkAllRead()
	writeOK(w, s.deps.Inbox.Get())
}
