package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpalmerr/halolight/internal/router"
	"github.com/jpalmerr/halolight/internal/tabs"
	"github.com/jpalmerr/halolight/internal/theme"
	"github.com/jpalmerr/halolight/internal/uisettings"
	"github.com/jpalmerr/halolight/internal/widgets"
)

type themeForm struct {
	Theme string `json:"theme" validate:"required,oneof=light dark auto"`
}

type systemPreferenceForm struct {
	PrefersDark *bool `json:"prefersDark" validate:"required"`
}

type skinForm struct {
	Skin string `json:"skin" validate:"required"`
}

type settingToggleForm struct {
	Field string `json:"field" validate:"required"`
	Value *bool  `json:"value" validate:"required"`
}

type tabForm struct {
	ID       string `json:"id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Path     string `json:"path" validate:"required,startswith=/"`
	Closable *bool  `json:"closable,omitempty"`
}

type tabIDForm struct {
	ID string `json:"id" validate:"required"`
}

type layoutForm struct {
	Layouts []widgets.Layout `json:"layouts" validate:"required,min=1"`
}

// navigateForm is either {path} or {route, params}.
type navigateForm struct {
	Path   string            `json:"path" validate:"required_without=Route"`
	Route  string            `json:"route" validate:"required_without=Path"`
	Params map[string]string `json:"params,omitempty"`
}

type sidebarForm struct {
	Collapsed *bool `json:"collapsed" validate:"required"`
}

// --- theme ---

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.deps.Theme.Get())
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var f themeForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.deps.Theme.SetTheme(r.Context(), theme.Theme(f.Theme)); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, s.deps.Theme.Get())
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	s.deps.Theme.ToggleTheme(r.Context())
	writeOK(w, s.deps.Theme.Get())
}

// handleSystemPreference records the client's prefers-color-scheme.
func (s *Server) handleSystemPreference(w http.ResponseWriter, r *http.Request) {
	var f systemPreferenceForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	s.deps.Theme.SetSystemPreference(*f.PrefersDark)
	writeOK(w, s.deps.Theme.Get())
}

// --- ui settings ---

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.deps.Settings.Get())
}

func (s *Server) handleSetSkin(w http.ResponseWriter, r *http.Request) {
	var f skinForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.deps.Settings.SetSkin(r.Context(), uisettings.Skin(f.Skin)); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, s.deps.Settings.Get())
}

func (s *Server) handleToggleSetting(w http.ResponseWriter, r *http.Request) {
	var f settingToggleForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.deps.Settings.Toggle(r.Context(), uisettings.Field(f.Field), *f.Value); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, s.deps.Settings.Get())
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	s.deps.Settings.Reset(r.Context())
	writeOK(w, s.deps.Settings.Get())
}

func (s *Server) handleMenu(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, router.Menu())
}

// --- tabs ---

func (s *Server) handleGetTabs(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.deps.Tabs.Get())
}

func (s *Server) handleAddTab(w http.ResponseWriter, r *http.Request) {
	var f tabForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	s.deps.Tabs.Add(r.Context(), tabs.Tab{ID: f.ID, Title: f.Title, Path: f.Path, Closable: f.Closable})
	writeOK(w, s.deps.Tabs.Get())
}

func (s *Server) handleSetActiveTab(w http.ResponseWriter, r *http.Request) {
	var f tabIDForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	s.deps.Tabs.SetActive(r.Context(), f.ID)
	writeOK(w, s.deps.Tabs.Get())
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	s.deps.Tabs.Close(r.Context(), chi.URLParam(r, "id"))
	writeOK(w, s.deps.Tabs.Get())
}

func (s *Server) handleCloseOtherTabs(w http.ResponseWriter, r *http.Request) {
	var f tabIDForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	s.deps.Tabs.CloseOthers(r.Context(), f.ID)
	writeOK(w, s.deps.Tabs.Get())
}

func (s *Server) handleCloseAllTabs(w http.ResponseWriter, r *http.Request) {
	s.deps.Tabs.CloseAll(r.Context())
	writeOK(w, s.deps.Tabs.Get())
}

// --- dashboard layout ---

func (s *Server) handleGetLayout(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.deps.Layout.Get())
}

func (s *Server) handleSetLayout(w http.ResponseWriter, r *http.Request) {
	var f layoutForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.deps.Layout.SetLayouts(r.Context(), f.Layouts); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, s.deps.Layout.Get())
}

func (s *Server) handleResetLayout(w http.ResponseWriter, r *http.Request) {
	s.deps.Layout.Reset(r.Context())
	writeOK(w, s.deps.Layout.Get())
}

// --- shell ---

func (s *Server) handleGetShell(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, s.deps.Shell.Get())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var f navigateForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}

	if f.Path != "" {
		s.deps.Shell.Navigate(r.Context(), f.Path)
	} else if _, err := s.deps.Shell.NavigateTo(r.Context(), router.Route(f.Route), f.Params); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, s.deps.Shell.Get())
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.deps.Shell.Back(r.Context()); !ok {
		writeError(w, http.StatusConflict, "no earlier history entry")
		return
	}
	writeOK(w, s.deps.Shell.Get())
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.deps.Shell.Forward(r.Context()); !ok {
		writeError(w, http.StatusConflict, "no later history entry")
		return
	}
	writeOK(w, s.deps.Shell.Get())
}

func (s *Server) handleSetSidebar(w http.ResponseWriter, r *http.Request) {
	var f sidebarForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	s.deps.Shell.SetSidebarCollapsed(r.Context(), *f.Collapsed)
	writeOK(w, s.deps.Shell.Get())
}

func (s *Server) handleToggleSidebar(w http.ResponseWriter, r *http.Request) {
	s.deps.Shell.ToggleSidebar(r.Context())
	writeOK(w, s.deps.Shell.Get())
}
