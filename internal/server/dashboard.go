package server

import (
	"html"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// handleDashboard serves the console page. Every console location gets the
// same page; the client asks /api/shell where it is.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// static-looking paths are not console locations
	if path.Ext(r.URL.Path) != "" {
		http.NotFound(w, r)
		return
	}

	if s.deps.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.deps.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(s.title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}
