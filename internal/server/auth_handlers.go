package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/halolight/internal/auth"
	"github.com/jpalmerr/halolight/internal/mockapi"
	"github.com/jpalmerr/halolight/internal/model"
)

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type registerForm struct {
	Name            string `json:"name" validate:"required,min=2,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type switchForm struct {
	AccountID string `json:"accountId" validate:"required"`
}

type accountForm struct {
	ID    string `json:"id" validate:"omitempty,max=64"`
	Name  string `json:"name" validate:"required,min=2,max=64"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin manager editor viewer"`
}

func (f accountForm) user(now time.Time) model.User {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	role := model.Role(f.Role)
	if role == "" {
		role = model.RoleViewer
	}
	return model.User{
		ID:        id,
		Name:      f.Name,
		Email:     f.Email,
		Avatar:    model.AvatarURL(f.Email),
		Role:      role,
		Status:    model.UserActive,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}

// publicSession hides the token. The session endpoint and the streams carry
// session changes; only the sign-in responses hand out the token.
func publicSession(st auth.State) auth.State {
	st.Token = ""
	return st
}

// signedIn answers with the session user and its token.
func (s *Server) signedIn(w http.ResponseWriter) {
	st := s.deps.Auth.Get()
	if !st.IsAuthenticated {
		writeError(w, http.StatusConflict, "session ended before the response was written")
		return
	}
	writeOK(w, mockapi.LoginResult{User: *st.User, Token: st.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var f loginForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}

	ok := s.deps.Auth.Login(r.Context(), f.Email, f.Password)
	s.metrics.LoginAttempt(ok)
	if !ok {
		if err := r.Context().Err(); err != nil {
			writeErr(w, err)
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	s.signedIn(w)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var f registerForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}

	if !s.deps.Auth.Register(r.Context(), f.Name, f.Email, f.Password) {
		if err := r.Context().Err(); err != nil {
			writeErr(w, err)
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	s.signedIn(w)
}

// handleIssueToken runs the stateless mock API login. It checks the demo
// credentials and mints a token without touching the console session.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var f loginForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}
	resp, err := s.deps.API.Login(r.Context(), f.Email, f.Password)
	relay(w, resp, err)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, publicSession(s.deps.Auth.Get()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.Logout(r.Context())
	writeOK(w, nil)
}

func (s *Server) handleSwitchAccount(w http.ResponseWriter, r *http.Request) {
	var f switchForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}

	if !s.deps.Auth.SwitchAccount(r.Context(), f.AccountID) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	s.signedIn(w)
}

// handleAddAccount makes another account available to the session's
// account switcher.
func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var f accountForm
	if err := decode(r, &f); err != nil {
		writeErr(w, err)
		return
	}

	user := f.user(time.Now())
	if !s.deps.Auth.AddAccount(user) {
		writeError(w, http.StatusConflict, "account already added")
		return
	}
	writeOK(w, user)
}
