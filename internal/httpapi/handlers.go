package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"vulnreg/internal/auth"
	"vulnreg/internal/common"
	"vulnreg/internal/registry/models"
)

// handleIndex routes first-time users to setup, unauthenticated users to
// login, and everyone else to the admin page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.auth.IsConfigured() {
		http.Redirect(w, r, "/setup", http.StatusSeeOther)
		return
	}

	var token string
	if c, err := r.Cookie(SessionCookieName); err == nil {
		token = c.Value
	}
	if s.auth.VerifySession(r.Context(), token) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleSetupPage(w http.ResponseWriter, r *http.Request) {
	if s.auth.IsConfigured() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.servePage(w, "setup.html")
}

// handleSetup performs the one-time credential bootstrap. Unlike login
// failures, setup validation failures report the specific reason.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	password := r.FormValue("password")

	err := s.auth.Setup(r.Context(), password)
	switch {
	case errors.Is(err, common.ErrAlreadyConfigured):
		http.Error(w, "already configured", http.StatusConflict)
	case errors.Is(err, common.ErrWeakPassword):
		http.Error(w, "password must be at least 12 characters", http.StatusBadRequest)
	case err != nil:
		s.logger.Error(r.Context(), "setup failed", "error", err)
		http.Error(w, "setup failed", http.StatusInternalServerError)
	default:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if !s.auth.IsConfigured() {
		http.Redirect(w, r, "/setup", http.StatusSeeOther)
		return
	}
	s.servePage(w, "login.html")
}

// handleLogin verifies the password and establishes the session cookie.
// Failures carry no detail beyond "invalid password".
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.IsConfigured() {
		http.Redirect(w, r, "/setup", http.StatusSeeOther)
		return
	}

	if !s.auth.VerifyPassword(r.Context(), r.FormValue("password")) {
		http.Error(w, "invalid password", http.StatusUnauthorized)
		return
	}

	token, err := s.auth.CreateSession(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "session creation failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, s.sessionCookie(r, token, int(auth.SessionTTL.Seconds())))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleLogout clears the client-side cookie. Sessions are stateless, so
// this is the only logout mechanism; the token itself stays valid until it
// expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.sessionCookie(r, "", -1))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, "admin.html")
}

func (s *Server) sessionCookie(r *http.Request, token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	}
}

// --- JSON API over the registry ---

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.ListPrograms(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var p models.Program
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.registry.CreateProgram(r.Context(), &p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.GetProgram(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProgram(w http.ResponseWriter, r *http.Request) {
	var p models.Program
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.ID = r.PathValue("id")
	updated, err := s.registry.UpdateProgram(r.Context(), &p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteProgram(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVulnerabilities(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.ListVulnerabilities(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateVulnerability(w http.ResponseWriter, r *http.Request) {
	var v models.Vulnerability
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v.ProgramID = r.PathValue("id")
	created, err := s.registry.CreateVulnerability(r.Context(), &v)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateVulnerability(w http.ResponseWriter, r *http.Request) {
	var v models.Vulnerability
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v.ID = r.PathValue("id")
	updated, err := s.registry.UpdateVulnerability(r.Context(), &v)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteVulnerability(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.DeleteVulnerability(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	res, err := s.registry.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps service errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
