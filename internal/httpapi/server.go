// Package httpapi is the HTTP boundary of the service: setup, login, and
// logout flows, the admin page, and the JSON API over the registry. All admin
// surfaces sit behind session verification; the auth core never sees HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vulnreg/internal/auth"
	"vulnreg/internal/logging"
	"vulnreg/internal/registry"
)

// SessionCookieName is the cookie carrying the opaque session token.
// It is owned by this boundary module; the auth core never references it.
const SessionCookieName = "vulnreg_session"

type Server struct {
	address         string
	shutdownTimeout time.Duration
	auth            *auth.Manager
	registry        *registry.Service
	logger          logging.Logger
}

// NewServer constructs the HTTP boundary around the auth manager and the
// registry service.
func NewServer(address string, shutdownTimeout time.Duration, am *auth.Manager, rs *registry.Service, logger logging.Logger) *Server {
	return &Server{
		address:         address,
		shutdownTimeout: shutdownTimeout,
		auth:            am,
		registry:        rs,
		logger:          logger.With("module", "http_server"),
	}
}

// Handler builds the route table. It is exposed separately from Run so tests
// can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /setup", s.handleSetupPage)
	mux.HandleFunc("POST /setup", s.handleSetup)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /admin", s.requireSession(s.handleAdmin))

	mux.HandleFunc("GET /api/programs", s.requireSession(s.handleListPrograms))
	mux.HandleFunc("POST /api/programs", s.requireSession(s.handleCreateProgram))
	mux.HandleFunc("GET /api/programs/{id}", s.requireSession(s.handleGetProgram))
	mux.HandleFunc("PUT /api/programs/{id}", s.requireSession(s.handleUpdateProgram))
	mux.HandleFunc("DELETE /api/programs/{id}", s.requireSession(s.handleDeleteProgram))
	mux.HandleFunc("GET /api/programs/{id}/vulns", s.requireSession(s.handleListVulnerabilities))
	mux.HandleFunc("POST /api/programs/{id}/vulns", s.requireSession(s.handleCreateVulnerability))
	mux.HandleFunc("PUT /api/vulns/{id}", s.requireSession(s.handleUpdateVulnerability))
	mux.HandleFunc("DELETE /api/vulns/{id}", s.requireSession(s.handleDeleteVulnerability))
	mux.HandleFunc("GET /api/search", s.requireSession(s.handleSearch))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
