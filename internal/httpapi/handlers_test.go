package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"vulnreg/internal/auth"
	"vulnreg/internal/logging"
	"vulnreg/internal/registry"
	"vulnreg/internal/registry/models"
	"vulnreg/internal/registry/repositories/repomanager"
)

const testPassword = "correct-horse-battery"

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type serverFixture struct {
	handler http.Handler
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()

	store := auth.NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"), logger)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost, logger)
	issuer := auth.NewSessionIssuer(logger)
	am, err := auth.NewManager(ctx, store, hasher, issuer, logger)
	require.NoError(t, err)

	db, err := registry.InitDatabase(ctx, filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	rs := registry.NewService(db, repomanager.NewSQLiteRepositoryManager(), logger)

	srv := NewServer(":0", time.Second, am, rs, logger)
	return &serverFixture{handler: srv.Handler()}
}

func (f *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func formRequest(path, password string) *http.Request {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// setupAndLogin walks the first-run flow and returns the session cookie.
func setupAndLogin(t *testing.T, f *serverFixture) *http.Cookie {
	t.Helper()

	w := f.do(formRequest("/setup", testPassword))
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = f.do(formRequest("/login", testPassword))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/admin", w.Header().Get("Location"))

	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set on login")
	return nil
}

func TestRouting_Unconfigured(t *testing.T) {
	f := newTestServer(t)

	for _, path := range []string{"/", "/login"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := f.do(req)
		assert.Equal(t, http.StatusSeeOther, w.Code, "GET %s", path)
		assert.Equal(t, "/setup", w.Header().Get("Location"), "GET %s", path)
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/setup", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Initial setup")
}

func TestSetup_Validation(t *testing.T) {
	f := newTestServer(t)

	w := f.do(formRequest("/setup", "short"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least 12 characters")

	w = f.do(formRequest("/setup", testPassword))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// Second setup is rejected with a specific reason.
	w = f.do(formRequest("/setup", "another-long-password"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already configured")

	// Once configured, the setup page redirects to login.
	w = f.do(httptest.NewRequest(http.MethodGet, "/setup", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLogin_InvalidPassword(t *testing.T) {
	f := newTestServer(t)
	require.Equal(t, http.StatusSeeOther, f.do(formRequest("/setup", testPassword)).Code)

	w := f.do(formRequest("/login", "wrong-password-123"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid password")
	assert.Empty(t, w.Result().Cookies())
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	f := newTestServer(t)
	cookie := setupAndLogin(t, f)

	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)
	assert.False(t, cookie.Secure, "secure flag is conditional on TLS")
}

func TestAdmin_RequiresSession(t *testing.T) {
	f := newTestServer(t)
	cookie := setupAndLogin(t, f)

	w := f.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tampered" + cookie.Value})
	w = f.do(req)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	w = f.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Registry admin")
}

func TestAPI_RequiresSession(t *testing.T) {
	f := newTestServer(t)
	setupAndLogin(t, f)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/programs", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newTestServer(t)
	cookie := setupAndLogin(t, f)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	w := f.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 1, "cookie must be expired client-side")
}

func jsonRequest(t *testing.T, method, path string, body any, cookie *http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	return req
}

func TestAPI_ProgramAndVulnerabilityFlow(t *testing.T) {
	f := newTestServer(t)
	cookie := setupAndLogin(t, f)

	// Create a program.
	w := f.do(jsonRequest(t, http.MethodPost, "/api/programs",
		models.Program{Name: "Acme Router", Vendor: "Acme"}, cookie))
	require.Equal(t, http.StatusCreated, w.Code)
	var program models.Program
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &program))
	require.NotEmpty(t, program.ID)

	// Validation errors map to 400.
	w = f.do(jsonRequest(t, http.MethodPost, "/api/programs", models.Program{}, cookie))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Record a vulnerability under it.
	w = f.do(jsonRequest(t, http.MethodPost, "/api/programs/"+program.ID+"/vulns",
		models.Vulnerability{Title: "Auth bypass", Severity: models.SeverityCritical}, cookie))
	require.Equal(t, http.StatusCreated, w.Code)
	var vuln models.Vulnerability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vuln))
	assert.Equal(t, program.ID, vuln.ProgramID)
	assert.Equal(t, models.StatusOpen, vuln.Status)

	// Search finds both.
	w = f.do(jsonRequest(t, http.MethodGet, "/api/search?q=acme", nil, cookie))
	require.Equal(t, http.StatusOK, w.Code)
	var res registry.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Programs, 1)

	// Resolve the vulnerability.
	vuln.Status = models.StatusResolved
	w = f.do(jsonRequest(t, http.MethodPut, "/api/vulns/"+vuln.ID, vuln, cookie))
	require.Equal(t, http.StatusOK, w.Code)

	// Delete the program; its vulnerabilities go with it.
	w = f.do(jsonRequest(t, http.MethodDelete, "/api/programs/"+program.ID, nil, cookie))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(jsonRequest(t, http.MethodGet, "/api/programs/"+program.ID, nil, cookie))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(jsonRequest(t, http.MethodGet, "/api/programs/"+program.ID+"/vulns", nil, cookie))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null\n", w.Body.String())
}

func TestIndex_RoutesBySessionState(t *testing.T) {
	f := newTestServer(t)
	cookie := setupAndLogin(t, f)

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "/login", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = f.do(req)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
}
