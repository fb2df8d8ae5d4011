package auth

import (
	"context"
	"sync"
	"time"

	"vulnreg/internal/common"
	"vulnreg/internal/logging"
)

const (
	// MinPasswordLength is the minimum accepted administrator password length.
	MinPasswordLength = 12

	// SessionTTL is the fixed lifetime of issued session tokens.
	SessionTTL = 24 * time.Hour

	// sessionSecretBytes is the size of the generated session-signing secret.
	sessionSecretBytes = 32
)

// Manager orchestrates the credential store, password hasher, and session
// issuer into the public authentication operations. A single instance serves
// all concurrent requests: read operations work on the cached snapshot under
// a read lock, Setup and ChangePassword serialize under the write lock so
// the check-then-write sequence cannot race.
type Manager struct {
	store  *CredentialStore
	hasher *PasswordHasher
	issuer *SessionIssuer
	logger logging.Logger

	mu            sync.RWMutex
	passwordHash  string
	sessionSecret string
	configured    bool
}

// NewManager builds a Manager and loads the credential record from store.
// A missing record is not an error: the manager starts unconfigured and
// waits for Setup.
func NewManager(ctx context.Context, store *CredentialStore, hasher *PasswordHasher, issuer *SessionIssuer, logger logging.Logger) (*Manager, error) {
	m := &Manager{
		store:  store,
		hasher: hasher,
		issuer: issuer,
		logger: logger.With("module", "auth"),
	}

	rec, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		m.logger.Info(ctx, "no credentials on file, waiting for initial setup", "path", store.Path())
		return m, nil
	}

	m.passwordHash = rec.PasswordHash
	m.sessionSecret = rec.SessionSecret
	m.configured = true
	return m, nil
}

// IsConfigured reports whether the initial setup has completed.
func (m *Manager) IsConfigured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configured
}

// Setup performs the one-time initial configuration: it validates the
// password, hashes it, generates a fresh session secret, and persists the
// credential record. Returns common.ErrAlreadyConfigured if setup already
// ran and common.ErrWeakPassword if the password is too short; neither
// writes anything. A persistence failure leaves the manager unconfigured.
func (m *Manager) Setup(ctx context.Context, password string) error {
	if len(password) < MinPasswordLength {
		return common.ErrWeakPassword
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.configured {
		m.logger.Warn(ctx, "setup rejected, already configured")
		return common.ErrAlreadyConfigured
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return err
	}
	secret, err := common.MakeRandHexString(sessionSecretBytes)
	if err != nil {
		return err
	}

	rec := &CredentialRecord{
		PasswordHash:  hash,
		SessionSecret: secret,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Error(ctx, "setup failed to persist credentials", "error", err)
		return err
	}

	m.passwordHash = hash
	m.sessionSecret = secret
	m.configured = true

	m.logger.Info(ctx, "initial setup completed")
	return nil
}

// VerifyPassword reports whether password matches the stored hash. It is
// unconditionally false while unconfigured.
func (m *Manager) VerifyPassword(ctx context.Context, password string) bool {
	m.mu.RLock()
	hash, configured := m.passwordHash, m.configured
	m.mu.RUnlock()

	if !configured {
		return false
	}
	ok := m.hasher.Verify(ctx, password, hash)
	if !ok {
		m.logger.Warn(ctx, "password verification failed")
	}
	return ok
}

// ChangePassword replaces the stored password hash after verifying the old
// password. The session secret is left untouched, so outstanding sessions
// stay valid: password material and session material are deliberately
// decoupled. A persistence failure leaves the previous hash in effect.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return common.ErrWeakPassword
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.configured {
		return common.ErrNotConfigured
	}
	if !m.hasher.Verify(ctx, oldPassword, m.passwordHash) {
		m.logger.Warn(ctx, "password change rejected, old password did not verify")
		return common.ErrInvalidPassword
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if _, err := m.store.Update(ctx, func(rec *CredentialRecord) {
		rec.PasswordHash = hash
	}); err != nil {
		m.logger.Error(ctx, "password change failed to persist", "error", err)
		return err
	}

	m.passwordHash = hash
	m.logger.Info(ctx, "password changed")
	return nil
}

// CreateSession mints a session token with the fixed TTL. It returns
// common.ErrNotConfigured while unconfigured; the boundary layer is expected
// to have checked IsConfigured first.
func (m *Manager) CreateSession(ctx context.Context) (string, error) {
	m.mu.RLock()
	secret, configured := m.sessionSecret, m.configured
	m.mu.RUnlock()

	if !configured {
		return "", common.ErrNotConfigured
	}
	return m.issuer.Mint([]byte(secret), SessionTTL)
}

// VerifySession reports whether token is a currently valid session token.
// Absent or empty tokens, tampered tokens, and expired tokens all yield
// false with no further detail.
func (m *Manager) VerifySession(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	m.mu.RLock()
	secret, configured := m.sessionSecret, m.configured
	m.mu.RUnlock()

	if !configured {
		return false
	}
	ok := m.issuer.Verify([]byte(secret), token)
	if !ok {
		m.logger.Warn(ctx, "session verification failed")
	}
	return ok
}
