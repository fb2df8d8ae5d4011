package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"vulnreg/internal/common"
	"vulnreg/internal/logging"
)

// credentialFileMode restricts the credential file to the owning account.
const credentialFileMode = 0o600

// CredentialRecord is the persisted credential state. Once written,
// PasswordHash and SessionSecret are both non-empty and the record is the
// single source of truth for "is the system configured".
type CredentialRecord struct {
	PasswordHash  string     `json:"password_hash"`
	SessionSecret string     `json:"session_secret"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// CredentialStore reads and writes the credential file.
type CredentialStore struct {
	path   string
	logger logging.Logger
}

// NewCredentialStore returns a store bound to the given file path.
func NewCredentialStore(path string, logger logging.Logger) *CredentialStore {
	return &CredentialStore{path: path, logger: logger.With("module", "credstore")}
}

// Path returns the credential file location.
func (s *CredentialStore) Path() string { return s.path }

// Load reads the credential file. A missing file is not an error: it returns
// (nil, nil), meaning the system has never been configured. A malformed file
// or one missing required fields is also reported as unconfigured, with a
// warning logged, so an operator can distinguish corruption from first run.
func (s *CredentialStore) Load(ctx context.Context) (*CredentialRecord, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", common.ErrPersistence, s.path, err)
	}

	rec := &CredentialRecord{}
	if err := json.Unmarshal(b, rec); err != nil {
		s.logger.Warn(ctx, "credential file is malformed, treating as unconfigured", "path", s.path)
		return nil, nil
	}
	if rec.PasswordHash == "" || rec.SessionSecret == "" {
		s.logger.Warn(ctx, "credential file is missing required fields, treating as unconfigured", "path", s.path)
		return nil, nil
	}
	return rec, nil
}

// Save serializes the record and replaces the credential file, then restricts
// access to the owning account. A failed permission restriction does not roll
// back the write: the save is reported as successful with a warning logged.
func (s *CredentialStore) Save(ctx context.Context, rec *CredentialRecord) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: serializing credentials: %v", common.ErrPersistence, err)
	}

	if err := os.WriteFile(s.path, b, credentialFileMode); err != nil {
		return fmt.Errorf("%w: writing %s: %v", common.ErrPersistence, s.path, err)
	}

	// WriteFile applies the mode only on create; chmod covers the case where
	// the file already existed with laxer permissions.
	if err := os.Chmod(s.path, credentialFileMode); err != nil {
		s.logger.Warn(ctx, "failed to restrict credential file permissions", "path", s.path, "error", err)
	}
	return nil
}

// Update applies mutate to the current record, stamps updated_at, and saves
// the result. CreatedAt is preserved. Returns common.ErrNotConfigured when no
// record exists.
func (s *CredentialStore) Update(ctx context.Context, mutate func(*CredentialRecord)) (*CredentialRecord, error) {
	rec, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.ErrNotConfigured
	}

	mutate(rec)
	now := time.Now().UTC()
	rec.UpdatedAt = &now

	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
