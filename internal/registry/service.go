package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vulnreg/internal/common"
	"vulnreg/internal/dbx"
	"vulnreg/internal/logging"
	"vulnreg/internal/registry/models"
	"vulnreg/internal/registry/repositories/repomanager"
)

// SearchResult bundles matches from both catalog tables.
type SearchResult struct {
	Programs        []models.Program       `json:"programs"`
	Vulnerabilities []models.Vulnerability `json:"vulnerabilities"`
}

// Service provides the registry's business operations on top of the
// repositories. It owns input validation and the cross-entity transaction
// used when deleting a program.
type Service struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

// NewService constructs a Service using the given database handle and
// repository manager.
func NewService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *Service {
	return &Service{db: db, rm: rm, logger: logger.With("module", "registry")}
}

// CreateProgram validates and stores a new program, assigning its id and
// timestamps.
func (s *Service) CreateProgram(ctx context.Context, p *models.Program) (*models.Program, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: program name is required", common.ErrorValidation)
	}

	now := nowMilli()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.rm.Programs(s.db).Create(ctx, p); err != nil {
		return nil, fmt.Errorf("error creating program: %w", err)
	}
	return p, nil
}

// GetProgram returns a program by id, or common.ErrorNotFound.
func (s *Service) GetProgram(ctx context.Context, id string) (*models.Program, error) {
	return s.rm.Programs(s.db).GetByID(ctx, id)
}

// ListPrograms returns all programs ordered by name.
func (s *Service) ListPrograms(ctx context.Context) ([]models.Program, error) {
	return s.rm.Programs(s.db).List(ctx)
}

// UpdateProgram validates and stores changed program fields.
func (s *Service) UpdateProgram(ctx context.Context, p *models.Program) (*models.Program, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: program name is required", common.ErrorValidation)
	}

	p.UpdatedAt = nowMilli()
	if err := s.rm.Programs(s.db).Update(ctx, p); err != nil {
		return nil, err
	}
	return s.rm.Programs(s.db).GetByID(ctx, p.ID)
}

// DeleteProgram removes a program and all of its vulnerabilities in a single
// transaction.
func (s *Service) DeleteProgram(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Vulnerabilities(tx).DeleteByProgram(ctx, id); err != nil {
			return err
		}
		return s.rm.Programs(tx).Delete(ctx, id)
	})
}

// CreateVulnerability validates and stores a new vulnerability under an
// existing program.
func (s *Service) CreateVulnerability(ctx context.Context, v *models.Vulnerability) (*models.Vulnerability, error) {
	if err := validateVulnerability(v); err != nil {
		return nil, err
	}
	if v.Status == "" {
		v.Status = models.StatusOpen
	}
	if !models.KnownStatus(v.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrorValidation, v.Status)
	}

	// The parent program must exist; a dangling reference is a caller error.
	if _, err := s.rm.Programs(s.db).GetByID(ctx, v.ProgramID); err != nil {
		return nil, err
	}

	now := nowMilli()
	v.ID = uuid.NewString()
	v.CreatedAt = now
	v.UpdatedAt = now

	if err := s.rm.Vulnerabilities(s.db).Create(ctx, v); err != nil {
		return nil, fmt.Errorf("error creating vulnerability: %w", err)
	}
	return v, nil
}

// GetVulnerability returns a vulnerability by id, or common.ErrorNotFound.
func (s *Service) GetVulnerability(ctx context.Context, id string) (*models.Vulnerability, error) {
	return s.rm.Vulnerabilities(s.db).GetByID(ctx, id)
}

// ListVulnerabilities returns all vulnerabilities of a program.
func (s *Service) ListVulnerabilities(ctx context.Context, programID string) ([]models.Vulnerability, error) {
	return s.rm.Vulnerabilities(s.db).ListByProgram(ctx, programID)
}

// UpdateVulnerability validates and stores changed vulnerability fields.
func (s *Service) UpdateVulnerability(ctx context.Context, v *models.Vulnerability) (*models.Vulnerability, error) {
	if err := validateVulnerability(v); err != nil {
		return nil, err
	}
	if !models.KnownStatus(v.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrorValidation, v.Status)
	}

	v.UpdatedAt = nowMilli()
	if err := s.rm.Vulnerabilities(s.db).Update(ctx, v); err != nil {
		return nil, err
	}
	return s.rm.Vulnerabilities(s.db).GetByID(ctx, v.ID)
}

// DeleteVulnerability removes a single vulnerability.
func (s *Service) DeleteVulnerability(ctx context.Context, id string) error {
	return s.rm.Vulnerabilities(s.db).Delete(ctx, id)
}

// Search runs a case-insensitive substring search across program names and
// vendors and vulnerability titles and descriptions. An empty query returns
// an empty result.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchResult{}, nil
	}

	progs, err := s.rm.Programs(s.db).Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error searching programs: %w", err)
	}
	vulns, err := s.rm.Vulnerabilities(s.db).Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error searching vulnerabilities: %w", err)
	}
	return &SearchResult{Programs: progs, Vulnerabilities: vulns}, nil
}

func validateVulnerability(v *models.Vulnerability) error {
	if strings.TrimSpace(v.Title) == "" {
		return fmt.Errorf("%w: vulnerability title is required", common.ErrorValidation)
	}
	if !models.KnownSeverity(v.Severity) {
		return fmt.Errorf("%w: unknown severity %q", common.ErrorValidation, v.Severity)
	}
	return nil
}

// nowMilli returns the current UTC time truncated to the millisecond
// precision the repositories persist, so returned models round-trip exactly.
func nowMilli() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
