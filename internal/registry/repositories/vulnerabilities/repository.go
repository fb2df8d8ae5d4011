// Package vulnerabilities contains the repository for recorded vulnerabilities.
package vulnerabilities

import (
	"context"

	"vulnreg/internal/registry/models"
)

// Repository is the persistence contract for vulnerabilities.
type Repository interface {
	Create(ctx context.Context, v *models.Vulnerability) error
	GetByID(ctx context.Context, id string) (*models.Vulnerability, error)
	ListByProgram(ctx context.Context, programID string) ([]models.Vulnerability, error)
	Update(ctx context.Context, v *models.Vulnerability) error
	Delete(ctx context.Context, id string) error
	DeleteByProgram(ctx context.Context, programID string) error
	Search(ctx context.Context, query string) ([]models.Vulnerability, error)
}
