// Package programs contains the repository for registry programs.
package programs

import (
	"context"

	"vulnreg/internal/registry/models"
)

// Repository is the persistence contract for programs.
type Repository interface {
	Create(ctx context.Context, p *models.Program) error
	GetByID(ctx context.Context, id string) (*models.Program, error)
	List(ctx context.Context) ([]models.Program, error)
	Update(ctx context.Context, p *models.Program) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]models.Program, error)
}
