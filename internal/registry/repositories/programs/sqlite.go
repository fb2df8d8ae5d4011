package programs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vulnreg/internal/common"
	"vulnreg/internal/dbx"
	"vulnreg/internal/registry/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Timestamps are stored as Unix milliseconds to keep scanning portable
// across drivers.

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Program) error {
	query := `INSERT INTO programs (id, name, vendor, url, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Vendor, p.URL, p.Notes, p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert program: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Program, error) {
	query := `SELECT id, name, vendor, url, notes, created_at, updated_at FROM programs WHERE id = ?`
	p, err := scanProgram(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select program: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Program, error) {
	query := `SELECT id, name, vendor, url, notes, created_at, updated_at FROM programs ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select programs: %w", err)
	}
	defer rows.Close()
	return collectPrograms(rows)
}

func (r *SQLiteRepository) Update(ctx context.Context, p *models.Program) error {
	query := `UPDATE programs SET name = ?, vendor = ?, url = ?, notes = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.Name, p.Vendor, p.URL, p.Notes, p.UpdatedAt.UnixMilli(), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update program: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete program: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Search matches the query case-insensitively as a substring of the program
// name or vendor.
func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]models.Program, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	q := `SELECT id, name, vendor, url, notes, created_at, updated_at FROM programs
			WHERE lower(name) LIKE ? OR lower(vendor) LIKE ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search programs: %w", err)
	}
	defer rows.Close()
	return collectPrograms(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (*models.Program, error) {
	var p models.Program
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &p.Vendor, &p.URL, &p.Notes, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return &p, nil
}

func collectPrograms(rows *sql.Rows) ([]models.Program, error) {
	var result []models.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
