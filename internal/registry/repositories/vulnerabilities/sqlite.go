package vulnerabilities

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

const columns = `id, program_id, title, severity, status, description, reference, created_at, updated_at`

func (r *SQLiteRepository) Create(ctx context.Context, v *models.Vulnerability) error {
	query := `INSERT INTO vulnerabilities (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.ProgramID, v.Title, v.Severity, v.Status, v.Description, v.Reference,
		v.CreatedAt.UnixMilli(), v.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert vulnerability: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Vulnerability, error) {
	query := `SELECT ` + columns + ` FROM vulnerabilities WHERE id = ?`
	v, err := scanVulnerability(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select vulnerability: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) ListByProgram(ctx context.Context, programID string) ([]models.Vulnerability, error) {
	query := `SELECT ` + columns + ` FROM vulnerabilities WHERE program_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to select vulnerabilities: %w", err)
	}
	defer rows.Close()
	return collectVulnerabilities(rows)
}

func (r *SQLiteRepository) Update(ctx context.Context, v *models.Vulnerability) error {
	query := `UPDATE vulnerabilities SET title = ?, severity = ?, status = ?, description = ?,
			reference = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		v.Title, v.Severity, v.Status, v.Description, v.Reference, v.UpdatedAt.UnixMilli(), v.ID)
	if err != nil {
		return fmt.Errorf("failed to update vulnerability: %w", err)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM vulnerabilities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vulnerability: %w", err)
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

// DeleteByProgram removes all vulnerabilities belonging to a program.
// Deleting zero rows is not an error.
func (r *SQLiteRepository) DeleteByProgram(ctx context.Context, programID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM vulnerabilities WHERE program_id = ?`, programID)
	if err != nil {
		return fmt.Errorf("failed to delete program vulnerabilities: %w", err)
	}
	return nil
}

// Search matches the query case-insensitively as a substring of the
// vulnerability title or description.
func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]models.Vulnerability, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	q := `SELECT ` + columns + ` FROM vulnerabilities
			WHERE lower(title) LIKE ? OR lower(description) LIKE ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search vulnerabilities: %w", err)
	}
	defer rows.Close()
	return collectVulnerabilities(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVulnerability(row rowScanner) (*models.Vulnerability, error) {
	var v models.Vulnerability
	var created, updated int64
	if err := row.Scan(&v.ID, &v.ProgramID, &v.Title, &v.Severity, &v.Status,
		&v.Description, &v.Reference, &created, &updated); err != nil {
		return nil, err
	}
	v.CreatedAt = time.UnixMilli(created).UTC()
	v.UpdatedAt = time.UnixMilli(updated).UTC()
	return &v, nil
}

func collectVulnerabilities(rows *sql.Rows) ([]models.Vulnerability, error) {
	var result []models.Vulnerability
	for rows.Next() {
		v, err := scanVulnerability(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
