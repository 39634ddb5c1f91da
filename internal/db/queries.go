package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.Error{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// NewID generates a new ULID. ulid.Make uses a process-wide monotonic
// entropy source, so IDs created in the same millisecond still sort in
// creation order.
func NewID() string {
	return ulid.Make().String()
}

// InsertProject stores a new project. Assigns ID and CreatedAt if unset.
func InsertProject(ctx context.Context, q Querier, p *model.Project) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO projects (id, name, name_norm, source_lang, target_lang, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		p.ID, p.Name, model.NormalizeName(p.Name), string(p.SourceLang), string(p.TargetLang), p.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func GetProject(ctx context.Context, q Querier, id string) (*model.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, source_lang, target_lang, created_at
		FROM projects WHERE id = ?
	`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("project", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// GetProjectByName retrieves a project by its normalized name.
func GetProjectByName(ctx context.Context, q Querier, name string) (*model.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, source_lang, target_lang, created_at
		FROM projects WHERE name_norm = ?
	`, model.NormalizeName(name))
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("project", name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// ListProjects returns all projects, oldest first.
func ListProjects(ctx context.Context, q Querier) ([]model.Project, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, source_lang, target_lang, created_at
		FROM projects ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		var (
			p          model.Project
			sourceLang string
			targetLang string
		)
		if err := rows.Scan(&p.ID, &p.Name, &sourceLang, &targetLang, &p.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		p.SourceLang = model.Language(sourceLang)
		p.TargetLang = model.Language(targetLang)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return projects, nil
}

// DeleteProject permanently deletes a project. File pairs, segments, and
// project-scoped rules cascade.
func DeleteProject(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectRows(result, "project", id)
}

// scanProject scans a single row into a Project.
func scanProject(row *sql.Row) (*model.Project, error) {
	var (
		p          model.Project
		sourceLang string
		targetLang string
	)
	if err := row.Scan(&p.ID, &p.Name, &sourceLang, &targetLang, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.SourceLang = model.Language(sourceLang)
	p.TargetLang = model.Language(targetLang)
	return &p, nil
}

// expectRows returns NOT_FOUND when a statement touched no rows.
func expectRows(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(kind, id)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
