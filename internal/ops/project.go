package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/bitext/internal/db"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// CreateProjectInput contains parameters for CreateProject.
type CreateProjectInput struct {
	Name       string // required, unique after normalization
	SourceLang string // required
	TargetLang string // required, must differ from SourceLang
}

// CreateProject stores a new project.
func CreateProject(ctx context.Context, database *sql.DB, input CreateProjectInput) (*model.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	src, err := parseLanguage("source_lang", input.SourceLang)
	if err != nil {
		return nil, err
	}
	tgt, err := parseLanguage("target_lang", input.TargetLang)
	if err != nil {
		return nil, err
	}
	if src == tgt {
		return nil, errors.NewInvalidRequest("source_lang and target_lang must differ")
	}

	p := &model.Project{Name: name, SourceLang: src, TargetLang: tgt}
	if err := db.InsertProject(ctx, database, p); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict("a project named " + name + " already exists")
		}
		return nil, err
	}
	return p, nil
}

// ListProjectsOutput contains the result of ListProjects.
type ListProjectsOutput struct {
	Items []model.Project `json:"items"`
	Total int             `json:"total"`
}

// ListProjects returns every project, oldest first.
func ListProjects(ctx context.Context, database *sql.DB) (*ListProjectsOutput, error) {
	projects, err := db.ListProjects(ctx, database)
	if err != nil {
		return nil, err
	}
	return &ListProjectsOutput{Items: projects, Total: len(projects)}, nil
}

// DeleteProjectOutput contains the result of DeleteProject.
type DeleteProjectOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteProject deletes a project with its file pairs, segments and rules.
func DeleteProject(ctx context.Context, database *sql.DB, ref string) (*DeleteProjectOutput, error) {
	p, err := ResolveProject(ctx, database, ref)
	if err != nil {
		return nil, err
	}
	if err := db.DeleteProject(ctx, database, p.ID); err != nil {
		return nil, err
	}
	return &DeleteProjectOutput{Deleted: true, ID: p.ID}, nil
}
