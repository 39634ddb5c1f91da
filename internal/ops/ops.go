package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/bitext/internal/db"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// Pagination limits
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// normalizePage clamps limit and offset.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// window returns the bounds of rows [offset, offset+limit) within total rows.
func window(total, limit, offset int) (int, int, Pagination) {
	limit, offset = normalizePage(limit, offset)
	start := min(offset, total)
	end := min(start+limit, total)
	return start, end, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

// ResolveProject finds a project by ID, falling back to its name.
func ResolveProject(ctx context.Context, q db.Querier, ref string) (*model.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NewInvalidRequest("project is required")
	}
	p, err := db.GetProject(ctx, q, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	return db.GetProjectByName(ctx, q, ref)
}

// parseLanguage normalizes and validates a language code.
func parseLanguage(field, raw string) (model.Language, error) {
	lang := model.NormalizeLanguage(raw)
	if lang == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	if !lang.Valid() {
		return "", errors.NewInvalidRequest(field + " is not a valid language code: " + raw)
	}
	return lang, nil
}
