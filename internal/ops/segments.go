package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/bitext/internal/db"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// ListFilePairsOutput contains the result of ListFilePairs.
type ListFilePairsOutput struct {
	Project model.Project    `json:"project"`
	Items   []model.FilePair `json:"items"`
	Total   int              `json:"total"`
}

// ListFilePairs returns a project's file pairs, oldest first.
func ListFilePairs(ctx context.Context, database *sql.DB, projectRef string) (*ListFilePairsOutput, error) {
	p, err := ResolveProject(ctx, database, projectRef)
	if err != nil {
		return nil, err
	}
	pairs, err := db.ListFilePairs(ctx, database, p.ID)
	if err != nil {
		return nil, err
	}
	return &ListFilePairsOutput{Project: *p, Items: pairs, Total: len(pairs)}, nil
}

// DeleteFilePair deletes a file pair and its segments.
func DeleteFilePair(ctx context.Context, database *sql.DB, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewInvalidRequest("file_pair_id is required")
	}
	return db.DeleteFilePair(ctx, database, id)
}

// ListSegmentsInput contains parameters for ListSegments.
type ListSegmentsInput struct {
	FilePairID string // required
	Limit      int    // default: DefaultListLimit
	Offset     int
}

// ListSegmentsOutput contains one window of both sequences of a file pair.
type ListSegmentsOutput struct {
	FilePair   model.FilePair  `json:"file_pair"`
	SourceLang model.Language  `json:"source_lang"`
	TargetLang model.Language  `json:"target_lang"`
	Source     []model.Segment `json:"source"`
	Target     []model.Segment `json:"target"`
	Pagination Pagination      `json:"pagination"`
}

// ListSegments returns rows [offset, offset+limit) of both sequences.
// Pagination counts rows of the longer sequence.
func ListSegments(ctx context.Context, database *sql.DB, input ListSegmentsInput) (*ListSegmentsOutput, error) {
	fp, p, err := loadFilePair(ctx, database, input.FilePairID)
	if err != nil {
		return nil, err
	}
	source, err := db.ListSegments(ctx, database, fp.ID, p.SourceLang)
	if err != nil {
		return nil, err
	}
	target, err := db.ListSegments(ctx, database, fp.ID, p.TargetLang)
	if err != nil {
		return nil, err
	}

	start, end, pg := window(max(len(source), len(target)), input.Limit, input.Offset)

	return &ListSegmentsOutput{
		FilePair:   *fp,
		SourceLang: p.SourceLang,
		TargetLang: p.TargetLang,
		Source:     source[min(start, len(source)):min(end, len(source))],
		Target:     target[min(start, len(target)):min(end, len(target))],
		Pagination: pg,
	}, nil
}

// loadFilePair returns a file pair together with its project.
func loadFilePair(ctx context.Context, database *sql.DB, id string) (*model.FilePair, *model.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, errors.NewInvalidRequest("file_pair_id is required")
	}
	fp, err := db.GetFilePair(ctx, database, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := db.GetProject(ctx, database, fp.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return fp, p, nil
}
