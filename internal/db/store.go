package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/bitext/internal/model"
)

// SegmentStore is the SQLite-backed segment repository used by alignment
// sessions. It is safe to share across sessions; each session only touches
// the rows of its own file pair.
type SegmentStore struct {
	db *sql.DB
}

// NewSegmentStore wraps database as a segment repository.
func NewSegmentStore(database *sql.DB) *SegmentStore {
	return &SegmentStore{db: database}
}

// Create appends a segment to the end of its sequence and returns its ID.
func (s *SegmentStore) Create(ctx context.Context, filePairID string, lang model.Language, text string) (string, error) {
	return InsertSegment(ctx, s.db, filePairID, lang, text)
}

// Update replaces a segment's text.
func (s *SegmentStore) Update(ctx context.Context, id, text string) error {
	return UpdateSegmentText(ctx, s.db, id, text)
}

// UpdateAll writes positions and texts in one transaction.
func (s *SegmentStore) UpdateAll(ctx context.Context, batch []model.SegmentUpdate) error {
	return UpdateSegments(ctx, s.db, batch)
}

// Delete removes a segment.
func (s *SegmentStore) Delete(ctx context.Context, id string) error {
	return DeleteSegment(ctx, s.db, id)
}

// GetAll returns one sequence ordered by sequence index.
func (s *SegmentStore) GetAll(ctx context.Context, filePairID string, lang model.Language) ([]model.Segment, error) {
	return ListSegments(ctx, s.db, filePairID, lang)
}

// RuleStore is the SQLite-backed segmentation rule repository.
type RuleStore struct {
	db *sql.DB
}

// NewRuleStore wraps database as a rule repository.
func NewRuleStore(database *sql.DB) *RuleStore {
	return &RuleStore{db: database}
}

// GetAll returns a project's rules for lang, ordered by position.
func (s *RuleStore) GetAll(ctx context.Context, projectID string, lang model.Language) ([]model.Rule, error) {
	return ListRules(ctx, s.db, &projectID, lang)
}

// GetAllDefault returns the default-scope rules for lang, ordered by position.
func (s *RuleStore) GetAllDefault(ctx context.Context, lang model.Language) ([]model.Rule, error) {
	return ListRules(ctx, s.db, nil, lang)
}
