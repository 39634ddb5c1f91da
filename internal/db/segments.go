package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// InsertSegment appends a segment to the end of its (file pair, language)
// sequence and returns its new ID.
func InsertSegment(ctx context.Context, q Querier, filePairID string, lang model.Language, text string) (string, error) {
	id := NewID()
	_, err := q.ExecContext(ctx, `
		INSERT INTO segments (id, file_pair_id, language, text, sequence_index, updated_at)
		VALUES (?, ?, ?, ?,
			(SELECT COALESCE(MAX(sequence_index), -1) + 1 FROM segments WHERE file_pair_id = ? AND language = ?),
			?)
	`, id, filePairID, string(lang), text, filePairID, string(lang), time.Now().Unix())
	if err != nil {
		if isForeignKeyError(err) {
			return "", errors.NewNotFound("file pair", filePairID)
		}
		return "", errors.NewInternal(err)
	}
	return id, nil
}

// UpdateSegmentText replaces a segment's text.
func UpdateSegmentText(ctx context.Context, q Querier, id, text string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE segments SET text = ?, updated_at = ? WHERE id = ?
	`, text, time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectRows(result, "segment", id)
}

// UpdateSegments writes position and text of every entry in one transaction.
// A missing segment aborts the whole batch.
func UpdateSegments(ctx context.Context, db *sql.DB, batch []model.SegmentUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	return withTx(ctx, db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE segments SET text = ?, sequence_index = ?, updated_at = ? WHERE id = ?
		`)
		if err != nil {
			return errors.NewInternal(err)
		}
		defer stmt.Close()

		now := time.Now().Unix()
		for _, u := range batch {
			result, err := stmt.ExecContext(ctx, u.Text, u.SequenceIndex, now, u.ID)
			if err != nil {
				return errors.NewInternal(err)
			}
			if err := expectRows(result, "segment", u.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSegment permanently deletes a segment.
func DeleteSegment(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM segments WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectRows(result, "segment", id)
}

// ListSegments returns one sequence ordered by sequence_index. Ties (possible
// between saves) fall back to ID, which sorts by creation time.
func ListSegments(ctx context.Context, q Querier, filePairID string, lang model.Language) ([]model.Segment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, file_pair_id, language, text, sequence_index
		FROM segments
		WHERE file_pair_id = ? AND language = ?
		ORDER BY sequence_index ASC, id ASC
	`, filePairID, string(lang))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	segments := make([]model.Segment, 0)
	for rows.Next() {
		var (
			s        model.Segment
			language string
		)
		if err := rows.Scan(&s.ID, &s.FilePairID, &language, &s.Text, &s.SequenceIndex); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Language = model.Language(language)
		segments = append(segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return segments, nil
}

// CountSegments returns the length of one sequence.
func CountSegments(ctx context.Context, q Querier, filePairID string, lang model.Language) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM segments WHERE file_pair_id = ? AND language = ?
	`, filePairID, string(lang)).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}
