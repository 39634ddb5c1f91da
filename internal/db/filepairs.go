package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// InsertFilePair stores a new file pair. Assigns ID and CreatedAt if unset.
func InsertFilePair(ctx context.Context, q Querier, fp *model.FilePair) error {
	if fp.ID == "" {
		fp.ID = NewID()
	}
	if fp.CreatedAt == 0 {
		fp.CreatedAt = time.Now().Unix()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO file_pairs (id, project_id, source_path, target_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, fp.ID, fp.ProjectID, fp.SourcePath, fp.TargetPath, fp.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetFilePair retrieves a file pair by ID.
func GetFilePair(ctx context.Context, q Querier, id string) (*model.FilePair, error) {
	var fp model.FilePair
	err := q.QueryRowContext(ctx, `
		SELECT id, project_id, source_path, target_path, created_at
		FROM file_pairs WHERE id = ?
	`, id).Scan(&fp.ID, &fp.ProjectID, &fp.SourcePath, &fp.TargetPath, &fp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("file pair", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &fp, nil
}

// ListFilePairs returns the file pairs of a project, oldest first.
func ListFilePairs(ctx context.Context, q Querier, projectID string) ([]model.FilePair, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, source_path, target_path, created_at
		FROM file_pairs WHERE project_id = ?
		ORDER BY created_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	pairs := make([]model.FilePair, 0)
	for rows.Next() {
		var fp model.FilePair
		if err := rows.Scan(&fp.ID, &fp.ProjectID, &fp.SourcePath, &fp.TargetPath, &fp.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		pairs = append(pairs, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return pairs, nil
}

// DeleteFilePair permanently deletes a file pair and its segments.
func DeleteFilePair(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM file_pairs WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectRows(result, "file pair", id)
}

// ImportFilePair stores a file pair together with its initial source and
// target sequences in one transaction. Segments are numbered in slice order.
func ImportFilePair(ctx context.Context, db *sql.DB, fp *model.FilePair, sourceLang, targetLang model.Language, source, target []string) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if err := InsertFilePair(ctx, tx, fp); err != nil {
			return err
		}
		if err := insertSequence(ctx, tx, fp.ID, sourceLang, source); err != nil {
			return err
		}
		return insertSequence(ctx, tx, fp.ID, targetLang, target)
	})
}

func insertSequence(ctx context.Context, tx *sql.Tx, filePairID string, lang model.Language, texts []string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (id, file_pair_id, language, text, sequence_index, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, text := range texts {
		if _, err := stmt.ExecContext(ctx, NewID(), filePairID, string(lang), text, i, now); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}
