package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// AppendRules stores rules after the existing rules of the same scope and
// language, preserving slice order. IDs and positions are assigned in place.
func AppendRules(ctx context.Context, db *sql.DB, projectID *string, lang model.Language, rules []model.Rule) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		var next int
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position), -1) + 1 FROM rules
			WHERE project_id IS ? AND language = ?
		`, toNullString(projectID), string(lang)).Scan(&next)
		if err != nil {
			return errors.NewInternal(err)
		}
		return insertRules(ctx, tx, projectID, lang, rules, next)
	})
}

// ReplaceRules deletes every rule of the scope and language and stores rules
// in their place, numbered from zero.
func ReplaceRules(ctx context.Context, db *sql.DB, projectID *string, lang model.Language, rules []model.Rule) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM rules WHERE project_id IS ? AND language = ?
		`, toNullString(projectID), string(lang))
		if err != nil {
			return errors.NewInternal(err)
		}
		return insertRules(ctx, tx, projectID, lang, rules, 0)
	})
}

func insertRules(ctx context.Context, tx *sql.Tx, projectID *string, lang model.Language, rules []model.Rule, start int) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rules (id, project_id, language, before_pattern, after_pattern, breaking, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i := range rules {
		r := &rules[i]
		r.ID = NewID()
		r.ProjectID = projectID
		r.Language = lang
		r.Position = start + i
		_, err := stmt.ExecContext(ctx,
			r.ID, toNullString(projectID), string(lang), r.BeforePattern, r.AfterPattern,
			boolToInt(r.Breaking), r.Position, now,
		)
		if err != nil {
			if isForeignKeyError(err) && projectID != nil {
				return errors.NewNotFound("project", *projectID)
			}
			return errors.NewInternal(err)
		}
	}
	return nil
}

// ListRules returns the rules of one scope (nil projectID = default scope)
// and language ordered by position.
func ListRules(ctx context.Context, q Querier, projectID *string, lang model.Language) ([]model.Rule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, language, before_pattern, after_pattern, breaking, position
		FROM rules
		WHERE project_id IS ? AND language = ?
		ORDER BY position ASC, id ASC
	`, toNullString(projectID), string(lang))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	rules := make([]model.Rule, 0)
	for rows.Next() {
		var (
			r         model.Rule
			projectID sql.NullString
			language  string
			breaking  int
		)
		if err := rows.Scan(&r.ID, &projectID, &language, &r.BeforePattern, &r.AfterPattern, &breaking, &r.Position); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.ProjectID = fromNullString(projectID)
		r.Language = model.Language(language)
		r.Breaking = breaking != 0
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return rules, nil
}

// DeleteRule permanently deletes a rule. Positions of the remaining rules
// keep their relative order.
func DeleteRule(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectRows(result, "rule", id)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isForeignKeyError checks if the error is a SQLite FOREIGN KEY violation.
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
