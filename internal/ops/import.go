package ops

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"

	"github.com/hpungsan/bitext/internal/config"
	"github.com/hpungsan/bitext/internal/db"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
	"github.com/hpungsan/bitext/internal/segmenter"
)

// ImportFilePairInput contains parameters for ImportFilePair.
type ImportFilePairInput struct {
	Project    string // required, ID or name
	SourcePath string // required
	TargetPath string // required
}

// ImportFilePairOutput contains the result of ImportFilePair.
type ImportFilePairOutput struct {
	FilePair       model.FilePair `json:"file_pair"`
	SourceSegments int            `json:"source_segments"`
	TargetSegments int            `json:"target_segments"`

	// Padded is the number of empty placeholders appended to the shorter side.
	Padded int `json:"padded"`

	SourceRules string `json:"source_rules"`
	TargetRules string `json:"target_rules"`

	// Degraded lists the sides ("source", "target") whose file could not be
	// read and were imported as empty.
	Degraded []string `json:"degraded,omitempty"`
}

type importSide struct {
	name string
	path string
	lang model.Language
}

// ImportFilePair reads a source and a target document, segments each with
// its language's effective rules, pads the shorter sequence to equal length
// and stores everything in one transaction.
//
// An unreadable document is imported as empty content and reported in
// Degraded. Invalid paths and rule pattern errors fail the import.
func ImportFilePair(ctx context.Context, database *sql.DB, cfg *config.Config, logger *slog.Logger, input ImportFilePairInput) (*ImportFilePairOutput, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p, err := ResolveProject(ctx, database, input.Project)
	if err != nil {
		return nil, err
	}

	out := &ImportFilePairOutput{}
	rules := db.NewRuleStore(database)
	sides := []importSide{
		{name: "source", path: input.SourcePath, lang: p.SourceLang},
		{name: "target", path: input.TargetPath, lang: p.TargetLang},
	}
	segments := make([][]string, len(sides))

	for i, side := range sides {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		if side.path == "" {
			return nil, errors.NewInvalidRequest(side.name + "_path is required")
		}

		content, err := readDocument(side.path, cfg)
		if err != nil {
			if !errors.Is(err, errors.ErrImportIO) && !errors.Is(err, errors.ErrFileNotFound) {
				return nil, err
			}
			logger.Warn("import degraded to empty content",
				"project", p.ID,
				"side", side.name,
				"path", side.path,
				"error", err)
			out.Degraded = append(out.Degraded, side.name)
			content = ""
		}

		ruleList, scope, err := EffectiveRules(ctx, rules, p.ID, side.lang)
		if err != nil {
			return nil, err
		}
		segs, err := segmenter.Segment(content, ruleList)
		if err != nil {
			return nil, err
		}
		segments[i] = segs
		if i == 0 {
			out.SourceRules = scope
		} else {
			out.TargetRules = scope
		}
	}

	source, target := segments[0], segments[1]
	out.Padded = abs(len(source) - len(target))
	for len(source) < len(target) {
		source = append(source, "")
	}
	for len(target) < len(source) {
		target = append(target, "")
	}

	fp := &model.FilePair{
		ProjectID:  p.ID,
		SourcePath: absPath(input.SourcePath),
		TargetPath: absPath(input.TargetPath),
	}
	if err := db.ImportFilePair(ctx, database, fp, p.SourceLang, p.TargetLang, source, target); err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		return nil, err
	}

	out.FilePair = *fp
	out.SourceSegments = len(source)
	out.TargetSegments = len(target)
	logger.Info("file pair imported",
		"file_pair", fp.ID,
		"project", p.ID,
		"segments", len(source),
		"padded", out.Padded,
		"degraded", out.Degraded)
	return out, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func absPath(path string) string {
	if a, err := filepath.Abs(path); err == nil {
		return a
	}
	return path
}
