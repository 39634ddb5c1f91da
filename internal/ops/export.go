package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/bitext/internal/align"
	"github.com/hpungsan/bitext/internal/config"
	"github.com/hpungsan/bitext/internal/db"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
	"github.com/hpungsan/bitext/internal/tmx"
)

// Version is written into exported TMX headers. Set by cmd/bitext.
var Version = "dev"

// ExportInput contains parameters for ExportTMX.
type ExportInput struct {
	FilePairID string // required
	Path       string // optional, default: ~/.bitext/files/<project>-<timestamp>.tmx
}

// ExportOutput contains the result of ExportTMX.
type ExportOutput struct {
	Path  string `json:"path"`
	Units int    `json:"units"`

	// Skipped counts rows left out because one side was empty.
	Skipped    int   `json:"skipped"`
	ExportedAt int64 `json:"exported_at"`
}

// ExportTMX writes the aligned rows of a file pair that have text on both
// sides to a TMX 1.4 file. The file is written to a temp file and renamed
// into place, so an existing file survives a failed export.
func ExportTMX(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

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
	pairs := align.State{Source: source, Target: target}.Pairs()

	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(p.Name, now)
		if err != nil {
			return nil, err
		}
	}
	// Default paths are validated too; project names end up in them.
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	units := make([]tmx.Unit, len(pairs))
	for i, pair := range pairs {
		units[i] = tmx.Unit{Source: pair.Source, Target: pair.Target}
	}

	w := bufio.NewWriter(file)
	header := tmx.Header{
		SourceLang:  string(p.SourceLang),
		TargetLang:  string(p.TargetLang),
		ToolVersion: Version,
		Created:     now,
	}
	if err := tmx.Encode(w, header, units); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if ctx.Err() != nil {
		return nil, errors.NewCancelled("export")
	}

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows, os.Rename fails if the destination exists; the existing
	// file is kept rather than risking a delete+rename.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Units:      len(units),
		Skipped:    max(len(source), len(target)) - len(units),
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportPath generates ~/.bitext/files/<project>-<timestamp>.tmx.
func defaultExportPath(projectName string, now time.Time) (string, error) {
	dir, err := DefaultFilesDir()
	if err != nil {
		return "", err
	}
	name := SanitizeForFilename(model.NormalizeName(projectName))
	filename := fmt.Sprintf("%s-%s.tmx", name, now.Format("2006-01-02T150405"))
	return filepath.Join(dir, filename), nil
}
