package ops

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hpungsan/bitext/internal/align"
	"github.com/hpungsan/bitext/internal/db"
)

// OpenSession starts an alignment session on a stored file pair. The caller
// owns the session and must Close it.
func OpenSession(ctx context.Context, database *sql.DB, filePairID string, logger *slog.Logger) (*align.Session, error) {
	fp, p, err := loadFilePair(ctx, database, filePairID)
	if err != nil {
		return nil, err
	}
	return align.Open(ctx, db.NewSegmentStore(database), fp.ID, p.SourceLang, p.TargetLang,
		align.WithLogger(logger))
}
