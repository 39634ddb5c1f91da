package align

import (
	"context"

	"github.com/hpungsan/bitext/internal/model"
)

// reconcile pads the shorter sequence with empty placeholders until both have
// the same length, optionally drops trailing rows that are empty on both
// sides, and saves.
func (s *Session) reconcile(ctx context.Context, trim bool) error {
	if d := len(s.source) - len(s.target); d != 0 {
		short := SideTarget
		if d < 0 {
			short, d = SideSource, -d
		}
		seq := s.seq(short)
		for range d {
			id, err := s.store.Create(ctx, s.filePairID, s.lang(short), "")
			if err != nil {
				return persistErr(ctx, "create", err)
			}
			*seq = append(*seq, model.Segment{
				ID:            id,
				FilePairID:    s.filePairID,
				Language:      s.lang(short),
				SequenceIndex: len(*seq),
			})
		}
	}

	if trim {
		if err := s.trimTrailing(ctx); err != nil {
			return err
		}
	}
	return s.save(ctx)
}

func (s *Session) trimTrailing(ctx context.Context) error {
	for n := len(s.source); n > 0 && len(s.target) == n; n-- {
		src, tgt := s.source[n-1], s.target[n-1]
		if src.Text != "" || tgt.Text != "" {
			break
		}
		if err := s.store.Delete(ctx, src.ID); err != nil {
			return persistErr(ctx, "delete", err)
		}
		if err := s.store.Delete(ctx, tgt.ID); err != nil {
			return persistErr(ctx, "delete", err)
		}
		s.source = s.source[:n-1]
		s.target = s.target[:n-1]
	}
	if _, _, ok := s.selected(); !ok {
		s.clearSelection()
	}
	return nil
}

func (s *Session) save(ctx context.Context) error {
	for _, side := range []Side{SideSource, SideTarget} {
		seq := *s.seq(side)
		if len(seq) == 0 {
			continue
		}
		updates := make([]model.SegmentUpdate, len(seq))
		for i := range seq {
			seq[i].SequenceIndex = i
			updates[i] = model.SegmentUpdate{ID: seq[i].ID, SequenceIndex: i, Text: seq[i].Text}
		}
		if err := s.store.UpdateAll(ctx, updates); err != nil {
			return persistErr(ctx, "save", err)
		}
	}
	s.dirty = false
	return nil
}
