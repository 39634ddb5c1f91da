package align

import (
	"context"
	"slices"
	"strings"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// ToggleEditing enters editing when a segment is selected and the session is
// browsing. When already editing, it persists the selected segment's text and
// returns to browsing. With nothing selected it does nothing.
func (s *Session) ToggleEditing(ctx context.Context) error {
	return s.do(ctx, "toggle_editing", func(ctx context.Context) error {
		if s.editing {
			return s.exitEditing(ctx)
		}
		if _, _, ok := s.selected(); ok {
			s.editing = true
		}
		return nil
	})
}

// SelectSource selects a source segment. Selecting the segment that is
// already selected clears the selection.
func (s *Session) SelectSource(ctx context.Context, id string) error {
	return s.do(ctx, "select_source", func(ctx context.Context) error {
		return s.selectSegment(ctx, SideSource, id)
	})
}

// SelectTarget selects a target segment. Selecting the segment that is
// already selected clears the selection.
func (s *Session) SelectTarget(ctx context.Context, id string) error {
	return s.do(ctx, "select_target", func(ctx context.Context) error {
		return s.selectSegment(ctx, SideTarget, id)
	})
}

// Select dispatches to SelectSource or SelectTarget.
func (s *Session) Select(ctx context.Context, side Side, id string) error {
	switch side {
	case SideSource:
		return s.SelectSource(ctx, id)
	case SideTarget:
		return s.SelectTarget(ctx, id)
	}
	return errors.NewInvalidRequest("side must be source or target")
}

// MoveUp swaps the selected segment with its predecessor. The change is
// written on the next Save.
func (s *Session) MoveUp(ctx context.Context) error {
	return s.do(ctx, "move_up", func(ctx context.Context) error {
		return s.move(-1)
	})
}

// MoveDown swaps the selected segment with its successor. The change is
// written on the next Save.
func (s *Session) MoveDown(ctx context.Context) error {
	return s.do(ctx, "move_down", func(ctx context.Context) error {
		return s.move(1)
	})
}

// MergeWithPrevious joins the selected segment onto the end of its
// predecessor with a single space. The predecessor survives and becomes the
// selection.
func (s *Session) MergeWithPrevious(ctx context.Context) error {
	return s.do(ctx, "merge_previous", func(ctx context.Context) error {
		return s.merge(ctx, true)
	})
}

// MergeWithNext joins the successor onto the end of the selected segment with
// a single space.
func (s *Session) MergeWithNext(ctx context.Context) error {
	return s.do(ctx, "merge_next", func(ctx context.Context) error {
		return s.merge(ctx, false)
	})
}

// CreateBefore inserts an empty segment before the selection, selects it and
// starts editing it.
func (s *Session) CreateBefore(ctx context.Context) error {
	return s.do(ctx, "create_before", func(ctx context.Context) error {
		return s.create(ctx, false)
	})
}

// CreateAfter inserts an empty segment after the selection, selects it and
// starts editing it. Trailing empty rows are kept so the new segment survives
// reconciliation.
func (s *Session) CreateAfter(ctx context.Context) error {
	return s.do(ctx, "create_after", func(ctx context.Context) error {
		return s.create(ctx, true)
	})
}

// DeleteSegment removes the selected segment. Unsaved edits to it are dropped.
// The selection moves to the previous segment, or the first one when the
// deleted segment was first.
func (s *Session) DeleteSegment(ctx context.Context) error {
	return s.do(ctx, "delete", func(ctx context.Context) error {
		return s.deleteSelected(ctx)
	})
}

// EditText replaces the in-memory text of a segment on the selected side and
// records the cursor position for SplitSegment. Only valid while editing.
func (s *Session) EditText(ctx context.Context, id, text string, cursor int) error {
	return s.do(ctx, "edit", func(ctx context.Context) error {
		if !s.editing {
			return errors.NewInvalidState("edit", "session is not editing")
		}
		seq := s.seq(s.sel.Side)
		i := indexOf(*seq, id)
		if i < 0 {
			return errors.NewNotFound("segment", id)
		}
		(*seq)[i].Text = text
		s.cursor = cursor
		s.dirty = true
		return nil
	})
}

// SplitSegment splits the segment being edited at the last cursor offset,
// counted in characters. Offsets outside [0, len) leave it unchanged.
func (s *Session) SplitSegment(ctx context.Context) error {
	return s.do(ctx, "split", func(ctx context.Context) error {
		return s.split(ctx)
	})
}

// SetCursor records the cursor offset used by SplitSegment without changing
// any text. Only valid while editing.
func (s *Session) SetCursor(ctx context.Context, offset int) error {
	return s.do(ctx, "set_cursor", func(ctx context.Context) error {
		if !s.editing {
			return errors.NewInvalidState("set_cursor", "session is not editing")
		}
		s.cursor = offset
		return nil
	})
}

// SplitAt records offset as the cursor and splits the segment being edited
// there, as one operation.
func (s *Session) SplitAt(ctx context.Context, offset int) error {
	return s.do(ctx, "split", func(ctx context.Context) error {
		if !s.editing {
			return errors.NewInvalidState("split", "session is not editing")
		}
		s.cursor = offset
		return s.split(ctx)
	})
}

// Save renumbers both sequences densely from zero and writes them out.
func (s *Session) Save(ctx context.Context) error {
	return s.do(ctx, "save", func(ctx context.Context) error {
		return s.save(ctx)
	})
}

func (s *Session) seq(side Side) *[]model.Segment {
	if side == SideTarget {
		return &s.target
	}
	return &s.source
}

func (s *Session) lang(side Side) model.Language {
	if side == SideTarget {
		return s.targetLang
	}
	return s.sourceLang
}

// selected returns the selected side and the selection's index in it.
func (s *Session) selected() (Side, int, bool) {
	if s.sel.None() {
		return SideNone, -1, false
	}
	i := indexOf(*s.seq(s.sel.Side), s.sel.ID)
	if i < 0 {
		return SideNone, -1, false
	}
	return s.sel.Side, i, true
}

func (s *Session) requireSelection(op string) (Side, int, error) {
	side, i, ok := s.selected()
	if !ok {
		return SideNone, -1, errors.NewInvalidState(op, "no segment selected")
	}
	return side, i, nil
}

// exitEditing persists the selected segment's text and leaves editing.
func (s *Session) exitEditing(ctx context.Context) error {
	if !s.editing {
		return nil
	}
	side, i, ok := s.selected()
	if !ok {
		s.editing = false
		return nil
	}
	seg := (*s.seq(side))[i]
	if err := s.store.Update(ctx, seg.ID, seg.Text); err != nil {
		return persistErr(ctx, "update", err)
	}
	s.editing = false
	return nil
}

func (s *Session) clearSelection() {
	s.sel = Selection{}
	s.editing = false
}

func (s *Session) selectSegment(ctx context.Context, side Side, id string) error {
	if s.sel.Side == side && s.sel.ID == id {
		if err := s.exitEditing(ctx); err != nil {
			return err
		}
		s.clearSelection()
		return nil
	}
	if indexOf(*s.seq(side), id) < 0 {
		return errors.NewNotFound("segment", id)
	}
	if err := s.exitEditing(ctx); err != nil {
		return err
	}
	s.sel = Selection{Side: side, ID: id}
	return nil
}

func (s *Session) move(delta int) error {
	side, i, err := s.requireSelection("move")
	if err != nil {
		return err
	}
	seq := *s.seq(side)
	j := i + delta
	if j < 0 || j >= len(seq) {
		return nil
	}
	seq[i], seq[j] = seq[j], seq[i]
	s.dirty = true
	return nil
}

func (s *Session) merge(ctx context.Context, withPrevious bool) error {
	if err := s.exitEditing(ctx); err != nil {
		return err
	}
	side, i, err := s.requireSelection("merge")
	if err != nil {
		return err
	}
	seq := s.seq(side)

	survivor, absorbed := i, i+1
	if withPrevious {
		survivor, absorbed = i-1, i
	}
	if survivor < 0 || absorbed >= len(*seq) {
		return nil
	}

	keep := (*seq)[survivor]
	gone := (*seq)[absorbed]
	text := keep.Text + " " + gone.Text

	(*seq)[survivor].Text = text
	*seq = slices.Delete(*seq, absorbed, absorbed+1)
	s.sel = Selection{Side: side, ID: keep.ID}
	s.dirty = true

	if err := s.store.Delete(ctx, gone.ID); err != nil {
		return persistErr(ctx, "delete", err)
	}
	if err := s.store.Update(ctx, keep.ID, text); err != nil {
		return persistErr(ctx, "update", err)
	}
	return s.reconcile(ctx, true)
}

func (s *Session) create(ctx context.Context, after bool) error {
	if err := s.exitEditing(ctx); err != nil {
		return err
	}
	side, i, err := s.requireSelection("create")
	if err != nil {
		return err
	}

	id, err := s.store.Create(ctx, s.filePairID, s.lang(side), "")
	if err != nil {
		return persistErr(ctx, "create", err)
	}
	pos := i
	if after {
		pos = i + 1
	}
	seq := s.seq(side)
	*seq = slices.Insert(*seq, pos, model.Segment{
		ID:            id,
		FilePairID:    s.filePairID,
		Language:      s.lang(side),
		SequenceIndex: pos,
	})
	s.sel = Selection{Side: side, ID: id}
	s.editing = true
	s.dirty = true

	return s.reconcile(ctx, !after)
}

func (s *Session) deleteSelected(ctx context.Context) error {
	side, i, err := s.requireSelection("delete")
	if err != nil {
		return err
	}
	seq := s.seq(side)
	gone := (*seq)[i]

	s.editing = false
	*seq = slices.Delete(*seq, i, i+1)
	if len(*seq) > 0 {
		s.sel = Selection{Side: side, ID: (*seq)[max(i-1, 0)].ID}
	} else {
		s.clearSelection()
	}
	s.dirty = true

	if err := s.store.Delete(ctx, gone.ID); err != nil {
		return persistErr(ctx, "delete", err)
	}
	return s.reconcile(ctx, true)
}

func (s *Session) split(ctx context.Context) error {
	if !s.editing {
		return errors.NewInvalidState("split", "session is not editing")
	}
	side, i, err := s.requireSelection("split")
	if err != nil {
		return err
	}
	seq := s.seq(side)
	seg := (*seq)[i]

	runes := []rune(seg.Text)
	if s.cursor < 0 || s.cursor >= len(runes) {
		return nil
	}
	head := strings.TrimSpace(string(runes[:s.cursor]))
	tail := strings.TrimSpace(string(runes[s.cursor:]))

	(*seq)[i].Text = head
	s.dirty = true
	if err := s.store.Update(ctx, seg.ID, head); err != nil {
		return persistErr(ctx, "update", err)
	}
	id, err := s.store.Create(ctx, s.filePairID, s.lang(side), tail)
	if err != nil {
		return persistErr(ctx, "create", err)
	}
	*seq = slices.Insert(*seq, i+1, model.Segment{
		ID:            id,
		FilePairID:    s.filePairID,
		Language:      s.lang(side),
		Text:          tail,
		SequenceIndex: i + 1,
	})
	s.editing = false

	return s.reconcile(ctx, true)
}

func persistErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return errors.NewCancelled(op)
	}
	return errors.NewPersistence(op, err)
}
