package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hpungsan/bitext/internal/align"
	"github.com/hpungsan/bitext/internal/errors"
)

// scriptRunner applies line-oriented alignment commands to a session.
type scriptRunner struct {
	session   *align.Session
	errOut    io.Writer
	keepGoing bool

	applied int
	failed  int
}

// scriptResult is printed when the align command finishes.
type scriptResult struct {
	FilePairID string       `json:"file_pair_id"`
	Applied    int          `json:"applied"`
	Failed     int          `json:"failed"`
	State      align.State  `json:"state"`
	Pairs      []align.Pair `json:"pairs"`
}

func (r *scriptRunner) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := r.exec(ctx, text); err != nil {
			if !r.keepGoing {
				return fmt.Errorf("line %d: %w", line, err)
			}
			r.failed++
			fmt.Fprintf(r.errOut, "line %d: %v\n", line, err)
			continue
		}
		r.applied++
	}
	if err := sc.Err(); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("reading commands: %v", err))
	}
	return nil
}

func (r *scriptRunner) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	s := r.session

	switch strings.ToLower(cmd) {
	case "select":
		sideArg, ref, _ := strings.Cut(rest, " ")
		side, err := align.ParseSide(sideArg)
		if err != nil || side == align.SideNone {
			return errors.NewInvalidRequest("select needs source or target")
		}
		id, err := r.resolve(side, strings.TrimSpace(ref))
		if err != nil {
			return err
		}
		return s.Select(ctx, side, id)
	case "toggle":
		return s.ToggleEditing(ctx)
	case "edit":
		seg, err := r.selected()
		if err != nil {
			return err
		}
		return s.EditText(ctx, seg, rest, len([]rune(rest)))
	case "cursor":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return errors.NewInvalidRequest("cursor needs a number")
		}
		return s.SetCursor(ctx, n)
	case "split":
		if rest == "" {
			return s.SplitSegment(ctx)
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			return errors.NewInvalidRequest("split takes an optional number")
		}
		return s.SplitAt(ctx, n)
	case "up":
		return s.MoveUp(ctx)
	case "down":
		return s.MoveDown(ctx)
	case "merge":
		switch rest {
		case "prev", "previous":
			return s.MergeWithPrevious(ctx)
		case "next", "":
			return s.MergeWithNext(ctx)
		}
		return errors.NewInvalidRequest("merge takes prev or next")
	case "create":
		switch rest {
		case "before":
			return s.CreateBefore(ctx)
		case "after", "":
			return s.CreateAfter(ctx)
		}
		return errors.NewInvalidRequest("create takes before or after")
	case "delete":
		return s.DeleteSegment(ctx)
	case "save":
		return s.Save(ctx)
	}
	return errors.NewInvalidRequest(fmt.Sprintf("unknown command %q", cmd))
}

// resolve accepts a segment ID or a zero-based position on the given side.
func (r *scriptRunner) resolve(side align.Side, ref string) (string, error) {
	if ref == "" {
		return "", errors.NewInvalidRequest("select needs a segment ID or position")
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}
	st := r.session.State()
	seq := st.Source
	if side == align.SideTarget {
		seq = st.Target
	}
	if n < 0 || n >= len(seq) {
		return "", errors.NewNotFound("segment", ref)
	}
	return seq[n].ID, nil
}

func (r *scriptRunner) selected() (string, error) {
	seg, _, ok := r.session.State().Selected()
	if !ok {
		return "", errors.NewInvalidState("edit", "no segment selected")
	}
	return seg.ID, nil
}

// finish leaves editing and saves pending changes.
func (r *scriptRunner) finish(ctx context.Context) error {
	if r.session.State().Editing {
		if err := r.session.ToggleEditing(ctx); err != nil {
			return err
		}
	}
	if r.session.State().Dirty {
		return r.session.Save(ctx)
	}
	return nil
}

func (r *scriptRunner) result() scriptResult {
	return scriptResult{
		FilePairID: r.session.FilePairID(),
		Applied:    r.applied,
		Failed:     r.failed,
		State:      r.session.State(),
		Pairs:      r.session.Pairs(),
	}
}
