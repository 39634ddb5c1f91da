package align

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hpungsan/bitext/internal/model"
)

// Side identifies one of the two sequences of a file pair.
type Side int

const (
	SideNone Side = iota
	SideSource
	SideTarget
)

// String returns "none", "source", or "target".
func (s Side) String() string {
	switch s {
	case SideSource:
		return "source"
	case SideTarget:
		return "target"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(b []byte) error {
	side, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// ParseSide parses "source"/"src" or "target"/"tgt" (case-insensitive).
// The empty string and "none" parse as SideNone.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SideNone, nil
	case "source", "src":
		return SideSource, nil
	case "target", "tgt":
		return SideTarget, nil
	}
	return SideNone, fmt.Errorf("unknown side %q (want source or target)", s)
}

// Selection is the selected segment. Only one side can be selected at a time.
type Selection struct {
	Side Side   `json:"side"`
	ID   string `json:"id,omitempty"`
}

// None reports whether nothing is selected.
func (s Selection) None() bool {
	return s.Side == SideNone
}

// Mode is the session's editing mode.
type Mode int

const (
	Browsing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "browsing"
}

// State is an immutable snapshot of a session. Snapshots handed to
// subscribers are shared and must not be modified.
type State struct {
	FilePairID       string          `json:"file_pair_id"`
	Source           []model.Segment `json:"source"`
	Target           []model.Segment `json:"target"`
	Selection        Selection       `json:"selection"`
	Editing          bool            `json:"editing"`
	Dirty            bool            `json:"dirty"`
	LastCursorOffset int             `json:"last_cursor_offset"`
}

// Mode returns Editing or Browsing.
func (s State) Mode() Mode {
	if s.Editing {
		return Editing
	}
	return Browsing
}

// Selected returns the selected segment and its index in its sequence.
func (s State) Selected() (model.Segment, int, bool) {
	var seq []model.Segment
	switch s.Selection.Side {
	case SideSource:
		seq = s.Source
	case SideTarget:
		seq = s.Target
	default:
		return model.Segment{}, -1, false
	}
	i := indexOf(seq, s.Selection.ID)
	if i < 0 {
		return model.Segment{}, -1, false
	}
	return seq[i], i, true
}

// Pair is one aligned row with text on both sides.
type Pair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Pairs returns the aligned rows of the snapshot, skipping rows where either
// side is missing or blank.
func (s State) Pairs() []Pair {
	n := min(len(s.Source), len(s.Target))
	pairs := make([]Pair, 0, n)
	for i := 0; i < n; i++ {
		src := strings.TrimSpace(s.Source[i].Text)
		tgt := strings.TrimSpace(s.Target[i].Text)
		if src == "" || tgt == "" {
			continue
		}
		pairs = append(pairs, Pair{Source: src, Target: tgt})
	}
	return pairs
}

// clone returns a deep copy of the snapshot.
func (s State) clone() State {
	s.Source = slices.Clone(s.Source)
	s.Target = slices.Clone(s.Target)
	return s
}

func indexOf(seq []model.Segment, id string) int {
	return slices.IndexFunc(seq, func(seg model.Segment) bool { return seg.ID == id })
}
