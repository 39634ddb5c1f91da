// Package segmenter splits text into segments using ordered boundary rules.
//
// Each rule is a (before, after) pair of regular expressions. A match of the
// concatenated pattern yields a boundary offset right after the before part.
// Breaking rules record the offset; non-breaking rules remove an offset that an
// earlier rule recorded. Rule order is therefore significant: a language can
// express "break after a period, except after Mr." as two ordered rules.
package segmenter

import (
	"regexp"
	"slices"
	"strings"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// Segmenter holds a compiled, ordered rule list.
type Segmenter struct {
	rules []compiledRule
}

type compiledRule struct {
	combined *regexp.Regexp
	before   *regexp.Regexp
	breaking bool
}

// Compile validates and compiles rules in order. The first rule whose
// combined or before pattern does not compile fails the whole call with a
// PATTERN_ERROR naming it.
func Compile(rules []model.Rule) (*Segmenter, error) {
	s := &Segmenter{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		pattern := r.BeforePattern + r.AfterPattern
		combined, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.NewPattern(i, r.ID, pattern, err)
		}
		before, err := regexp.Compile(r.BeforePattern)
		if err != nil {
			return nil, errors.NewPattern(i, r.ID, r.BeforePattern, err)
		}
		s.rules = append(s.rules, compiledRule{
			combined: combined,
			before:   before,
			breaking: r.Breaking,
		})
	}
	return s, nil
}

// Segment compiles rules and splits content. See (*Segmenter).Segment.
func Segment(content string, rules []model.Rule) ([]string, error) {
	s, err := Compile(rules)
	if err != nil {
		return nil, err
	}
	return s.Segment(content), nil
}

// Segment splits content at the boundaries produced by the rule list.
// With no rules the whole trimmed content is the only segment. Every piece
// between two boundaries is kept, even when it is empty after trimming, and
// any remainder after the last boundary becomes a final piece.
func (s *Segmenter) Segment(content string) []string {
	if len(s.rules) == 0 {
		return []string{strings.TrimSpace(content)}
	}
	return cut(content, s.Boundaries(content))
}

// Boundaries returns the byte offsets at which content is cut, ascending.
func (s *Segmenter) Boundaries(content string) []int {
	positions := make(map[int]struct{})
	for _, r := range s.rules {
		for _, loc := range r.combined.FindAllStringIndex(content, -1) {
			offset := r.boundary(content, loc)
			if r.breaking {
				positions[offset] = struct{}{}
			} else {
				delete(positions, offset)
			}
		}
	}

	offsets := make([]int, 0, len(positions))
	for off := range positions {
		offsets = append(offsets, off)
	}
	slices.Sort(offsets)
	return offsets
}

// boundary locates the end of the before pattern inside the matched span.
// Falls back to the match start when the before pattern does not match there.
func (r compiledRule) boundary(content string, loc []int) int {
	span := content[loc[0]:loc[1]]
	before := r.before.FindStringIndex(span)
	if before == nil {
		return loc[0]
	}
	return loc[0] + before[1]
}

// cut splits content at ascending offsets and trims every piece. Content
// that yields no piece at all (no boundaries, nothing left) is one empty
// segment.
func cut(content string, offsets []int) []string {
	segments := make([]string, 0, len(offsets)+1)
	start := 0
	for _, off := range offsets {
		if off < start || off > len(content) {
			continue
		}
		segments = append(segments, strings.TrimSpace(content[start:off]))
		start = off
	}
	if start < len(content) {
		segments = append(segments, strings.TrimSpace(content[start:]))
	}
	if len(segments) == 0 {
		return []string{""}
	}
	return segments
}
