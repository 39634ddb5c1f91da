package model

// Language is a normalized language code such as "en" or "pt-br".
type Language string

// Segment is one translation unit's text in one language, positioned within
// its (file pair, language) sequence.
type Segment struct {
	// ID is a ULID assigned by the store on creation; stable for the segment's lifetime
	ID string `json:"id"`

	// FilePairID identifies the file pair the sequence belongs to
	FilePairID string `json:"file_pair_id"`

	// Language selects the sequence (source or target language of the project)
	Language Language `json:"language"`

	// Text is the segment content; may be empty for placeholders
	Text string `json:"text"`

	// SequenceIndex orders the segment within its sequence.
	// Dense (0..n-1) right after a save, not necessarily dense in between.
	SequenceIndex int `json:"sequence_index"`
}

// SegmentUpdate is one entry of a batch update: the segment's new position
// and text.
type SegmentUpdate struct {
	ID            string
	SequenceIndex int
	Text          string
}

// Rule is a segmentation boundary rule. Rules are consumed ordered by Position.
type Rule struct {
	ID string `json:"id"`

	// ProjectID scopes the rule to one project; nil means the default scope
	ProjectID *string `json:"project_id,omitempty"`

	Language      Language `json:"language"`
	BeforePattern string   `json:"before_pattern"`
	AfterPattern  string   `json:"after_pattern"`

	// Breaking rules add a boundary; non-breaking rules cancel one recorded
	// earlier at the same offset.
	Breaking bool `json:"breaking"`

	Position int `json:"position"`
}

// IsDefault reports whether the rule belongs to the default scope.
func (r Rule) IsDefault() bool {
	return r.ProjectID == nil
}

// Project owns a language pair and scopes segmentation rules.
type Project struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	SourceLang Language `json:"source_lang"`
	TargetLang Language `json:"target_lang"`
	CreatedAt  int64    `json:"created_at"`
}

// FilePair identifies one source-sequence/target-sequence pairing.
type FilePair struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path"`
	CreatedAt  int64  `json:"created_at"`
}
