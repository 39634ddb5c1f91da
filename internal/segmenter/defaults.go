package segmenter

import "github.com/hpungsan/bitext/internal/model"

// Generic rules apply to every language. Order matters: the paragraph and
// punctuation breaks come first so language exceptions can cancel them.
// A paragraph break sits before its blank lines, on the same offset as a
// sentence break ending the paragraph.
var genericRules = []ruleSpec{
	{before: ``, after: `[ \t]*\n(?:[ \t]*\n)+`, breaking: true},
	{before: `[.?!…]+['"”’»)\]]*`, after: `\s+`, breaking: true},
	{before: `[。！？]+[」』）]*`, after: ``, breaking: true},
}

// Abbreviations and initials that end in a period but do not end a sentence.
var exceptionRules = map[string][]ruleSpec{
	"en": {
		{before: `\b(?:Mr|Mrs|Ms|Dr|Prof|Sr|Jr|St|Mt|vs|etc|approx|Inc|Ltd|Co|No|Fig|Vol)\.`, after: `\s+`},
		{before: `\b(?:e\.g|i\.e|a\.m|p\.m|U\.S)\.`, after: `\s+`},
		{before: `\b[A-Z]\.`, after: `\s+`},
	},
	"fr": {
		{before: `\b(?:M|MM|Mme|Mmes|Mlle|Mgr|Dr|Pr|St|Ste|etc|cf|env|ex|av|apr|chap)\.`, after: `\s+`},
		{before: `\b[A-Z]\.`, after: `\s+`},
	},
	"de": {
		{before: `\b(?:Hr|Hrn|Fr|Dr|Prof|bzw|usw|ca|Nr|vgl|evtl|ggf|inkl|Str|Abs|Abb|Bd|Jh)\.`, after: `\s+`},
		{before: `\b(?:z\.B|d\.h|u\.a|o\.ä|s\.o|s\.u)\.`, after: `\s+`},
		{before: `\b[A-Z]\.`, after: `\s+`},
	},
	"es": {
		{before: `\b(?:Sr|Sra|Srta|Dr|Dra|Ud|Uds|Vd|Vds|etc|pág|núm|aprox|Avda)\.`, after: `\s+`},
		{before: `\b(?:p\.ej|EE\.UU)\.`, after: `\s+`},
		{before: `\b[A-Z]\.`, after: `\s+`},
	},
}

type ruleSpec struct {
	before   string
	after    string
	breaking bool
}

// DefaultRules returns the built-in rule list for lang: generic breaks followed
// by the exceptions for the language's primary subtag, if any. Used when
// neither the project nor the default scope has stored rules.
func DefaultRules(lang model.Language) []model.Rule {
	specs := make([]ruleSpec, 0, len(genericRules)+4)
	specs = append(specs, genericRules...)
	specs = append(specs, exceptionRules[lang.Primary()]...)

	rules := make([]model.Rule, len(specs))
	for i, s := range specs {
		rules[i] = model.Rule{
			Language:      lang,
			BeforePattern: s.before,
			AfterPattern:  s.after,
			Breaking:      s.breaking,
			Position:      i,
		}
	}
	return rules
}

// KnownLanguages lists the primary subtags with built-in exceptions.
func KnownLanguages() []string {
	return []string{"de", "en", "es", "fr"}
}
