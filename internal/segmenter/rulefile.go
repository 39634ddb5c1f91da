package segmenter

import (
	stderrors "errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
)

// RuleFile is the YAML form of an ordered rule list for one language:
//
//	language: en
//	rules:
//	  - before: '[.?!]+'
//	    after: '\s+'
//	  - before: '\bMr\.'
//	    after: '\s+'
//	    break: false
type RuleFile struct {
	Language string          `yaml:"language"`
	Rules    []RuleFileEntry `yaml:"rules"`
}

// RuleFileEntry is one rule. Break defaults to true when omitted.
type RuleFileEntry struct {
	Before string `yaml:"before"`
	After  string `yaml:"after"`
	Break  *bool  `yaml:"break,omitempty"`
}

// LoadRuleFile decodes a YAML rule file and returns its language and rules in
// file order. Every pattern is compiled before returning.
func LoadRuleFile(r io.Reader) (model.Language, []model.Rule, error) {
	var rf RuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		if stderrors.Is(err, io.EOF) {
			return "", nil, errors.NewInvalidRequest("rule file is empty")
		}
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("invalid rule file: %v", err))
	}

	lang := model.NormalizeLanguage(rf.Language)
	if !lang.Valid() {
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("rule file has invalid language %q", rf.Language))
	}
	if len(rf.Rules) == 0 {
		return "", nil, errors.NewInvalidRequest("rule file has no rules")
	}

	rules := make([]model.Rule, len(rf.Rules))
	for i, e := range rf.Rules {
		if e.Before == "" && e.After == "" {
			return "", nil, errors.NewInvalidRequest(fmt.Sprintf("rule %d: before and after are both empty", i))
		}
		breaking := true
		if e.Break != nil {
			breaking = *e.Break
		}
		rules[i] = model.Rule{
			Language:      lang,
			BeforePattern: e.Before,
			AfterPattern:  e.After,
			Breaking:      breaking,
			Position:      i,
		}
	}

	if _, err := Compile(rules); err != nil {
		return "", nil, err
	}
	return lang, rules, nil
}

// MarshalRuleFile renders rules back to the YAML rule file form.
func MarshalRuleFile(lang model.Language, rules []model.Rule) ([]byte, error) {
	rf := RuleFile{Language: string(lang), Rules: make([]RuleFileEntry, len(rules))}
	for i, r := range rules {
		entry := RuleFileEntry{Before: r.BeforePattern, After: r.AfterPattern}
		if !r.Breaking {
			b := false
			entry.Break = &b
		}
		rf.Rules[i] = entry
	}
	return yaml.Marshal(rf)
}
