package model

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName trims, lowercases, and collapses internal whitespace.
// Project names are unique by their normalized form.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// languageRegex accepts BCP 47-ish tags: a primary subtag plus optional subtags.
var languageRegex = regexp.MustCompile(`^[a-z]{2,8}(-[a-z0-9]{1,8})*$`)

// NormalizeLanguage trims, lowercases, and converts underscores to dashes
// ("en_US" -> "en-us").
func NormalizeLanguage(s string) Language {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	return Language(s)
}

// Valid reports whether the (normalized) language looks like a language tag.
func (l Language) Valid() bool {
	return languageRegex.MatchString(string(l))
}

// Primary returns the primary subtag ("pt-br" -> "pt").
func (l Language) Primary() string {
	s := string(l)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}
