// Package normalize canonicalises transcriptions before they are compared
// with expected answers.
package normalize

import (
	"regexp"
	"strings"
)

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// Text lower-cases s, drops every rune that is not a letter, digit,
// underscore or whitespace, and collapses whitespace runs into single spaces.
// Leading and trailing whitespace is removed.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctuation.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
