package game

import (
	"fmt"
	"strings"
)

// Validate reports whether transcribed is the expected answer for word.
//
// The comparison is case-insensitive exact equality. Whitespace is not
// trimmed and no fuzzy matching is applied, so "cat " and "cats" are both
// wrong for "cat". A word missing from answers yields [ErrMissingAnswer].
func Validate(word string, answers map[string]string, transcribed string) (bool, error) {
	want, ok := answers[word]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrMissingAnswer, word)
	}
	return strings.EqualFold(transcribed, want), nil
}
