// Package phonetic finds the vocabulary answer a misheard transcript most
// likely meant. Checks use it to attach a "sounds like" hint to a transcript
// that is not itself one of the expected answers.
//
// Candidates are found in two passes. First, Double Metaphone codes of the
// transcript's words are compared with those of every answer; answers sharing
// a code are ranked by Jaro-Winkler similarity and accepted above the
// phonetic threshold. When no answer shares a code, the best plain
// Jaro-Winkler score is accepted above the stricter fuzzy threshold.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Default similarity thresholds of [New].
const (
	DefaultPhoneticThreshold = 0.70
	DefaultFuzzyThreshold    = 0.85
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum similarity for an answer that shares
// a phonetic code with the transcript.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) { m.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum similarity for an answer found by
// spelling alone.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) { m.fuzzyThreshold = threshold }
}

// Match is the answer a transcript was matched to.
type Match struct {
	Answer string
	// Score is the Jaro-Winkler similarity in [0, 1].
	Score float64
	// Phonetic reports whether the transcript and the answer share a
	// Double Metaphone code.
	Phonetic bool
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a matcher with the default thresholds unless overridden.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: DefaultPhoneticThreshold,
		fuzzyThreshold:    DefaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Nearest returns the answer closest to heard. Comparison is case-insensitive;
// the returned answer keeps its original spelling. ok is false when heard is
// blank or no answer clears its threshold.
func (m *Matcher) Nearest(heard string, answers []string) (match Match, ok bool) {
	heard = strings.ToLower(strings.TrimSpace(heard))
	if heard == "" || len(answers) == 0 {
		return Match{}, false
	}
	heardTokens := strings.Fields(heard)
	heardCodes := codes(heardTokens)

	var best Match
	for _, answer := range answers {
		lower := strings.ToLower(strings.TrimSpace(answer))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		score := similarity(heardTokens, tokens, heard, lower)

		if overlap(heardCodes, codes(tokens)) {
			if score >= m.phoneticThreshold && (!best.Phonetic || score > best.Score) {
				best = Match{Answer: answer, Score: score, Phonetic: true}
			}
			continue
		}
		if !best.Phonetic && score >= m.fuzzyThreshold && score > best.Score {
			best = Match{Answer: answer, Score: score}
		}
	}
	return best, best.Answer != ""
}

// codes returns the set of non-empty Double Metaphone codes of tokens.
func codes(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		primary, secondary := matchr.DoubleMetaphone(t)
		if primary != "" {
			set[primary] = struct{}{}
		}
		if secondary != "" {
			set[secondary] = struct{}{}
		}
	}
	return set
}

func overlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score over the full strings, the
// strings with spaces removed ("ice cream" vs "icecream") and every pair of
// single words.
func similarity(aTokens, bTokens []string, a, b string) float64 {
	score := matchr.JaroWinkler(a, b, false)
	if len(aTokens) > 1 || len(bTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(aTokens, ""), strings.Join(bTokens, ""), false); s > score {
			score = s
		}
	}
	for _, at := range aTokens {
		for _, bt := range bTokens {
			if s := matchr.JaroWinkler(at, bt, false); s > score {
				score = s
			}
		}
	}
	return score
}
