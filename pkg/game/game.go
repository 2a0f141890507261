// Package game implements the word-gate session: a player walks a road of
// gates, one per vocabulary word, and passes each gate by speaking the word's
// translation.
//
// The package has no rendering or network dependencies. A [Session] is a
// single-owner state machine driven by explicit calls: [Session.Begin] once
// the vocabulary has loaded, [Session.ToggleRecording] from the record button,
// [Session.Deliver] when the answer service replies, and [Session.Advance]
// from a frame clock. Everything observable is reported to a [Sink].
//
// [Runner] hosts a Session on one goroutine and wires those calls to a
// vocabulary [Source], a [Submitter] and a wall-clock ticker.
package game

import (
	"context"
	"errors"
	"fmt"
)

// Phase is the top-level state of a [Session].
type Phase int

const (
	// PhaseLoading waits for the vocabulary.
	PhaseLoading Phase = iota
	// PhasePlaying accepts answers for the current gate.
	PhasePlaying
	// PhaseTransitioning animates the walk to the next gate. No input is accepted.
	PhaseTransitioning
	// PhaseFinished is terminal: every gate has been passed.
	PhaseFinished
	// PhaseError is terminal: the session could not start or hit a broken invariant.
	PhaseError
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhasePlaying:
		return "playing"
	case PhaseTransitioning:
		return "transitioning"
	case PhaseFinished:
		return "finished"
	case PhaseError:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether only a restart can leave p.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseError
}

var (
	// ErrEmptyVocabulary is returned when a vocabulary holds no words.
	ErrEmptyVocabulary = errors.New("game: vocabulary has no words")

	// ErrMissingAnswer is returned when a word has no entry in the answer map.
	ErrMissingAnswer = errors.New("game: word has no answer")

	// ErrDuplicateWord is returned when a word appears twice in the sequence.
	ErrDuplicateWord = errors.New("game: duplicate word")
)

// Vocabulary is the ordered word list and its translations. It is read-only
// once handed to a [Session].
type Vocabulary struct {
	// Words is the gate order.
	Words []string `json:"words"`
	// Answers maps every word to its expected translation.
	Answers map[string]string `json:"answers"`
}

// Validate checks that the vocabulary is non-empty, has no duplicate words
// and maps every word to an answer.
func (v Vocabulary) Validate() error {
	if len(v.Words) == 0 {
		return ErrEmptyVocabulary
	}
	seen := make(map[string]struct{}, len(v.Words))
	var errs []error
	for i, w := range v.Words {
		if _, dup := seen[w]; dup {
			errs = append(errs, fmt.Errorf("%w: words[%d] %q", ErrDuplicateWord, i, w))
		}
		seen[w] = struct{}{}
		if _, ok := v.Answers[w]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMissingAnswer, w))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy so the caller can keep mutating its own value.
func (v Vocabulary) Clone() Vocabulary {
	out := Vocabulary{
		Words:   append([]string(nil), v.Words...),
		Answers: make(map[string]string, len(v.Answers)),
	}
	for k, a := range v.Answers {
		out.Answers[k] = a
	}
	return out
}

// Source loads the vocabulary for one session.
type Source interface {
	Load(ctx context.Context) (Vocabulary, error)
}

// SourceFunc adapts a function to [Source].
type SourceFunc func(ctx context.Context) (Vocabulary, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (Vocabulary, error) { return f(ctx) }

// GateRecord tracks one gate. Passed flips to true exactly once.
type GateRecord struct {
	Index  int
	Word   string
	Passed bool
}

// State is a snapshot of the mutable session fields.
type State struct {
	Phase         Phase
	CurrentIndex  int
	Recording     bool
	Transitioning bool
}
