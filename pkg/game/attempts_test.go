package game_test

import (
	"testing"

	"github.com/MrWong99/wordgate/pkg/game"
)

func TestSimilarity(t *testing.T) {
	if got := game.Similarity("Cat", "cat"); got != 1 {
		t.Errorf("identical = %v, want 1", got)
	}
	if got := game.Similarity("cat", ""); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
	near, far := game.Similarity("house", "hous"), game.Similarity("house", "dog")
	if near <= far {
		t.Errorf("near %v should score above far %v", near, far)
	}
}

func TestSummarize(t *testing.T) {
	attempts := []game.Attempt{
		{Gate: 0, Answer: "dog", Similarity: 0.1},
		{Gate: 0, Answer: "cap", Similarity: 0.8},
		{Gate: 0, Answer: "cat", Correct: true, Similarity: 1},
		{Gate: 1, Answer: "dog", Correct: true, Similarity: 1},
	}
	s := game.Summarize(2, attempts)
	if s.Attempts != 4 || s.Passed != 2 || s.Misses != 2 {
		t.Errorf("counts: %+v", s)
	}
	if s.PerGate[0] != 3 || s.PerGate[1] != 1 {
		t.Errorf("per gate: %v", s.PerGate)
	}
	if s.Closest[0] != "cap" || s.Closest[1] != "" {
		t.Errorf("closest: %q", s.Closest)
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[game.Phase]string{
		game.PhaseLoading:       "loading",
		game.PhasePlaying:       "playing",
		game.PhaseTransitioning: "transitioning",
		game.PhaseFinished:      "finished",
		game.PhaseError:         "error",
	} {
		if p.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(p), p.String(), want)
		}
	}
	if !game.PhaseFinished.Terminal() || game.PhasePlaying.Terminal() {
		t.Error("Terminal() misclassifies phases")
	}
}
