package game

import (
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// Attempt records one validated answer.
type Attempt struct {
	Gate     int
	Word     string
	Expected string
	Answer   string
	Correct  bool
	// Similarity is the Jaro-Winkler similarity of the lower-cased answer to
	// the expected one, in [0, 1]. It is informational and never affects
	// whether an attempt is correct.
	Similarity float64
	At         time.Time
}

// Similarity scores how close answer is to expected.
func Similarity(expected, answer string) float64 {
	a, b := strings.ToLower(expected), strings.ToLower(answer)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return matchr.JaroWinkler(a, b, false)
}

// Summary aggregates the attempts of a session.
type Summary struct {
	Gates    int
	Passed   int
	Attempts int
	Misses   int
	// PerGate counts attempts per gate index.
	PerGate []int
	// Closest is the best-scoring wrong answer per gate, "" when none.
	Closest []string
}

// Summarize builds a [Summary] for a session of gates gates.
func Summarize(gates int, attempts []Attempt) Summary {
	s := Summary{
		Gates:   gates,
		PerGate: make([]int, gates),
		Closest: make([]string, gates),
	}
	best := make([]float64, gates)
	for _, a := range attempts {
		s.Attempts++
		if a.Gate >= 0 && a.Gate < gates {
			s.PerGate[a.Gate]++
		}
		if a.Correct {
			s.Passed++
			continue
		}
		s.Misses++
		if a.Gate >= 0 && a.Gate < gates && a.Similarity >= best[a.Gate] {
			best[a.Gate] = a.Similarity
			s.Closest[a.Gate] = a.Answer
		}
	}
	return s
}
