package game

import "time"

// EaseOutCubic maps linear progress p in [0, 1] to 1-(1-p)^3.
func EaseOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}

// Transition is the eased walk from one gate to the next. It is advanced by
// elapsed time, never by frame count, so the same total time always yields
// the same position.
type Transition struct {
	from, to float64
	duration time.Duration
	elapsed  time.Duration
	done     bool
}

// NewTransition animates from one road position to another over duration.
// A non-positive duration completes on the first step.
func NewTransition(from, to float64, duration time.Duration) *Transition {
	return &Transition{from: from, to: to, duration: duration}
}

// Progress returns the linear progress clamped to [0, 1].
func (t *Transition) Progress() float64 {
	if t.duration <= 0 || t.elapsed >= t.duration {
		return 1
	}
	return float64(t.elapsed) / float64(t.duration)
}

// Position returns the eased road position for the current progress.
func (t *Transition) Position() float64 {
	p := t.Progress()
	if p >= 1 {
		return t.to
	}
	return t.from + (t.to-t.from)*EaseOutCubic(p)
}

// Step advances the animation by delta and returns the new position. The
// second result is true exactly once: on the step that reaches the end.
// Steps after completion return the final position and false.
func (t *Transition) Step(delta time.Duration) (float64, bool) {
	if t.done {
		return t.to, false
	}
	if delta > 0 {
		t.elapsed += delta
	}
	if t.Progress() < 1 {
		return t.Position(), false
	}
	t.elapsed = t.duration
	t.done = true
	return t.to, true
}

// Done reports whether the animation has completed.
func (t *Transition) Done() bool { return t.done }

// Target is the position the transition ends at.
func (t *Transition) Target() float64 { return t.to }
