// Package sink provides [game.Sink] implementations for terminal players: a
// line-oriented console renderer and a desktop notification sink.
package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/MrWong99/wordgate/pkg/game"
)

// progressWidth is the number of cells in the console progress bar.
const progressWidth = 20

// Compile-time interface assertions.
var (
	_ game.Sink              = (*Console)(nil)
	_ game.Traveler          = (*Console)(nil)
	_ game.PopupClearer      = (*Console)(nil)
	_ game.RecordingObserver = (*Console)(nil)
)

// Console renders notifications as lines of text. It is safe for concurrent
// use so that a CLI can print its own lines through [Console.Printf].
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	messages game.Messages
	travel   bool
	lastStep int
}

// ConsoleOption configures a [Console].
type ConsoleOption func(*Console)

// WithTravel prints the distance walked between gates, once per road unit.
func WithTravel() ConsoleOption {
	return func(c *Console) { c.travel = true }
}

// NewConsole returns a console writing to w with the texts of m.
func NewConsole(w io.Writer, m game.Messages, opts ...ConsoleOption) *Console {
	c := &Console{w: w, messages: m, lastStep: -1}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Printf writes a line without interleaving with notifications.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *Console) WordChanged(word string) {
	c.Printf("%s%s", c.messages.Prompt, word)
}

func (c *Console) Progress(fraction float64) {
	c.Printf("[%s] %3.0f%%", Bar(fraction, progressWidth), fraction*100)
}

func (c *Console) Popup(text string, kind game.PopupKind) {
	c.Printf("%s %s", popupMarker(kind), text)
}

func (c *Console) GatePassed(index int) {
	c.Printf("gate %d passed", index+1)
}

func (c *Console) SessionFinished() {
	c.Printf("*** %s ***", c.messages.Finished)
}

// Travel prints the road position when it crosses a whole unit of ten.
func (c *Console) Travel(distance float64) {
	if !c.travel {
		return
	}
	step := int(distance / 10)
	c.mu.Lock()
	if step == c.lastStep {
		c.mu.Unlock()
		return
	}
	c.lastStep = step
	c.mu.Unlock()
	c.Printf("  ... %.0f", distance)
}

// PopupCleared is a no-op; console lines cannot be retracted.
func (c *Console) PopupCleared() {}

func (c *Console) RecordingChanged(recording bool) {
	if recording {
		c.Printf("● recording (press Enter to stop)")
		return
	}
	c.Printf("○ idle")
}

// Bar renders fraction as a bar of width cells.
func Bar(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	full := int(fraction*float64(width) + 0.5)
	return strings.Repeat("#", full) + strings.Repeat("-", width-full)
}

func popupMarker(kind game.PopupKind) string {
	switch kind {
	case game.PopupSuccess:
		return "[+]"
	case game.PopupError:
		return "[!]"
	}
	return "[i]"
}

// PrintSummary writes the attempt summary of a finished session.
func PrintSummary(w io.Writer, words []string, s game.Summary) {
	fmt.Fprintf(w, "Passed %d/%d gates in %d attempts (%d misses)\n", s.Passed, s.Gates, s.Attempts, s.Misses)
	for i := range s.Gates {
		word := ""
		if i < len(words) {
			word = words[i]
		}
		line := fmt.Sprintf("  %2d. %-12s attempts=%d", i+1, word, s.PerGate[i])
		if s.Closest[i] != "" {
			line += fmt.Sprintf(" closest miss=%q", s.Closest[i])
		}
		fmt.Fprintln(w, line)
	}
}
