// Package mock provides test doubles for the game package's interfaces.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/game"
)

var (
	_ game.Sink              = (*Sink)(nil)
	_ game.Traveler          = (*Sink)(nil)
	_ game.PopupClearer      = (*Sink)(nil)
	_ game.RecordingObserver = (*Sink)(nil)
	_ game.Submitter         = (*Submitter)(nil)
)

// Event is one recorded sink notification.
type Event struct {
	// Kind is the method name, e.g. "WordChanged" or "Popup".
	Kind string
	Text string
	// PopupKind is set for Popup events.
	PopupKind game.PopupKind
	Index     int
	Value     float64
	Flag      bool
}

// String renders the event compactly for test failure messages.
func (e Event) String() string {
	switch e.Kind {
	case "WordChanged":
		return fmt.Sprintf("WordChanged(%s)", e.Text)
	case "Progress":
		return fmt.Sprintf("Progress(%.2f)", e.Value)
	case "Popup":
		return fmt.Sprintf("Popup(%s, %s)", e.Text, e.PopupKind)
	case "GatePassed":
		return fmt.Sprintf("GatePassed(%d)", e.Index)
	case "Travel":
		return fmt.Sprintf("Travel(%.2f)", e.Value)
	case "RecordingChanged":
		return fmt.Sprintf("RecordingChanged(%t)", e.Flag)
	}
	return e.Kind + "()"
}

// Sink records every notification. It is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	events []Event
}

func (s *Sink) add(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *Sink) WordChanged(word string) { s.add(Event{Kind: "WordChanged", Text: word}) }
func (s *Sink) Progress(f float64)      { s.add(Event{Kind: "Progress", Value: f}) }
func (s *Sink) GatePassed(i int)        { s.add(Event{Kind: "GatePassed", Index: i}) }
func (s *Sink) SessionFinished()        { s.add(Event{Kind: "SessionFinished"}) }
func (s *Sink) Travel(d float64)        { s.add(Event{Kind: "Travel", Value: d}) }
func (s *Sink) PopupCleared()           { s.add(Event{Kind: "PopupCleared"}) }

func (s *Sink) Popup(text string, kind game.PopupKind) {
	s.add(Event{Kind: "Popup", Text: text, PopupKind: kind})
}

func (s *Sink) RecordingChanged(recording bool) {
	s.add(Event{Kind: "RecordingChanged", Flag: recording})
}

// Events returns a copy of all recorded events.
func (s *Sink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Of returns the recorded events of one kind.
func (s *Sink) Of(kind string) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events of kind were recorded.
func (s *Sink) Count(kind string) int { return len(s.Of(kind)) }

// LastPopup returns the most recent popup, or a zero event.
func (s *Sink) LastPopup() Event {
	p := s.Of("Popup")
	if len(p) == 0 {
		return Event{}
	}
	return p[len(p)-1]
}

// Reset clears the recorded events.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Submitter answers submissions from a script of verdicts. Once the script is
// exhausted the last entry repeats.
type Submitter struct {
	mu      sync.Mutex
	replies []Reply
	clips   []audio.Clip
	// Block, when non-nil, is received from before replying. Tests use it to
	// hold a submission in flight.
	Block chan struct{}
}

// Reply is one scripted submitter answer.
type Reply struct {
	Verdict game.Verdict
	Err     error
}

// NewSubmitter returns a submitter scripted with replies.
func NewSubmitter(replies ...Reply) *Submitter {
	return &Submitter{replies: replies}
}

// Accept is a shorthand reply for a successful transcription.
func Accept(normalized string) Reply {
	return Reply{Verdict: game.Verdict{Success: true, Normalized: normalized}}
}

// Submit records clip and returns the next scripted reply.
func (m *Submitter) Submit(ctx context.Context, clip audio.Clip) (game.Verdict, error) {
	m.mu.Lock()
	m.clips = append(m.clips, clip)
	block := m.Block
	var r Reply
	if len(m.replies) > 0 {
		r = m.replies[0]
		if len(m.replies) > 1 {
			m.replies = m.replies[1:]
		}
	}
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return game.Verdict{}, ctx.Err()
		}
	}
	return r.Verdict, r.Err
}

// Clips returns the clips received so far.
func (m *Submitter) Clips() []audio.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audio.Clip(nil), m.clips...)
}
