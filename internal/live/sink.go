package live

import (
	"context"

	"github.com/MrWong99/wordgate/internal/observe"
	"github.com/MrWong99/wordgate/pkg/game"
)

// Compile-time interface assertions.
var (
	_ game.Sink              = (*eventSink)(nil)
	_ game.Traveler          = (*eventSink)(nil)
	_ game.PopupClearer      = (*eventSink)(nil)
	_ game.RecordingObserver = (*eventSink)(nil)
)

// eventSink turns session notifications into [Event] values for the
// connection's writer. Travel events are dropped when the writer falls
// behind; every other event waits for room unless the session is over.
type eventSink struct {
	done    <-chan struct{}
	events  chan Event
	prompt  string
	metrics *observe.Metrics
}

func newEventSink(done <-chan struct{}, buffer int, prompt string, m *observe.Metrics) *eventSink {
	return &eventSink{
		done:    done,
		events:  make(chan Event, buffer),
		prompt:  prompt,
		metrics: m,
	}
}

func (s *eventSink) emit(e Event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}

func (s *eventSink) WordChanged(word string) {
	s.emit(Event{Type: EvtWord, Word: word, Prompt: s.prompt})
}

func (s *eventSink) Progress(fraction float64) {
	s.emit(Event{Type: EvtProgress, Value: ptr(fraction)})
}

func (s *eventSink) Popup(text string, kind game.PopupKind) {
	s.emit(Event{Type: EvtPopup, Text: text, Kind: kind.String()})
}

func (s *eventSink) GatePassed(index int) {
	s.metrics.RecordGatePassed(context.Background())
	s.emit(Event{Type: EvtGatePassed, Gate: ptr(index)})
}

func (s *eventSink) SessionFinished() {
	s.metrics.RecordSessionFinished(context.Background())
	s.emit(Event{Type: EvtFinished})
}

func (s *eventSink) Travel(distance float64) {
	select {
	case s.events <- Event{Type: EvtTravel, Value: ptr(distance)}:
	default:
	}
}

func (s *eventSink) PopupCleared() {
	s.emit(Event{Type: EvtPopupCleared})
}

func (s *eventSink) RecordingChanged(recording bool) {
	s.emit(Event{Type: EvtRecording, Recording: ptr(recording)})
}
