package game

// PopupKind classifies a transient popup message.
type PopupKind int

const (
	PopupInfo PopupKind = iota
	PopupSuccess
	PopupError
)

// String returns "info", "success" or "error".
func (k PopupKind) String() string {
	switch k {
	case PopupSuccess:
		return "success"
	case PopupError:
		return "error"
	}
	return "info"
}

// Sink receives presentation notifications from a [Session]. Calls are made
// from the goroutine driving the session and must not block for long.
type Sink interface {
	// WordChanged announces the word of the gate the player now stands at.
	WordChanged(word string)
	// Progress reports the fraction of passed gates in [0, 1].
	Progress(fraction float64)
	// Popup shows a transient message. It replaces any visible popup.
	Popup(text string, kind PopupKind)
	// GatePassed is called once per gate when its answer is accepted.
	GatePassed(index int)
	// SessionFinished is called exactly once when the last gate is passed.
	SessionFinished()
}

// Traveler is implemented by sinks that animate the walk between gates.
// Travel receives the eased distance travelled along the road on every tick
// of a transition.
type Traveler interface {
	Travel(distance float64)
}

// PopupClearer is implemented by sinks that hide popups themselves. It is
// called when the visible popup's display time has elapsed.
type PopupClearer interface {
	PopupCleared()
}

// RecordingObserver is implemented by sinks that render the record button.
type RecordingObserver interface {
	RecordingChanged(recording bool)
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) WordChanged(string)      {}
func (NopSink) Progress(float64)        {}
func (NopSink) Popup(string, PopupKind) {}
func (NopSink) GatePassed(int)          {}
func (NopSink) SessionFinished()        {}

// MultiSink fans notifications out to several sinks in order. Optional
// interfaces are forwarded to the members that implement them.
type MultiSink []Sink

var (
	_ Sink              = MultiSink(nil)
	_ Traveler          = MultiSink(nil)
	_ PopupClearer      = MultiSink(nil)
	_ RecordingObserver = MultiSink(nil)
)

func (m MultiSink) WordChanged(word string) {
	for _, s := range m {
		s.WordChanged(word)
	}
}

func (m MultiSink) Progress(fraction float64) {
	for _, s := range m {
		s.Progress(fraction)
	}
}

func (m MultiSink) Popup(text string, kind PopupKind) {
	for _, s := range m {
		s.Popup(text, kind)
	}
}

func (m MultiSink) GatePassed(index int) {
	for _, s := range m {
		s.GatePassed(index)
	}
}

func (m MultiSink) SessionFinished() {
	for _, s := range m {
		s.SessionFinished()
	}
}

func (m MultiSink) Travel(distance float64) {
	for _, s := range m {
		if t, ok := s.(Traveler); ok {
			t.Travel(distance)
		}
	}
}

func (m MultiSink) PopupCleared() {
	for _, s := range m {
		if c, ok := s.(PopupClearer); ok {
			c.PopupCleared()
		}
	}
}

func (m MultiSink) RecordingChanged(recording bool) {
	for _, s := range m {
		if o, ok := s.(RecordingObserver); ok {
			o.RecordingChanged(recording)
		}
	}
}
