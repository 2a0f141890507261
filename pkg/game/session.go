package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/wordgate/pkg/audio"
)

// Defaults for [Config].
const (
	DefaultTransitionDuration = 2000 * time.Millisecond
	DefaultPopupDuration      = 2000 * time.Millisecond
	DefaultGateSpacing        = 40.0
	DefaultPassMargin         = 10.0
)

// Config holds the immutable parameters of a [Session].
type Config struct {
	// TransitionDuration is the length of the walk between gates.
	TransitionDuration time.Duration
	// PopupDuration is how long a popup stays visible.
	PopupDuration time.Duration
	// GateSpacing is the road distance between consecutive gates. Gate i
	// stands at (i+1)*GateSpacing.
	GateSpacing float64
	// PassMargin is how far past a gate the walk stops.
	PassMargin float64
	// Messages are the player-facing texts.
	Messages Messages
	// Now stamps attempts. Defaults to time.Now.
	Now func() time.Time
}

// Option configures a [Session].
type Option func(*Config)

// WithTransitionDuration overrides [DefaultTransitionDuration].
func WithTransitionDuration(d time.Duration) Option {
	return func(c *Config) { c.TransitionDuration = d }
}

// WithPopupDuration overrides [DefaultPopupDuration].
func WithPopupDuration(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PopupDuration = d
		}
	}
}

// WithGeometry sets the gate spacing and the pass margin.
func WithGeometry(spacing, margin float64) Option {
	return func(c *Config) {
		if spacing > 0 {
			c.GateSpacing = spacing
		}
		if margin >= 0 {
			c.PassMargin = margin
		}
	}
}

// WithMessages replaces the message set.
func WithMessages(m Messages) Option {
	return func(c *Config) { c.Messages = m }
}

// WithClock sets the clock used to stamp attempts.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}

// Outcome is the result of handing an answer to a [Session].
type Outcome int

const (
	// OutcomeIgnored means the session was not accepting answers.
	OutcomeIgnored Outcome = iota
	// OutcomeMatch means the gate was passed and a transition started.
	OutcomeMatch
	// OutcomeMismatch means the answer was wrong; the player may retry.
	OutcomeMismatch
	// OutcomeFailed means the answer service failed; the player may retry.
	OutcomeFailed
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeFailed:
		return "failed"
	}
	return "ignored"
}

// Verdict is the answer service's response to one recording.
type Verdict struct {
	// Success is false when the service could not recognise speech.
	Success bool
	// Normalized is the transcription to validate.
	Normalized string
	// Message explains a failure.
	Message string
}

// Submission is a recording handed out by [Session.ToggleRecording] for the
// caller to send to the answer service. Its result goes back through
// [Session.Deliver].
type Submission struct {
	// Clip is the recorded audio.
	Clip audio.Clip
	// Word is the word the recording answers.
	Word string
	// Gate is the index of the gate being answered.
	Gate int

	generation uint64
}

// Session is the word-gate state machine. It owns the session state, the gate
// records and the recording controller. All methods must be called from one
// goroutine; [Runner] provides that.
type Session struct {
	cfg  Config
	rec  *Recorder
	sink Sink

	vocab Vocabulary
	gates []GateRecord

	phase      Phase
	index      int
	distance   float64
	transition *Transition
	err        error
	finished   bool

	popupLeft time.Duration
	popupOn   bool

	// generation tags submissions so that results for a session that has
	// since been reset are dropped.
	generation uint64
	attempts   []Attempt
}

// NewSession returns a session in [PhaseLoading]. A nil recorder behaves as
// an unavailable one; a nil sink discards notifications.
func NewSession(rec *Recorder, sink Sink, opts ...Option) *Session {
	cfg := Config{
		TransitionDuration: DefaultTransitionDuration,
		PopupDuration:      DefaultPopupDuration,
		GateSpacing:        DefaultGateSpacing,
		PassMargin:         DefaultPassMargin,
		Messages:           EnglishMessages,
		Now:                time.Now,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if rec == nil {
		rec = NewRecorder(nil)
		rec.MarkUnavailable()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Session{cfg: cfg, rec: rec, sink: sink}
}

// Config returns the session parameters.
func (s *Session) Config() Config { return s.cfg }

// Recorder returns the session's recording controller.
func (s *Session) Recorder() *Recorder { return s.rec }

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Index returns the current gate index. It equals the number of words once
// the session is finished.
func (s *Session) Index() int { return s.index }

// Err returns the error that put the session into [PhaseError].
func (s *Session) Err() error { return s.err }

// Distance returns the avatar's position along the road.
func (s *Session) Distance() float64 { return s.distance }

// Vocabulary returns the loaded vocabulary.
func (s *Session) Vocabulary() Vocabulary { return s.vocab }

// CurrentWord returns the word of the current gate, "" outside play.
func (s *Session) CurrentWord() string {
	if s.index < len(s.vocab.Words) && (s.phase == PhasePlaying || s.phase == PhaseTransitioning) {
		return s.vocab.Words[s.index]
	}
	return ""
}

// State returns a snapshot of the mutable session fields.
func (s *Session) State() State {
	return State{
		Phase:         s.phase,
		CurrentIndex:  s.index,
		Recording:     s.rec.Recording(),
		Transitioning: s.phase == PhaseTransitioning,
	}
}

// Gates returns a copy of the gate records.
func (s *Session) Gates() []GateRecord {
	return append([]GateRecord(nil), s.gates...)
}

// Attempts returns a copy of the answer history.
func (s *Session) Attempts() []Attempt {
	return append([]Attempt(nil), s.attempts...)
}

// Summary aggregates the answer history.
func (s *Session) Summary() Summary {
	return Summarize(len(s.gates), s.attempts)
}

// GatePosition returns the road position of gate i.
func (s *Session) GatePosition(i int) float64 {
	return float64(i+1) * s.cfg.GateSpacing
}

// Begin starts play with v. It is only valid in [PhaseLoading]; later calls
// are ignored. An invalid vocabulary fails the session.
func (s *Session) Begin(v Vocabulary) error {
	if s.phase != PhaseLoading {
		return nil
	}
	if err := v.Validate(); err != nil {
		s.Fail(err)
		return err
	}
	s.vocab = v.Clone()
	s.gates = make([]GateRecord, len(v.Words))
	for i, w := range v.Words {
		s.gates[i] = GateRecord{Index: i, Word: w}
	}
	s.index = 0
	s.distance = 0
	s.phase = PhasePlaying
	s.sink.WordChanged(s.vocab.Words[0])
	s.sink.Progress(0)
	return nil
}

// Fail moves a loading session into the terminal [PhaseError] and reports
// the failure. Sessions past loading are not affected.
func (s *Session) Fail(err error) {
	if s.phase != PhaseLoading {
		return
	}
	s.fatal(err, s.cfg.Messages.LoadFailed)
}

func (s *Session) fatal(err error, msg string) {
	slog.Error("game: session failed", "phase", s.phase.String(), "err", err)
	s.rec.Disable()
	s.phase = PhaseError
	s.err = err
	s.transition = nil
	s.popup(msg, PopupError)
}

// Load fetches the vocabulary from src and begins play. It blocks; [Runner]
// performs the fetch off its loop instead.
func (s *Session) Load(ctx context.Context, src Source) error {
	v, err := src.Load(ctx)
	if err != nil {
		err = fmt.Errorf("game: load vocabulary: %w", err)
		s.Fail(err)
		return err
	}
	return s.Begin(v)
}

// PermissionResult applies the outcome of the device permission request. A
// refusal disables recording for the session; progress stays visible.
func (s *Session) PermissionResult(err error) {
	s.rec.ApplyPermission(err)
	if err == nil {
		return
	}
	slog.Warn("game: recording unavailable", "err", err)
	s.notifyRecording()
	s.popup(s.cfg.Messages.NoDevice, PopupError)
}

// ToggleRecording starts a recording when idle, or stops the current one and
// returns it for submission. It is a no-op outside [PhasePlaying], while a
// submission is in flight, and when recording is unavailable.
func (s *Session) ToggleRecording(ctx context.Context) *Submission {
	if s.phase != PhasePlaying {
		return nil
	}
	if s.rec.Recording() {
		clip, ok := s.rec.Stop()
		if !ok {
			return nil
		}
		s.notifyRecording()
		s.popup(s.cfg.Messages.Listening, PopupInfo)
		return &Submission{
			Clip:       clip,
			Word:       s.vocab.Words[s.index],
			Gate:       s.index,
			generation: s.generation,
		}
	}
	started, err := s.rec.Start(ctx)
	if err != nil {
		slog.Warn("game: could not start recording", "err", err)
		s.popup(s.cfg.Messages.NoDevice, PopupError)
		return nil
	}
	if started {
		s.notifyRecording()
	}
	return nil
}

// Deliver applies the answer service's result for sub. Results for a session
// that was reset after sub was issued are ignored. A transport error or an
// unsuccessful verdict is reported as a popup and leaves the gate unchanged.
func (s *Session) Deliver(sub *Submission, v Verdict, err error) (Outcome, error) {
	if sub == nil {
		return OutcomeIgnored, nil
	}
	s.rec.Delivered()
	if sub.generation != s.generation {
		return OutcomeIgnored, nil
	}
	if s.phase != PhasePlaying {
		return OutcomeIgnored, nil
	}
	if err != nil {
		slog.Warn("game: answer submission failed", "gate", sub.Gate, "err", err)
		s.popup(s.cfg.Messages.NetworkError, PopupError)
		return OutcomeFailed, nil
	}
	if !v.Success {
		slog.Info("game: answer not recognised", "gate", sub.Gate, "message", v.Message)
		s.popup(s.cfg.Messages.RecognitionFailed, PopupError)
		return OutcomeFailed, nil
	}
	return s.Submit(v.Normalized)
}

// Submit validates text against the current word. A match records the gate
// as passed, reports success and starts the transition to the next gate. A
// mismatch reports the text verbatim and keeps the gate. Outside
// [PhasePlaying] the call is ignored. A word without an answer is a broken
// invariant: the session moves to [PhaseError] and the error is returned.
func (s *Session) Submit(text string) (Outcome, error) {
	if s.phase != PhasePlaying || s.index >= len(s.vocab.Words) {
		return OutcomeIgnored, nil
	}
	word := s.vocab.Words[s.index]
	ok, err := Validate(word, s.vocab.Answers, text)
	if err != nil {
		s.fatal(err, s.cfg.Messages.LoadFailed)
		return OutcomeIgnored, err
	}

	expected := s.vocab.Answers[word]
	s.attempts = append(s.attempts, Attempt{
		Gate:       s.index,
		Word:       word,
		Expected:   expected,
		Answer:     text,
		Correct:    ok,
		Similarity: Similarity(expected, text),
		At:         s.cfg.Now(),
	})

	if !ok {
		s.popup(s.cfg.Messages.wrong(text), PopupError)
		return OutcomeMismatch, nil
	}

	// A typed answer may arrive while the microphone is open.
	if s.rec.Recording() {
		s.rec.Abort()
		s.notifyRecording()
	}
	s.gates[s.index].Passed = true
	s.popup(s.cfg.Messages.correct(text), PopupSuccess)
	s.sink.GatePassed(s.index)
	target := s.GatePosition(s.index) + s.cfg.PassMargin
	s.transition = NewTransition(s.distance, target, s.cfg.TransitionDuration)
	s.phase = PhaseTransitioning
	return OutcomeMatch, nil
}

// Advance moves the session clock forward by delta: popups expire and a
// running transition steps. When the transition completes the session moves
// to the next gate or finishes.
func (s *Session) Advance(delta time.Duration) {
	if delta < 0 {
		delta = 0
	}
	if s.popupOn {
		s.popupLeft -= delta
		if s.popupLeft <= 0 {
			s.popupOn = false
			if c, ok := s.sink.(PopupClearer); ok {
				c.PopupCleared()
			}
		}
	}

	if s.phase != PhaseTransitioning || s.transition == nil {
		return
	}
	pos, done := s.transition.Step(delta)
	s.distance = pos
	if t, ok := s.sink.(Traveler); ok {
		t.Travel(pos)
	}
	if done {
		s.completeTransition()
	}
}

func (s *Session) completeTransition() {
	s.transition = nil
	s.index++
	s.sink.Progress(float64(s.index) / float64(len(s.vocab.Words)))

	if s.index < len(s.vocab.Words) {
		s.phase = PhasePlaying
		s.sink.WordChanged(s.vocab.Words[s.index])
		return
	}

	s.phase = PhaseFinished
	s.rec.Disable()
	if !s.finished {
		s.finished = true
		s.popup(s.cfg.Messages.Finished, PopupSuccess)
		s.sink.SessionFinished()
	}
}

// Reset abandons the session and returns it to [PhaseLoading]. Any running
// transition is cancelled and results of outstanding submissions will be
// ignored. The caller must load the vocabulary again.
func (s *Session) Reset() {
	s.generation++
	s.rec.Reset()
	s.vocab = Vocabulary{}
	s.gates = nil
	s.phase = PhaseLoading
	s.index = 0
	s.distance = 0
	s.transition = nil
	s.err = nil
	s.finished = false
	s.popupOn = false
	s.popupLeft = 0
	s.attempts = nil
	s.notifyRecording()
}

func (s *Session) popup(text string, kind PopupKind) {
	s.popupOn = true
	s.popupLeft = s.cfg.PopupDuration
	s.sink.Popup(text, kind)
}

func (s *Session) notifyRecording() {
	if o, ok := s.sink.(RecordingObserver); ok {
		o.RecordingChanged(s.rec.Recording())
	}
}
