// Package answer implements the answer check behind POST /check_answer: a
// recorded clip is transcribed, the transcript is normalised, and the outcome
// is journalled and counted.
//
// A [Checker] never fails the request for a bad recording. Provider errors
// and silence come back as an unsuccessful [Result] so the player can simply
// try again.
package answer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/wordgate/internal/normalize"
	"github.com/MrWong99/wordgate/internal/observe"
	"github.com/MrWong99/wordgate/internal/phonetic"
	"github.com/MrWong99/wordgate/internal/vocab"
	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/game"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
)

// Messages returned in [Result.Message].
const (
	MessageUnrecognized = "could not recognize speech"
	messageFailedPrefix = "transcription failed: "
)

// keywordBoost is the weight given to expected answers.
const keywordBoost = 2

// Result is the JSON body of a check.
type Result struct {
	Success     bool   `json:"success"`
	Transcribed string `json:"transcribed"`
	Normalized  string `json:"normalized,omitempty"`
	Message     string `json:"message,omitempty"`
	// SoundsLike is the expected answer nearest to a transcript that is not
	// itself an answer. Informational; it never changes Success.
	SoundsLike string `json:"sounds_like,omitempty"`
}

// Verdict converts r for the game session.
func (r Result) Verdict() game.Verdict {
	return game.Verdict{Success: r.Success, Normalized: r.Normalized, Message: r.Message}
}

// Option configures a [Checker].
type Option func(*Checker)

// WithJournal records every check in j. A nil journal disables journalling.
func WithJournal(j Journal) Option {
	return func(c *Checker) { c.journal = j }
}

// WithMetrics records check metrics in m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Checker) { c.metrics = m }
}

// WithLanguage sets the recognition language passed to the provider.
func WithLanguage(lang string) Option {
	return func(c *Checker) { c.language = lang }
}

// WithKeywords boosts the answers of src's vocabulary during recognition.
func WithKeywords(src game.Source) Option {
	return func(c *Checker) { c.keywords = src }
}

// WithHints attaches [Result.SoundsLike] using m. Requires [WithKeywords].
func WithHints(m *phonetic.Matcher) Option {
	return func(c *Checker) { c.hints = m }
}

// WithProviderName labels metrics and journal records when the provider does
// not report its own name.
func WithProviderName(name string) Option {
	return func(c *Checker) { c.providerName = name }
}

// Checker transcribes and normalises answers. It is safe for concurrent use.
type Checker struct {
	stt          stt.Provider
	journal      Journal
	metrics      *observe.Metrics
	language     string
	keywords     game.Source
	hints        *phonetic.Matcher
	providerName string
	now          func() time.Time
}

// Compile-time interface assertion.
var _ game.Submitter = (*Checker)(nil)

// New returns a checker transcribing with p.
func New(p stt.Provider, opts ...Option) *Checker {
	c := &Checker{
		stt: p,
		now: time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Check transcribes clip and returns the outcome.
func (c *Checker) Check(ctx context.Context, clip audio.Clip) Result {
	ctx, span := observe.StartCheck(ctx, clip.ContentType, len(clip.Data))
	var checkErr error

	rec := Record{
		ID:            uuid.NewString(),
		CorrelationID: observe.CorrelationID(ctx),
		ContentType:   clip.ContentType,
		Bytes:         len(clip.Data),
		Provider:      c.providerName,
		At:            c.now(),
	}

	var res Result
	switch {
	case clip.Empty():
		res = Result{Message: MessageUnrecognized}
		rec.Status = StatusUnrecognized

	default:
		answers := c.answers(ctx)
		start := c.now()
		tr, err := c.stt.Transcribe(ctx, clip, c.options(answers))
		rec.Latency = c.now().Sub(start)
		if tr.Provider != "" {
			rec.Provider = tr.Provider
		}
		c.recordProvider(ctx, rec.Provider, rec.Latency, err)

		switch {
		case errors.Is(err, stt.ErrNoSpeech):
			res = Result{Message: MessageUnrecognized}
			rec.Status = StatusUnrecognized
		case err != nil:
			observe.Logger(ctx).Warn("answer: transcription failed", "err", err, "provider", rec.Provider)
			checkErr = err
			res = Result{Message: messageFailedPrefix + err.Error()}
			rec.Status = StatusFailed
		case tr.Empty():
			res = Result{Message: MessageUnrecognized}
			rec.Status = StatusUnrecognized
		default:
			raw := strings.TrimSpace(tr.Text)
			res = Result{Success: true, Transcribed: raw, Normalized: normalize.Text(raw)}
			res.SoundsLike = c.hint(res.Normalized, answers)
			rec.Status = StatusRecognized
		}
	}

	rec.Transcript = res.Transcribed
	rec.Normalized = res.Normalized
	rec.Message = res.Message
	c.metrics.RecordCheck(ctx, rec.Status)

	if c.journal != nil {
		if err := c.journal.Write(ctx, rec); err != nil {
			observe.Logger(ctx).Error("answer: journal write failed", "err", err, "check_id", rec.ID)
		}
	}
	observe.Logger(ctx).LogAttrs(ctx, slog.LevelDebug, "answer checked",
		slog.String("check_id", rec.ID),
		slog.String("status", rec.Status),
		slog.String("normalized", rec.Normalized),
		slog.Duration("latency", rec.Latency),
	)
	observe.EndCheck(span, rec.Status, checkErr)
	return res
}

// Submit implements [game.Submitter] for sessions hosted in this process.
func (c *Checker) Submit(ctx context.Context, clip audio.Clip) (game.Verdict, error) {
	return c.Check(ctx, clip).Verdict(), nil
}

// answers returns the expected answers of the keyword source, if any.
func (c *Checker) answers(ctx context.Context) []string {
	if c.keywords == nil {
		return nil
	}
	return vocab.Keywords(ctx, c.keywords)
}

func (c *Checker) options(answers []string) stt.Options {
	opts := stt.Options{Language: c.language}
	for _, k := range answers {
		opts.Keywords = append(opts.Keywords, stt.KeywordBoost{Keyword: k, Boost: keywordBoost})
	}
	return opts
}

// hint returns the answer normalized probably meant, or "" when normalized
// already is an answer or nothing is close.
func (c *Checker) hint(normalized string, answers []string) string {
	if c.hints == nil || normalized == "" {
		return ""
	}
	for _, a := range answers {
		if normalize.Text(a) == normalized {
			return ""
		}
	}
	m, ok := c.hints.Nearest(normalized, answers)
	if !ok {
		return ""
	}
	return m.Answer
}

func (c *Checker) recordProvider(ctx context.Context, provider string, latency time.Duration, err error) {
	if provider == "" {
		provider = "unknown"
	}
	status := "ok"
	if err != nil && !errors.Is(err, stt.ErrNoSpeech) {
		status = "error"
		c.metrics.RecordProviderError(ctx, provider, "stt")
	}
	c.metrics.RecordProviderRequest(ctx, provider, "stt", status)
	c.metrics.STTDuration.Record(ctx, latency.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
