// Package live hosts game sessions for browsers over a websocket.
//
// Each connection gets its own [game.Session] driven by a [game.Runner] on the
// server. The browser's microphone becomes a capture device fed by binary
// frames, submissions go straight to the in-process answer checker, and
// presentation notifications are streamed back as JSON events.
//
// Protocol: the first client frame must be a hello,
//
//	{"type":"hello","content_type":"audio/webm;codecs=opus","microphone":true}
//
// which is answered with {"type":"ready","session_id":"..."}. After that the
// client sends start, stop, toggle, restart and answer messages as text
// frames and audio fragments as binary frames.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/wordgate/internal/observe"
	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/game"
)

const (
	defaultHelloTimeout  = 10 * time.Second
	defaultReadLimit     = 1 << 20
	defaultEventBuffer   = 64
	defaultSubmitTimeout = 30 * time.Second
	writeTimeout         = 5 * time.Second
)

var (
	errBadHello   = errors.New("live: expected hello")
	errClientGone = errors.New("live: client disconnected")
)

// Option configures a [Handler].
type Option func(*Handler)

// WithSessionOptions supplies the options for every new session. fn is called
// per connection so configuration reloads reach new sessions.
func WithSessionOptions(fn func() []game.Option) Option {
	return func(h *Handler) { h.sessionOptions = fn }
}

// WithTick sets the frame period of each session's runner.
func WithTick(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.tick = d
		}
	}
}

// WithOriginPatterns allows cross-origin websocket connections from hosts
// matching patterns (see [websocket.AcceptOptions]).
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) { h.origins = append([]string(nil), patterns...) }
}

// WithMetrics records live session metrics in m.
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithReadLimit caps the size of a single client frame.
func WithReadLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithHelloTimeout bounds how long a new connection may take to say hello.
func WithHelloTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.helloTimeout = d
		}
	}
}

// Handler accepts live session websockets. It is safe for concurrent use.
type Handler struct {
	source game.Source
	submit game.Submitter

	sessionOptions func() []game.Option
	tick           time.Duration
	origins        []string
	metrics        *observe.Metrics
	readLimit      int64
	helloTimeout   time.Duration
	submitTimeout  time.Duration
	eventBuffer    int
}

// NewHandler returns a handler whose sessions load their vocabulary from src
// and check recordings with submit.
func NewHandler(src game.Source, submit game.Submitter, opts ...Option) *Handler {
	h := &Handler{
		source:         src,
		submit:         submit,
		sessionOptions: func() []game.Option { return nil },
		tick:           game.DefaultTick,
		readLimit:      defaultReadLimit,
		helloTimeout:   defaultHelloTimeout,
		submitTimeout:  defaultSubmitTimeout,
		eventBuffer:    defaultEventBuffer,
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

// ServeHTTP upgrades the request and runs a session until either side
// closes the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		observe.Logger(r.Context()).Warn("live: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.readLimit)

	id := uuid.NewString()
	log := observe.Logger(r.Context()).With("session_id", id)

	err = h.serve(r.Context(), conn, id, log)
	switch {
	case err == nil, errors.Is(err, errClientGone), errors.Is(err, context.Canceled):
		_ = conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, errBadHello):
		log.Debug("live: rejected connection", "err", err)
		_ = conn.Close(websocket.StatusPolicyViolation, "expected hello")
	default:
		log.Warn("live: session ended", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "session error")
	}
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, id string, log *slog.Logger) error {
	hello, err := h.readHello(ctx, conn)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	opts := h.sessionOptions()
	if hello.Locale != "" {
		opts = append(opts, game.WithMessages(game.MessagesFor(hello.Locale)))
	}
	dev := newRemoteDevice(hello)
	sink := newEventSink(gctx.Done(), h.eventBuffer, "", h.metrics)
	session := game.NewSession(game.NewRecorder(dev), sink, opts...)
	sink.prompt = session.Config().Messages.Prompt
	runner := game.NewRunner(session, h.source, h.submit,
		game.WithTick(h.tick),
		game.WithSubmitTimeout(h.submitTimeout),
	)

	if err := wsjson.Write(ctx, conn, Event{Type: EvtReady, SessionID: id}); err != nil {
		return fmt.Errorf("live: write ready: %w", err)
	}

	h.metrics.LiveSessions.Add(ctx, 1)
	defer h.metrics.LiveSessions.Add(context.Background(), -1)
	log.Info("live: session started",
		"content_type", hello.ContentType,
		"microphone", hello.Microphone,
	)
	start := time.Now()

	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return writeLoop(gctx, conn, sink) })
	g.Go(func() error { return readLoop(gctx, conn, runner, dev, sink, log) })
	err = g.Wait()

	log.Info("live: session closed", "duration", time.Since(start))
	return err
}

func (h *Handler) readHello(ctx context.Context, conn *websocket.Conn) (ClientMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, h.helloTimeout)
	defer cancel()

	var msg ClientMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %w", errBadHello, err)
	}
	if msg.Type != MsgHello {
		return ClientMessage{}, fmt.Errorf("%w: first message was %q", errBadHello, msg.Type)
	}
	if msg.ContentType == "" {
		msg.ContentType = audio.ContentTypeWebM
	}
	return msg, nil
}

func writeLoop(ctx context.Context, conn *websocket.Conn, sink *eventSink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sink.events:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				return fmt.Errorf("live: write %s: %w", ev.Type, err)
			}
		}
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, runner *game.Runner, dev *remoteDevice, sink *eventSink, log *slog.Logger) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case websocket.CloseStatus(err) != -1, errors.Is(err, io.EOF):
				return errClientGone
			}
			return fmt.Errorf("live: read: %w", err)
		}

		if typ == websocket.MessageBinary {
			if !dev.feed(data) {
				log.Debug("live: dropped audio outside recording", "bytes", len(data))
			}
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sink.emit(Event{Type: EvtError, Message: "invalid message"})
			continue
		}
		if err := dispatch(ctx, runner, sink, msg); err != nil {
			if errors.Is(err, game.ErrRunnerStopped) || ctx.Err() != nil {
				return err
			}
			log.Warn("live: command failed", "type", msg.Type, "err", err)
		}
	}
}

func dispatch(ctx context.Context, runner *game.Runner, sink *eventSink, msg ClientMessage) error {
	switch msg.Type {
	case MsgStart:
		return runner.SetRecording(ctx, true)
	case MsgStop:
		return runner.SetRecording(ctx, false)
	case MsgToggle:
		return runner.ToggleRecording(ctx)
	case MsgRestart:
		return runner.Restart(ctx)
	case MsgAnswer:
		_, err := runner.SubmitText(ctx, msg.Text)
		return err
	case MsgHello:
		sink.emit(Event{Type: EvtError, Message: "duplicate hello"})
	default:
		sink.emit(Event{Type: EvtError, Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
	return nil
}
