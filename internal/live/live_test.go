package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/wordgate/pkg/game"
	"github.com/MrWong99/wordgate/pkg/game/mock"
)

var testVocabulary = game.Vocabulary{
	Words:   []string{"кошка", "дом"},
	Answers: map[string]string{"кошка": "cat", "дом": "house"},
}

func staticSource(v game.Vocabulary) game.Source {
	return game.SourceFunc(func(context.Context) (game.Vocabulary, error) { return v, nil })
}

func newTestHandler(sub game.Submitter) *Handler {
	return NewHandler(staticSource(testVocabulary), sub,
		WithTick(5*time.Millisecond),
		WithSessionOptions(func() []game.Option {
			return []game.Option{
				game.WithTransitionDuration(20 * time.Millisecond),
				game.WithPopupDuration(20 * time.Millisecond),
			}
		}),
	)
}

type testClient struct {
	t      *testing.T
	ctx    context.Context
	conn   *websocket.Conn
	events chan Event
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, h *Handler, hello ClientMessage) *testClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	c := &testClient{t: t, ctx: ctx, conn: conn, events: make(chan Event, 256)}
	hello.Type = MsgHello
	c.send(hello)

	go func() {
		defer close(c.events)
		for {
			var ev Event
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				return
			}
			select {
			case c.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return c
}

func (c *testClient) send(msg ClientMessage) {
	c.t.Helper()
	if err := wsjson.Write(c.ctx, c.conn, msg); err != nil {
		c.t.Fatalf("write %s: %v", msg.Type, err)
	}
}

func (c *testClient) sendAudio(p []byte) {
	c.t.Helper()
	if err := c.conn.Write(c.ctx, websocket.MessageBinary, p); err != nil {
		c.t.Fatalf("write audio: %v", err)
	}
}

// tryFor returns the first event of type typ accepted by match that arrives
// within d.
func (c *testClient) tryFor(d time.Duration, typ string, match func(Event) bool) (Event, bool) {
	c.t.Helper()
	timeout := time.After(d)
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %s", typ)
			}
			if ev.Type == typ && (match == nil || match(ev)) {
				return ev, true
			}
		case <-timeout:
			return Event{}, false
		}
	}
}

func (c *testClient) waitFor(typ string, match func(Event) bool) Event {
	c.t.Helper()
	ev, ok := c.tryFor(5*time.Second, typ, match)
	if !ok {
		c.t.Fatalf("timed out waiting for %s", typ)
	}
	return ev
}

func wordIs(w string) func(Event) bool {
	return func(e Event) bool { return e.Word == w }
}

// startRecording retries until the session has applied the microphone
// permission and confirms the recording.
func (c *testClient) startRecording() {
	c.t.Helper()
	isOn := func(e Event) bool { return e.Recording != nil && *e.Recording }
	for range 50 {
		c.send(ClientMessage{Type: MsgStart})
		if _, ok := c.tryFor(100*time.Millisecond, EvtRecording, isOn); ok {
			return
		}
	}
	c.t.Fatal("recording never started")
}

func TestHandler_ReadyComesFirst(t *testing.T) {
	c := dial(t, newTestHandler(mock.NewSubmitter()), ClientMessage{Microphone: true})

	select {
	case ev := <-c.events:
		if ev.Type != EvtReady {
			t.Fatalf("first event = %q, want %q", ev.Type, EvtReady)
		}
		if ev.SessionID == "" {
			t.Error("ready event carries no session id")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no ready event")
	}
}

func TestHandler_TypedAnswersFinish(t *testing.T) {
	c := dial(t, newTestHandler(mock.NewSubmitter()), ClientMessage{Microphone: true})

	first := c.waitFor(EvtWord, wordIs("кошка"))
	if first.Prompt != game.EnglishMessages.Prompt {
		t.Errorf("prompt = %q, want %q", first.Prompt, game.EnglishMessages.Prompt)
	}

	c.send(ClientMessage{Type: MsgAnswer, Text: "Cat"})
	gate := c.waitFor(EvtGatePassed, nil)
	if gate.Gate == nil || *gate.Gate != 0 {
		t.Errorf("gate_passed gate = %v, want 0", gate.Gate)
	}

	c.waitFor(EvtWord, wordIs("дом"))
	c.send(ClientMessage{Type: MsgAnswer, Text: "house"})
	c.waitFor(EvtFinished, nil)
}

func TestHandler_WrongAnswerKeepsGate(t *testing.T) {
	c := dial(t, newTestHandler(mock.NewSubmitter()), ClientMessage{Microphone: true})
	c.waitFor(EvtWord, wordIs("кошка"))

	c.send(ClientMessage{Type: MsgAnswer, Text: "dog"})
	pop := c.waitFor(EvtPopup, func(e Event) bool { return e.Kind == "error" })
	if !strings.Contains(pop.Text, "dog") {
		t.Errorf("popup = %q, want it to echo the answer", pop.Text)
	}

	c.send(ClientMessage{Type: MsgAnswer, Text: "cat"})
	c.waitFor(EvtGatePassed, nil)
}

func TestHandler_AudioFramesAreSubmitted(t *testing.T) {
	sub := mock.NewSubmitter(mock.Accept("cat"))
	c := dial(t, newTestHandler(sub), ClientMessage{
		Microphone:  true,
		ContentType: "audio/webm;codecs=opus",
	})
	c.waitFor(EvtWord, wordIs("кошка"))

	c.startRecording()
	c.sendAudio([]byte("frag1"))
	c.sendAudio([]byte("frag2"))
	c.send(ClientMessage{Type: MsgStop})

	c.waitFor(EvtGatePassed, nil)

	clips := sub.Clips()
	if len(clips) != 1 {
		t.Fatalf("submitted %d clips, want 1", len(clips))
	}
	if got := string(clips[0].Data); got != "frag1frag2" {
		t.Errorf("clip data = %q, want %q", got, "frag1frag2")
	}
	if clips[0].ContentType != "audio/webm;codecs=opus" {
		t.Errorf("clip content type = %q", clips[0].ContentType)
	}
}

func TestHandler_AudioOutsideRecordingIsDropped(t *testing.T) {
	sub := mock.NewSubmitter(mock.Accept("cat"))
	c := dial(t, newTestHandler(sub), ClientMessage{Microphone: true})
	c.waitFor(EvtWord, wordIs("кошка"))

	c.sendAudio([]byte("stray"))
	c.startRecording()
	c.sendAudio([]byte("kept"))
	c.send(ClientMessage{Type: MsgToggle})
	c.waitFor(EvtGatePassed, nil)

	clips := sub.Clips()
	if len(clips) != 1 || string(clips[0].Data) != "kept" {
		t.Errorf("clips = %+v, want one clip holding only the recorded fragment", clips)
	}
}

func TestHandler_NoMicrophone(t *testing.T) {
	c := dial(t, newTestHandler(mock.NewSubmitter()), ClientMessage{Microphone: false})

	pop := c.waitFor(EvtPopup, func(e Event) bool { return e.Kind == "error" })
	if pop.Text != game.EnglishMessages.NoDevice {
		t.Errorf("popup = %q, want %q", pop.Text, game.EnglishMessages.NoDevice)
	}

	// Typed answers still work without a microphone.
	c.waitFor(EvtWord, wordIs("кошка"))
	c.send(ClientMessage{Type: MsgAnswer, Text: "cat"})
	c.waitFor(EvtGatePassed, nil)
}

func TestHandler_Locale(t *testing.T) {
	c := dial(t, newTestHandler(mock.NewSubmitter()), ClientMessage{Microphone: true, Locale: "ru"})

	ev := c.waitFor(EvtWord, nil)
	if ev.Prompt != game.RussianMessages.Prompt {
		t.Errorf("prompt = %q, want %q", ev.Prompt, game.RussianMessages.Prompt)
	}
}

func TestHandler_Restart(t *testing.T) {
	c := dial(t, newTestHandler(mock.NewSubmitter()), ClientMessage{Microphone: true})
	c.waitFor(EvtWord, wordIs("кошка"))
	c.send(ClientMessage{Type: MsgAnswer, Text: "cat"})
	c.waitFor(EvtWord, wordIs("дом"))

	c.send(ClientMessage{Type: MsgRestart})
	c.waitFor(EvtWord, wordIs("кошка"))
}

func TestHandler_UnknownMessage(t *testing.T) {
	c := dial(t, newTestHandler(mock.NewSubmitter()), ClientMessage{Microphone: true})
	c.waitFor(EvtReady, nil)

	c.send(ClientMessage{Type: "dance"})
	ev := c.waitFor(EvtError, nil)
	if !strings.Contains(ev.Message, "dance") {
		t.Errorf("error message = %q, want it to name the type", ev.Message)
	}

	c.send(ClientMessage{Type: MsgHello})
	ev = c.waitFor(EvtError, nil)
	if ev.Message != "duplicate hello" {
		t.Errorf("error message = %q, want duplicate hello", ev.Message)
	}
}

func TestHandler_RejectsMissingHello(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(mock.NewSubmitter()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, ClientMessage{Type: MsgStart}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err = conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusPolicyViolation {
		t.Errorf("close status = %v (err %v), want %v", got, err, websocket.StatusPolicyViolation)
	}
}
