package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/wordgate/internal/config"
	"github.com/MrWong99/wordgate/internal/vocab"
	"github.com/MrWong99/wordgate/pkg/game"
	sttmock "github.com/MrWong99/wordgate/pkg/provider/stt/mock"
)

// testConfig returns the default config listening on a loopback port.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	return cfg
}

// testProviders returns providers backed by a scripted STT mock.
func testProviders() *Providers {
	return &Providers{
		STT:     &sttmock.Provider{Results: []sttmock.Result{sttmock.Reply("cat")}},
		STTName: "mock",
	}
}

func getWords(t *testing.T, h http.Handler) []string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/words", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /words = %d", rec.Code)
	}
	var body struct {
		Words []string `json:"words"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Words
}

func TestNew_ServesConfiguredVocabulary(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	want := []string{"кошка", "собака", "дом", "машина", "мама"}
	if got := getWords(t, a.Handler()); !slices.Equal(got, want) {
		t.Errorf("words = %v, want %v", got, want)
	}
}

func TestNew_RequiresSTT(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), testConfig(), &Providers{}); err == nil {
		t.Fatal("New() without STT = nil error, want error")
	}
}

func TestNew_RejectsInvalidVocabulary(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Vocabulary.Words = []config.WordEntry{{Word: "дом", Answer: "house"}, {Word: "дом", Answer: "home"}}
	if _, err := New(context.Background(), cfg, testProviders()); !errors.Is(err, game.ErrDuplicateWord) {
		t.Fatalf("New() = %v, want ErrDuplicateWord", err)
	}
}

func TestReload_ReplacesVocabulary(t *testing.T) {
	t.Parallel()

	old := testConfig()
	a, err := New(context.Background(), old, testProviders())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	updated := testConfig()
	updated.Vocabulary.Words = []config.WordEntry{{Word: "мяч", Answer: "ball"}}
	if err := a.Reload(context.Background(), old, updated); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	if got := getWords(t, a.Handler()); !slices.Equal(got, []string{"мяч"}) {
		t.Errorf("words after reload = %v, want [мяч]", got)
	}
}

func TestReload_KeepsAuthoritativeStore(t *testing.T) {
	t.Parallel()

	store, err := vocab.NewStatic(game.Vocabulary{
		Words:   []string{"дом"},
		Answers: map[string]string{"дом": "house"},
	})
	if err != nil {
		t.Fatal(err)
	}
	old := testConfig()
	a, err := New(context.Background(), old, testProviders(), WithVocabulary(store))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	updated := testConfig()
	updated.Vocabulary.Words = []config.WordEntry{{Word: "мяч", Answer: "ball"}}
	if err := a.Reload(context.Background(), old, updated); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if got := getWords(t, a.Handler()); !slices.Equal(got, []string{"дом"}) {
		t.Errorf("words after reload = %v, want the injected store's [дом]", got)
	}
}

func TestReload_GameSettingsReachNewSessions(t *testing.T) {
	t.Parallel()

	old := testConfig()
	a, err := New(context.Background(), old, testProviders())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	updated := testConfig()
	updated.Game.TransitionMs = 500
	updated.Game.Locale = "ru"
	if err := a.Reload(context.Background(), old, updated); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	s := game.NewSession(nil, nil, a.sessionOptions()...)
	if got := s.Config().TransitionDuration; got != 500*time.Millisecond {
		t.Errorf("TransitionDuration = %v, want 500ms", got)
	}
	if got := s.Config().Messages.Prompt; got != game.RussianMessages.Prompt {
		t.Errorf("Prompt = %q, want the Russian prompt", got)
	}
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want []string
	}{
		{in: nil, want: []string{}},
		{in: []string{"*"}, want: []string{"*"}},
		{in: []string{"https://game.example:8443", "localhost:3000"}, want: []string{"game.example:8443", "localhost:3000"}},
		{in: []string{"http://a.local", "*"}, want: []string{"*"}},
	}
	for _, tc := range tests {
		if got := originPatterns(tc.in); !slices.Equal(got, tc.want) {
			t.Errorf("originPatterns(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	closed := 0
	providers := testProviders()
	providers.Closers = []func() error{func() error { closed++; return nil }}

	a, err := New(context.Background(), testConfig(), providers)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
	if closed != 1 {
		t.Errorf("provider closer ran %d times, want 1", closed)
	}
}

func TestApp_ServeAndShutdown(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(), testProviders())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
