package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/wordgate/internal/config"
)

func TestValidate_DuplicateWords(t *testing.T) {
	t.Parallel()
	yaml := `
vocabulary:
  words:
    - {word: кошка, answer: cat}
    - {word: кошка, answer: kitty}
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate words, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_MissingAnswer(t *testing.T) {
	t.Parallel()
	yaml := `
vocabulary:
  words:
    - {word: кошка}
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "answer is required") {
		t.Fatalf("expected missing answer error, got: %v", err)
	}
}

func TestValidate_GameRanges(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative transition", "game: {transition_ms: -1}", "game.transition_ms"},
		{"negative popup", "game: {popup_ms: -5}", "game.popup_ms"},
		{"tick too slow", "game: {tick_ms: 5000}", "game.tick_ms"},
		{"negative spacing", "game: {gate_spacing: -40}", "game.gate_spacing"},
		{"negative margin", "game: {pass_margin: -1}", "game.pass_margin"},
		{"unknown locale", "game: {locale: de}", "game.locale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_FallbacksRequirePrimary(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt_fallbacks:
    - name: deepgram
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "requires providers.stt") {
		t.Fatalf("expected fallback error, got: %v", err)
	}
}

func TestValidate_FallbackNameRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: whisper
  stt_fallbacks:
    - model: nova-3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "stt_fallbacks[0].name") {
		t.Fatalf("expected fallback name error, got: %v", err)
	}
}

func TestValidate_TLSNeedsBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: cert.pem
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "server.tls") {
		t.Fatalf("expected tls error, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
game:
  locale: fr
vocabulary:
  words:
    - {word: "", answer: cat}
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"server.log_level", "game.locale", "vocabulary.words[0].word"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("WORDGATE_TEST_DG_KEY", "sekrit")
	yaml := `
providers:
  stt:
    name: deepgram
    api_key: ${WORDGATE_TEST_DG_KEY}
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Providers.STT.APIKey != "sekrit" {
		t.Errorf("api_key: got %q, want %q", cfg.Providers.STT.APIKey, "sekrit")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen: :80\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wordgate.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen_addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: got %v, want a not-exist error", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	known := config.ValidProviderNames["stt"]
	for _, name := range []string{"deepgram", "whisper", "whisper-native", "openai"} {
		if !slices.Contains(known, name) {
			t.Errorf("stt provider %q missing from ValidProviderNames", name)
		}
	}
}
