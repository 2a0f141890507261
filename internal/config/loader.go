package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/wordgate/pkg/game"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"deepgram", "whisper", "whisper-native", "openai"},
}

// Defaults applied by [ApplyDefaults] for unset fields.
const (
	DefaultListenAddr     = ":8000"
	DefaultMaxUploadBytes = 10 << 20
	DefaultJournalSize    = 500
	DefaultLanguage       = "en"
)

// DefaultWords is the vocabulary served when the config declares none.
var DefaultWords = []WordEntry{
	{Word: "кошка", Answer: "cat"},
	{Word: "собака", Answer: "dog"},
	{Word: "дом", Answer: "house"},
	{Word: "машина", Answer: "car"},
	{Word: "мама", Answer: "mother"},
}

// Default returns a config with every default applied. Used when no config
// file exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references from
// the environment, applies defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	if strings.TrimSpace(expanded) != "" {
		dec := yaml.NewDecoder(strings.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Storage.JournalSize <= 0 {
		cfg.Storage.JournalSize = DefaultJournalSize
	}
	if cfg.Vocabulary.Language == "" {
		cfg.Vocabulary.Language = DefaultLanguage
	}
	if len(cfg.Vocabulary.Words) == 0 {
		cfg.Vocabulary.Words = slices.Clone(DefaultWords)
	}

	g := &cfg.Game
	if g.TransitionMs == 0 {
		g.TransitionMs = int(game.DefaultTransitionDuration.Milliseconds())
	}
	if g.PopupMs == 0 {
		g.PopupMs = int(game.DefaultPopupDuration.Milliseconds())
	}
	if g.GateSpacing == 0 {
		g.GateSpacing = game.DefaultGateSpacing
	}
	if g.PassMargin == 0 {
		g.PassMargin = game.DefaultPassMargin
	}
	if g.TickMs == 0 {
		g.TickMs = int(game.DefaultTick.Milliseconds())
	}
	if g.Locale == "" {
		g.Locale = "en"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; spoken answers will be rejected as transcription failures")
		if len(cfg.Providers.STTFallbacks) > 0 {
			errs = append(errs, errors.New("providers.stt_fallbacks requires providers.stt"))
		}
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	for i, fb := range cfg.Providers.STTFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("stt", fb.Name)
	}

	// Vocabulary
	seen := make(map[string]int, len(cfg.Vocabulary.Words))
	for i, w := range cfg.Vocabulary.Words {
		prefix := fmt.Sprintf("vocabulary.words[%d]", i)
		if strings.TrimSpace(w.Word) == "" {
			errs = append(errs, fmt.Errorf("%s.word is required", prefix))
			continue
		}
		if strings.TrimSpace(w.Answer) == "" {
			errs = append(errs, fmt.Errorf("%s.answer is required for %q", prefix, w.Word))
		}
		if prev, ok := seen[w.Word]; ok {
			errs = append(errs, fmt.Errorf("%s.word %q is a duplicate of vocabulary.words[%d]", prefix, w.Word, prev))
		}
		seen[w.Word] = i
	}

	// Game
	g := cfg.Game
	if g.TransitionMs < 0 {
		errs = append(errs, fmt.Errorf("game.transition_ms %d must not be negative", g.TransitionMs))
	}
	if g.PopupMs < 0 {
		errs = append(errs, fmt.Errorf("game.popup_ms %d must not be negative", g.PopupMs))
	}
	if g.TickMs < 0 || g.TickMs > 1000 {
		errs = append(errs, fmt.Errorf("game.tick_ms %d is out of range [1, 1000]", g.TickMs))
	}
	if g.GateSpacing < 0 {
		errs = append(errs, fmt.Errorf("game.gate_spacing %.2f must be positive", g.GateSpacing))
	}
	if g.PassMargin < 0 {
		errs = append(errs, fmt.Errorf("game.pass_margin %.2f must not be negative", g.PassMargin))
	}
	if g.Locale != "" && g.Locale != "en" && g.Locale != "ru" {
		errs = append(errs, fmt.Errorf("game.locale %q is invalid; valid values: en, ru", g.Locale))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
