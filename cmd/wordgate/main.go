// Command wordgate is the vocabulary gate server: it serves the word list,
// checks spoken answers and hosts live game sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/wordgate/internal/app"
	"github.com/MrWong99/wordgate/internal/config"
	"github.com/MrWong99/wordgate/internal/observe"
	"github.com/MrWong99/wordgate/internal/resilience"
	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
	"github.com/MrWong99/wordgate/pkg/provider/stt/deepgram"
	"github.com/MrWong99/wordgate/pkg/provider/stt/openai"
	"github.com/MrWong99/wordgate/pkg/provider/stt/whisper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config is parsed")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "wordgate: load %s: %v\n", *envFile, err)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	watch := true
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "wordgate: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "wordgate: config file %q not found, using defaults (see configs/example.yaml)\n", *configPath)
		cfg = config.Default()
		watch = false
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(cfg.Server.LogLevel.Level())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("wordgate starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName:    "wordgate",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	// ── Config watcher ────────────────────────────────────────────────────────
	var watcher *config.Watcher
	if watch {
		watcher, err = config.NewWatcher(*configPath, func(old, new *config.Config) {
			level.Set(new.Server.LogLevel.Level())
			rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := application.Reload(rctx, old, new); err != nil {
				slog.Error("config reload failed", "err", err)
			}
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return application.Run(gctx) })
	if watcher != nil {
		g.Go(func() error {
			<-gctx.Done()
			watcher.Stop()
			return nil
		})
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in STT factories into reg. Each
// factory receives a config.ProviderEntry and constructs the provider from
// the implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if d, ok := optDuration(entry.Options, "max_duration"); ok {
			opts = append(opts, whisper.WithMaxDuration(d))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		if d, ok := optDuration(entry.Options, "max_duration"); ok {
			opts = append(opts, whisper.WithNativeMaxDuration(d))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, openai.WithLanguage(lang))
		}
		if d, ok := optDuration(entry.Options, "timeout"); ok {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, name := range reg.STTNames() {
		slog.Debug("registered provider", "kind", "stt", "name", name)
	}
}

// buildProviders instantiates the primary STT provider and its fallbacks and
// groups them behind per-provider circuit breakers.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	primary := cfg.Providers.STT
	if primary.Name == "" {
		slog.Warn("no stt provider configured; every spoken answer fails")
		ps.STT = unconfiguredSTT{}
		ps.STTName = "none"
		return ps, nil
	}

	create := func(entry config.ProviderEntry) (stt.Provider, error) {
		p, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
		}
		if c, ok := p.(interface{ Close() error }); ok {
			ps.Closers = append(ps.Closers, c.Close)
		}
		slog.Info("provider created", "kind", "stt", "name", entry.Name)
		return p, nil
	}

	p, err := create(primary)
	if err != nil {
		return nil, err
	}
	group := resilience.NewSTTFallback(p, primary.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.STTFallbacks {
		fb, err := create(entry)
		if err != nil {
			return nil, err
		}
		group.AddFallback(entry.Name, fb)
	}
	ps.STT = group
	ps.STTName = primary.Name
	return ps, nil
}

// unconfiguredSTT fails every transcription so the server still serves the
// vocabulary and reports itself unready.
type unconfiguredSTT struct{}

func (unconfiguredSTT) Transcribe(context.Context, audio.Clip, stt.Options) (stt.Transcript, error) {
	return stt.Transcript{}, errors.New("no speech-to-text provider configured")
}

func (unconfiguredSTT) Healthy() bool { return false }

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        wordgate · startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	for i, fb := range cfg.Providers.STTFallbacks {
		printProvider(fmt.Sprintf("Fallback %d", i+1), fb.Name, fb.Model)
	}
	storage := "memory"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	fmt.Printf("║  Storage         : %-19s ║\n", storage)
	fmt.Printf("║  Words           : %-19d ║\n", len(cfg.Vocabulary.Words))
	fmt.Printf("║  Locale          : %-19s ║\n", cfg.Game.Locale)
	if cfg.Server.StaticDir != "" {
		fmt.Printf("║  Static dir      : %-19s ║\n", truncate(cfg.Server.StaticDir))
	}
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, truncate(value))
}

func truncate(s string) string {
	if r := []rune(s); len(r) > 19 {
		return string(r[:18]) + "…"
	}
	return s
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optDuration parses a Go duration string ("30s") from a provider Options map.
func optDuration(opts map[string]any, key string) (time.Duration, bool) {
	s := optString(opts, key)
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("ignoring invalid provider option", "key", key, "value", s, "err", err)
		return 0, false
	}
	return d, true
}
