// Package app wires the wordgate subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects the
// vocabulary store, the check journal, the answer checker and the HTTP
// routes, Run serves until the context is cancelled, and Shutdown tears
// everything down in order. Reload applies a changed configuration file.
//
// For testing, inject in-memory implementations via functional options
// (WithVocabulary, WithJournal, ...). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/wordgate/internal/answer"
	"github.com/MrWong99/wordgate/internal/config"
	"github.com/MrWong99/wordgate/internal/health"
	"github.com/MrWong99/wordgate/internal/live"
	"github.com/MrWong99/wordgate/internal/observe"
	"github.com/MrWong99/wordgate/internal/phonetic"
	"github.com/MrWong99/wordgate/internal/server"
	"github.com/MrWong99/wordgate/internal/store/postgres"
	"github.com/MrWong99/wordgate/internal/vocab"
	"github.com/MrWong99/wordgate/pkg/game"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
)

const readHeaderTimeout = 10 * time.Second

// Providers holds the speech-to-text backend built by main.go via the config
// registry, usually a fallback group.
type Providers struct {
	STT stt.Provider
	// STTName labels metrics when STT does not report which backend answered.
	STTName string
	// Closers release provider resources (native models) on shutdown.
	Closers []func() error
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	vocab    vocab.Store
	replacer vocab.Replacer // nil when the database owns the vocabulary
	journal  answer.Journal
	checker  *answer.Checker
	metrics  *observe.Metrics
	scrape   http.Handler
	handler  http.Handler
	game     atomic.Pointer[config.GameConfig]

	httpServer *http.Server
	baseCtx    context.Context
	cancelBase context.CancelFunc

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithVocabulary injects a vocabulary store instead of creating one from
// config. The store is treated as authoritative: reloads do not replace it.
func WithVocabulary(s vocab.Store) Option {
	return func(a *App) { a.vocab = s }
}

// WithJournal injects a check journal.
func WithJournal(j answer.Journal) Option {
	return func(a *App) { a.journal = j }
}

// WithMetrics records metrics in m instead of the global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithScrapeHandler serves h on GET /metrics. Defaults to [observe.Handler].
func WithScrapeHandler(h http.Handler) Option {
	return func(a *App) { a.scrape = h }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. providers comes from
// main.go. New performs all initialisation synchronously, including the
// database migration and the first-start vocabulary seed.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil {
		return nil, errors.New("app: a speech-to-text provider is required")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.scrape == nil {
		a.scrape = observe.Handler()
	}
	g := cfg.Game
	a.game.Store(&g)
	a.baseCtx, a.cancelBase = context.WithCancel(context.Background())
	a.closers = append(a.closers, providers.Closers...)

	// ── 1. Storage ──────────────────────────────────────────────────────
	if err := a.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	// ── 2. Answer checker ───────────────────────────────────────────────
	a.checker = answer.New(providers.STT,
		answer.WithJournal(a.journal),
		answer.WithMetrics(a.metrics),
		answer.WithLanguage(cfg.Vocabulary.Language),
		answer.WithKeywords(a.vocab),
		answer.WithHints(phonetic.New()),
		answer.WithProviderName(providers.STTName),
	)

	// ── 3. HTTP routes ──────────────────────────────────────────────────
	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init server: %w", err)
	}
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStorage picks the vocabulary store and the journal. With a database
// the vocabulary is seeded from config on first start and owned by the
// database afterwards.
func (a *App) initStorage(ctx context.Context) error {
	if a.vocab != nil {
		if a.journal == nil {
			a.journal = answer.NewMemoryJournal(a.cfg.Storage.JournalSize)
		}
		return nil
	}

	if dsn := a.cfg.Storage.PostgresDSN; dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })

		seeded, err := store.Seed(ctx, a.cfg.Vocabulary.Vocabulary())
		if err != nil {
			return fmt.Errorf("seed vocabulary: %w", err)
		}
		if seeded {
			slog.Info("vocabulary seeded from config", "words", len(a.cfg.Vocabulary.Words))
		}
		a.vocab = store
		if a.journal == nil {
			a.journal = store
		}
		return nil
	}

	static, err := vocab.NewStatic(a.cfg.Vocabulary.Vocabulary())
	if err != nil {
		return err
	}
	a.vocab = static
	a.replacer = static
	if a.journal == nil {
		a.journal = answer.NewMemoryJournal(a.cfg.Storage.JournalSize)
	}
	return nil
}

func (a *App) initServer() error {
	checkers := []health.Checker{health.Vocabulary(a.vocab)}
	if r, ok := a.providers.STT.(health.HealthReporter); ok {
		checkers = append(checkers, health.STT(r))
	}

	liveHandler := live.NewHandler(a.vocab, a.checker,
		live.WithSessionOptions(a.sessionOptions),
		live.WithTick(a.cfg.Game.Tick()),
		live.WithOriginPatterns(originPatterns(a.cfg.Server.AllowedOrigins)...),
		live.WithMetrics(a.metrics),
		live.WithReadLimit(a.cfg.Server.MaxUploadBytes),
	)

	srv, err := server.New(server.Config{
		Vocabulary:     a.vocab,
		Checker:        a.checker,
		Journal:        a.journal,
		Live:           liveHandler,
		Health:         health.New(checkers...),
		Metrics:        a.scrape,
		Observe:        a.metrics,
		StaticDir:      a.cfg.Server.StaticDir,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return err
	}
	a.handler = srv.Handler()
	a.httpServer = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return a.baseCtx },
	}
	return nil
}

// sessionOptions returns the options for a new live session from the most
// recently applied game config.
func (a *App) sessionOptions() []game.Option {
	return a.game.Load().SessionOptions()
}

// originPatterns converts CORS origins ("https://host:port") into the host
// patterns the websocket origin check expects.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Vocabulary returns the vocabulary store in use.
func (a *App) Vocabulary() vocab.Store { return a.vocab }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured address and blocks until ctx is
// cancelled. It returns ctx's error, or the listener's error when serving
// fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.httpServer.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if tls := a.cfg.Server.TLS; tls != nil {
			errCh <- a.httpServer.ServeTLS(ln, tls.CertFile, tls.KeyFile)
			return
		}
		errCh <- a.httpServer.Serve(ln)
	}()

	slog.Info("app running", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies the hot-reloadable parts of a changed config. New live
// sessions and GET /words see the new vocabulary; running sessions keep
// theirs. Provider, storage and listener changes need a restart and are only
// reported.
func (a *App) Reload(ctx context.Context, old, new *config.Config) error {
	d := config.Diff(old, new)

	for _, section := range d.RestartRequired {
		slog.Warn("config change requires restart", "section", section)
	}
	if old.Vocabulary.Language != new.Vocabulary.Language {
		slog.Warn("config change requires restart", "section", "vocabulary.language")
	}

	if d.GameChanged {
		g := new.Game
		a.game.Store(&g)
		slog.Info("game settings reloaded", "transition_ms", g.TransitionMs, "popup_ms", g.PopupMs, "locale", g.Locale)
	}

	if d.VocabularyChanged {
		if a.replacer == nil {
			slog.Warn("vocabulary change ignored: the store is authoritative", "changes", len(d.WordChanges))
			return nil
		}
		if err := a.replacer.Replace(ctx, new.Vocabulary.Vocabulary()); err != nil {
			return fmt.Errorf("app: reload vocabulary: %w", err)
		}
		for _, wc := range d.WordChanges {
			slog.Debug("vocabulary entry changed", "word", wc.Word, "added", wc.Added, "removed", wc.Removed, "answer_changed", wc.AnswerChanged)
		}
		slog.Info("vocabulary reloaded", "words", len(new.Vocabulary.Words))
	}
	return nil
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops accepting requests, waits for in-flight ones, ends live
// sessions and runs the closers in order. It respects the context deadline:
// if ctx expires before all closers finish, remaining closers are skipped
// and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.httpServer.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
		}
		// Live sessions run on hijacked connections, which Shutdown does not
		// wait for; cancelling the base context ends them.
		a.cancelBase()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
