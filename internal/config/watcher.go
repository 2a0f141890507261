package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a config file for changes and calls a callback when a
// valid new version has been written. It watches the parent directory so
// that editors which replace the file by rename are picked up too. Bursts of
// events are debounced and content-identical rewrites are ignored.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(old, new *Config)

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	current  *Config
	lastHash [sha256.Size]byte
	timer    *time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits after the last file event
// before reloading. The default is 200ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a config file watcher. It loads the initial config
// immediately and starts watching in a background goroutine.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	w := &Watcher{
		path:     abs,
		debounce: 200 * time.Millisecond,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, hash, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %q: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the file watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
		w.wg.Wait()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher: fsnotify error", "path", w.path, "err", err)
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.check)
}

// check reads the config file and, if it has changed and is valid, calls
// onChange and updates the current config.
func (w *Watcher) check() {
	select {
	case <-w.done:
		return
	default:
	}

	cfg, hash, err := w.loadAndHash()
	if err != nil {
		slog.Warn("config watcher: failed to load config, keeping previous", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)

	// Invoke the callback outside the lock so it can safely call Current().
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// loadAndHash reads the config file, parses and validates it, and returns the
// config alongside the file's SHA-256 hash. An invalid config is an error; the
// caller keeps the old one.
func (w *Watcher) loadAndHash() (*Config, [sha256.Size]byte, error) {
	var zeroHash [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zeroHash, err
	}
	hash := sha256.Sum256(data)

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zeroHash, err
	}
	return cfg, hash, nil
}
