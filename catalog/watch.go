package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the catalog document watcher.
type WatcherConfig struct {
	// Options are passed to Register on every reload. ConfigPath is the
	// watched document.
	Options Options

	// DebounceDelay is how long to wait for more changes before reloading.
	DebounceDelay time.Duration

	// Install replaces the process-wide registry after a successful reload.
	Install bool
}

// ReloadEvent reports one reload attempt.
type ReloadEvent struct {
	Registry *Registry
	Err      error
}

// Watcher re-runs registration whenever the catalog document changes.
type Watcher struct {
	config  WatcherConfig
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// Debouncing: collect changes before reloading
	pendingMu sync.Mutex
	pending   bool

	lastHash string

	events chan ReloadEvent
}

// NewWatcher creates a watcher for config.Options.ConfigPath.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Options.ConfigPath == "" {
		return nil, errors.New("watcher: config path is required")
	}
	path, err := filepath.Abs(config.Options.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	config.Options.ConfigPath = path

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.DebounceDelay == 0 {
		config.DebounceDelay = 200 * time.Millisecond
	}

	return &Watcher{
		config:   config,
		path:     path,
		watcher:  fsw,
		logger:   logger,
		lastHash: fileHash(path),
		events:   make(chan ReloadEvent, 16),
	}, nil
}

// Events returns the channel of reload events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

// Start begins watching. The document's directory is watched so that
// editors replacing the file by rename are noticed.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go w.processEvents(ctx)

	w.logger.Info("Catalog watcher started",
		"config", w.path,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.pendingMu.Lock()
			w.pending = true
			w.pendingMu.Unlock()
			w.logger.Debug("Catalog change detected", "op", event.Op.String())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// flushPending reloads once per debounce window if the content changed.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()
	if !pending {
		return
	}

	hash := fileHash(w.path)
	if hash == w.lastHash {
		return
	}
	w.lastHash = hash

	reg, err := Register(w.config.Options)
	if err != nil {
		w.logger.Warn("Catalog reload failed", "config", w.path, "error", err)
	} else if w.config.Install {
		Replace(reg)
	}
	w.sendEvent(ReloadEvent{Registry: reg, Err: err})
}

func (w *Watcher) sendEvent(event ReloadEvent) {
	select {
	case w.events <- event:
	default:
		w.logger.Warn("Reload channel full, dropping event", "config", w.path)
	}
}

// fileHash returns the content hash of path, or "" if it cannot be read.
func fileHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
