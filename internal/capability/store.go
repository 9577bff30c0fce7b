package capability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// snapshot is an immutable (config, hash) pair swapped atomically on reload.
type snapshot struct {
	cfg  *Config
	hash string
}

// Store holds the active capability set. Readers always see a complete
// snapshot; Reload swaps the whole pair so a request is never validated
// against a half-applied config.
type Store struct {
	path string
	cur  atomic.Pointer[snapshot]
}

// NewStore loads the capability set from path and returns a store serving it.
func NewStore(path string) (*Store, error) {
	cfg, hash, err := LoadWithHash(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.cur.Store(&snapshot{cfg: cfg, hash: hash})
	return s, nil
}

// Config returns the active capability set.
func (s *Store) Config() *Config {
	return s.cur.Load().cfg
}

// Hash returns the content hash of the active capability set.
func (s *Store) Hash() string {
	return s.cur.Load().hash
}

// Reload re-reads the capability file and swaps the snapshot.
// On error the previous snapshot stays active.
func (s *Store) Reload() error {
	cfg, hash, err := LoadWithHash(s.path)
	if err != nil {
		return err
	}
	s.cur.Store(&snapshot{cfg: cfg, hash: hash})
	return nil
}

// Watcher watches the capability file for changes and triggers hot-reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *Store
}

// NewWatcher creates a file watcher for the store's capability file.
// A store loaded from defaults (empty or missing path) cannot be watched.
func NewWatcher(store *Store) (*Watcher, error) {
	if store.path == "" {
		return nil, fmt.Errorf("capability: nothing to watch, store uses defaults")
	}
	if _, err := os.Stat(store.path); err != nil {
		return nil, fmt.Errorf("capability: stat %q: %w", store.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("capability: create file watcher: %w", err)
	}
	if err := watcher.Add(store.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("capability: watch %q: %w", store.path, err)
	}

	return &Watcher{watcher: watcher, store: store}, nil
}

// Run watches for file changes and reloads the store. Blocks until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// Debounce: wait 500ms after last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := w.store.Reload(); err != nil {
						slog.Warn("capability: hot-reload failed", "error", err)
					} else {
						slog.Info("capability: reloaded", "hash", w.store.Hash())
					}
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("capability: file watcher error", "error", err)
		}
	}
}
