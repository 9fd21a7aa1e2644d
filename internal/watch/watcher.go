// Package watch reports edits made to the storage file by other processes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/matheus3301/groupweaver/internal/hub"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 250 * time.Millisecond

// Source is the store whose file is watched.
type Source interface {
	Path() string
	IsOwnContent(data []byte) bool
}

// Notifier receives one call per foreign edit.
type Notifier interface {
	NotifyDataChange(ctx context.Context, action, details string)
}

// Watcher watches the storage file's directory and notifies when the file
// changes to content the store did not write.
type Watcher struct {
	source   Source
	notifier Notifier
	logger   *zap.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates a Watcher. It must be started with Start before it reports anything.
func New(source Source, notifier Notifier, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		source:   source,
		notifier: notifier,
		logger:   logger,
		debounce: debounce,
		watcher:  fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is watched rather than the file so
// atomic replacements by rename are seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	dir := filepath.Dir(w.source.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch storage directory %s: %w", dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.loop()
	w.logger.Info("storage watcher started", zap.String("path", w.source.Path()))
	return nil
}

// Stop stops watching and waits for the event loop to exit. A watcher that
// was never started is only closed.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.done)
	}
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	target := filepath.Clean(w.source.Path())
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.check(target)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("storage watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) check(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Debug("storage file unreadable after change", zap.Error(err))
		return
	}
	if w.source.IsOwnContent(data) {
		return
	}
	w.logger.Info("storage file changed externally", zap.String("path", path))
	w.notifier.NotifyDataChange(context.Background(), hub.ActionStoreReloaded, filepath.Base(path))
}
