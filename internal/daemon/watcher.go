package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/resourcesync/internal/logfields"
)

// Invalidator drops cached copies of a document; "" means all of them.
type Invalidator interface {
	Invalidate(name string)
}

// DocumentWatcher invalidates cached documents when files in the output
// directory change, including changes made by other processes.
type DocumentWatcher struct {
	dir      string
	target   Invalidator
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopChan chan struct{}
	stopped  bool
}

// NewDocumentWatcher creates a watcher for dir.
func NewDocumentWatcher(dir string, target Invalidator) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	return &DocumentWatcher{
		dir:      absDir,
		target:   target,
		watcher:  watcher,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching.
func (dw *DocumentWatcher) Start(ctx context.Context) error {
	if err := dw.watcher.Add(dw.dir); err != nil {
		return fmt.Errorf("failed to watch output directory %s: %w", dw.dir, err)
	}
	slog.Info("Starting document watcher", logfields.Path(dw.dir))
	go dw.watchLoop(ctx)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (dw *DocumentWatcher) Stop() {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.stopped {
		return
	}
	dw.stopped = true
	close(dw.stopChan)
	if err := dw.watcher.Close(); err != nil {
		slog.Error("Error closing document watcher", logfields.Error(err))
	}
}

func (dw *DocumentWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-dw.stopChan:
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			// staging files become visible under their real name by rename
			if strings.HasPrefix(name, ".") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				slog.Debug("Document changed", logfields.Document(name), slog.String("op", event.Op.String()))
				dw.target.Invalidate(name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Document watcher error, dropping cache", logfields.Error(err))
			dw.target.Invalidate("")
		}
	}
}
