// Package watcher notifies when a drawer's contents change on disk.
// Events for one drawer root are debounced so a burst of writes yields
// a single reload notification.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	apperr "drawers/internal/errors"
)

// debounceDelay is how long a root stays quiet before its change
// notification fires.
const debounceDelay = 200 * time.Millisecond

// DrawerWatcher watches drawer root directories (non-recursive) and
// reports the affected root on Changes after each debounced burst.
type DrawerWatcher struct {
	log     zerolog.Logger
	watcher *fsnotify.Watcher
	changes chan string

	mu      sync.Mutex
	roots   map[string]struct{}
	pending map[string]*time.Timer
	stopped bool

	done chan struct{}
}

// New creates a watcher for the given drawer roots. Roots that are not
// directories are skipped with a warning.
func New(roots []string, logger zerolog.Logger) (*DrawerWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperr.NewWatcherError("new", "", "cannot create filesystem watcher", err)
	}

	dw := &DrawerWatcher{
		log:     logger,
		watcher: fsw,
		changes: make(chan string, 16),
		roots:   make(map[string]struct{}, len(roots)),
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}

	for _, root := range roots {
		norm := filepath.Clean(root)
		info, err := os.Stat(norm)
		if err != nil || !info.IsDir() {
			dw.log.Warn().Str("path", root).Msg("Skipping watch for non-directory drawer root")
			continue
		}
		if err := fsw.Add(norm); err != nil {
			dw.log.Warn().Err(err).Str("path", norm).Msg("Failed to watch drawer root")
			continue
		}
		dw.roots[norm] = struct{}{}
	}

	return dw, nil
}

// Start begins delivering change notifications.
func (dw *DrawerWatcher) Start() {
	go dw.loop()
}

// Changes returns the channel affected drawer roots arrive on.
func (dw *DrawerWatcher) Changes() <-chan string {
	return dw.changes
}

// Stop halts the watcher. Safe to call more than once.
func (dw *DrawerWatcher) Stop() {
	dw.mu.Lock()
	if dw.stopped {
		dw.mu.Unlock()
		return
	}
	dw.stopped = true
	for _, timer := range dw.pending {
		timer.Stop()
	}
	dw.pending = make(map[string]*time.Timer)
	dw.mu.Unlock()

	close(dw.done)
	dw.watcher.Close()
}

func (dw *DrawerWatcher) loop() {
	for {
		select {
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handleEvent(event)
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.log.Warn().Err(err).Msg("Watcher error")
		case <-dw.done:
			return
		}
	}
}

// handleEvent maps an event path to its drawer root and (re)arms that
// root's debounce timer.
func (dw *DrawerWatcher) handleEvent(event fsnotify.Event) {
	root, ok := dw.rootFor(event.Name)
	if !ok {
		return
	}

	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.stopped {
		return
	}
	if timer, exists := dw.pending[root]; exists {
		timer.Reset(debounceDelay)
		return
	}
	dw.pending[root] = time.AfterFunc(debounceDelay, func() {
		dw.fire(root)
	})
}

func (dw *DrawerWatcher) fire(root string) {
	dw.mu.Lock()
	delete(dw.pending, root)
	stopped := dw.stopped
	dw.mu.Unlock()
	if stopped {
		return
	}

	select {
	case dw.changes <- root:
	default:
		dw.log.Debug().Str("path", root).Msg("Change channel full, dropping notification")
	}
}

// rootFor finds the watched root containing path.
func (dw *DrawerWatcher) rootFor(path string) (string, bool) {
	norm := filepath.Clean(path)
	dw.mu.Lock()
	defer dw.mu.Unlock()
	for root := range dw.roots {
		if norm == root || filepath.Dir(norm) == root {
			return root, true
		}
	}
	return "", false
}
