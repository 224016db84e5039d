// Package watcher notifies dashboard clients when the persisted session
// state file is rewritten by another process (a second daemon, a manual
// edit, a sync tool), so they can refresh their view.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/LupusDei/adjutant-sub008/internal/domain/events"
	"github.com/LupusDei/adjutant-sub008/internal/domain/ports"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceWindow coalesces the create/write/rename burst an atomic
// state-file rewrite produces into a single event.
const debounceWindow = 250 * time.Millisecond

// StateWatcher watches a single file and publishes state_file_changed
// events through the hub.
type StateWatcher struct {
	path string
	hub  ports.EventHub

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	running bool
}

// New creates a watcher for the given state file path.
func New(path string, hub ports.EventHub) *StateWatcher {
	return &StateWatcher{path: path, hub: hub}
}

// Start begins watching. The parent directory is watched rather than
// the file itself: atomic rewrites replace the inode, which would
// silently drop a file-level watch.
func (w *StateWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.watcher = watcher
	w.cancel = cancel
	w.running = true

	go w.eventLoop(watchCtx)

	log.Info().Str("path", w.path).Msg("state file watcher started")
	return nil
}

// Stop terminates watching.
func (w *StateWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	w.cancel()

	err := w.watcher.Close()
	w.watcher = nil
	log.Info().Msg("state file watcher stopped")
	return err
}

// IsRunning returns true if the watcher is active.
func (w *StateWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// eventLoop handles fsnotify events, debouncing bursts.
func (w *StateWatcher) eventLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.hub.Publish(events.NewStateFileChangedEvent(w.path))
			log.Debug().Str("path", w.path).Msg("state file changed externally")

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("state watcher error")
		}
	}
}
