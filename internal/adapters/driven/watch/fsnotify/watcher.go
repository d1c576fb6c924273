// Package fsnotify reports changes to an indexed source document.
//
// The parent directory is watched rather than the file itself so that
// editors and download managers that replace a file by renaming a temporary
// copy over it are still noticed.
package fsnotify

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
	"github.com/custodia-labs/policyqa/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.SourceWatcher = (*Watcher)(nil)

// changeOps are the operations that make a cached index stale.
const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher sets a flag when the watched file changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	changed atomic.Bool

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New starts watching path.
func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:    abs,
		watcher: fw,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go w.run()

	logger.Debug("watching %s for changes", abs)
	return w, nil
}

// Factory adapts New to driven.WatcherFactory.
func Factory(path string) (driven.SourceWatcher, error) {
	return New(path)
}

// Changed reports whether the file changed since the watcher started or the last Reset.
func (w *Watcher) Changed() bool {
	return w.changed.Load()
}

// Reset clears the changed flag.
func (w *Watcher) Reset() {
	w.changed.Store(false)
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the event loop and releases the OS watch. Safe to call twice.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
		<-w.doneCh
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watching %s: %v", w.path, err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&changeOps == 0 {
		return
	}
	if !w.changed.Swap(true) {
		logger.Debug("%s changed on disk (%s)", w.path, event.Op)
	}
}
