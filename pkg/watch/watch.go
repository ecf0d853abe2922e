// Package watch calls back when a source file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/glog"
)

const (
	DefaultDebounce = 200 * time.Millisecond
	pollInterval    = 100 * time.Millisecond
)

// backend reports, without blocking, whether the file changed since the
// previous call.
type backend interface {
	poll() (bool, error)
	close() error
}

// Watcher watches one file. Bursts of changes (editors often write a file in
// several steps) are collapsed into a single callback.
type Watcher struct {
	path     string
	onChange func(path string)
	debounce time.Duration
	interval time.Duration
	backend  backend

	mu    sync.Mutex
	timer *time.Timer

	running sync.Mutex // held while onChange runs
}

// New starts watching path. onChange runs on its own goroutine, one call at
// a time.
func New(path string, onChange func(path string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(abs)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	return newWatcher(abs, b, onChange), nil
}

func newWatcher(path string, b backend, onChange func(string)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		interval: pollInterval,
		backend:  b,
	}
}

// Run delivers change notifications until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case <-ticker.C:
			changed, err := w.backend.poll()
			if err != nil {
				return err
			}
			if changed {
				glog.V(1).Infof("watch: %s changed", w.path)
				w.trigger()
			}
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.running.Lock()
		defer w.running.Unlock()
		w.onChange(w.path)
	})
}

// Close releases the underlying watch.
func (w *Watcher) Close() error {
	return w.backend.close()
}
