// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/rp/internal/logging"
)

// watchDebounce coalesces bursts of filesystem events (editors write, chmod
// and rename in quick succession) into a single reload callback.
const watchDebounce = 150 * time.Millisecond

// Watcher watches shader directories and invokes a callback when a WGSL
// source changes. The render pipeline wires the callback to a full shader
// reload on the render thread.
type Watcher struct {
	fw       *fsnotify.Watcher
	onChange func(path string)

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	done    chan struct{}
	closed  bool
}

// NewWatcher starts watching the given directories (recursively one level:
// the directories themselves, not nested trees) for shader changes. The
// callback runs on the watcher goroutine; implementations must hand the
// reload off to the render thread themselves.
func NewWatcher(dirs []string, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fw:       fw,
		onChange: onChange,
		pending:  make(map[string]bool),
		done:     make(chan struct{}),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := fw.Add(dir); err != nil {
			logging.Logger().Warn("cannot watch shader dir", "dir", dir, "err", err)
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !isShaderSource(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Logger().Warn("shader watcher error", "err", err)
		case <-w.done:
			return
		}
	}
}

// schedule records a changed path and (re)arms the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	closed := w.closed
	w.mu.Unlock()

	if closed {
		return
	}
	for _, p := range paths {
		logging.Logger().Info("shader source changed", "path", p)
		w.onChange(p)
	}
}

// Close stops watching. Pending debounced callbacks are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.fw.Close()
}

// isShaderSource reports whether a path looks like a WGSL source or include.
func isShaderSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".wgsl"
}
