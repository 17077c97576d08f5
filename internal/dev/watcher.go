package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/lalilo-dev/lalilo/internal/errors"
	"github.com/lalilo-dev/lalilo/internal/logger"
)

// DefaultIgnore contains default patterns to ignore. Plain names match any
// path segment; patterns with globs match the file name.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher reports changes below a root directory. New directories are
// watched as they appear.
type Watcher struct {
	root   string
	ignore []string
	log    *slog.Logger

	mu       sync.Mutex
	onChange func(ChangeEvent)
	fsw      *fsnotify.Watcher
	known    map[string]struct{}
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for root. A nil ignore uses DefaultIgnore.
func NewWatcher(root string, ignore []string, log *slog.Logger) *Watcher {
	if ignore == nil {
		ignore = DefaultIgnore
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Watcher{
		root:   filepath.Clean(root),
		ignore: ignore,
		log:    log,
		known:  make(map[string]struct{}),
	}
}

// OnChange sets the callback for file changes. Callbacks run on the
// watcher goroutine, one at a time.
func (w *Watcher) OnChange(fn func(ChangeEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start registers watches for the whole tree and returns once they are in
// place. Events are delivered until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return errors.New("E102").WithDetail("cannot watch " + w.root).Wrap(err)
	}
	w.fsw = fsw
	w.running = true
	w.done = make(chan struct{})
	w.mu.Unlock()

	if err := w.addTree(w.root, nil); err != nil {
		w.Stop()
		return errors.New("E102").WithDetail("cannot watch " + w.root).Wrap(err)
	}

	w.wg.Add(1)
	go w.loop(ctx, fsw, w.done)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	fsw := w.fsw
	w.mu.Unlock()

	fsw.Close()
	w.wg.Wait()
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			go w.Stop()
			return
		case <-done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.shouldIgnore(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// Files can land in a new directory before its watch exists.
			var created []string
			if err := w.addTree(path, &created); err != nil {
				w.log.Warn("cannot watch directory", "path", path, "error", err)
			}
			for _, file := range created {
				w.emit(ChangeEvent{Kind: Created, Path: file})
			}
			return
		}
		kind := Created
		if w.remember(path) {
			kind = Modified
		}
		w.emit(ChangeEvent{Kind: kind, Path: path})

	case event.Has(fsnotify.Write):
		w.remember(path)
		w.emit(ChangeEvent{Kind: Modified, Path: path})

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		for _, file := range w.forget(path) {
			w.emit(ChangeEvent{Kind: Deleted, Path: file})
		}
	}
}

// addTree watches dir and every directory below it. Files found are
// remembered and, when created is non-nil, appended to it.
func (w *Watcher) addTree(dir string, created *[]string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.log.Debug("skipping path", "path", p, "error", err)
			return nil
		}
		if w.shouldIgnore(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(p); err != nil {
				return err
			}
			return nil
		}
		if !w.remember(p) && created != nil {
			*created = append(*created, p)
		}
		return nil
	})
}

// remember records a file and reports whether it was already known.
func (w *Watcher) remember(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.known[path]
	w.known[path] = struct{}{}
	return ok
}

// forget drops path, or every known file below it when path was a
// directory, and returns the dropped files.
func (w *Watcher) forget(path string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.known[path]; ok {
		delete(w.known, path)
		return []string{path}
	}
	var dropped []string
	for file := range w.known {
		if isWithinDir(file, path) {
			delete(w.known, file)
			dropped = append(dropped, file)
		}
	}
	return dropped
}

func (w *Watcher) emit(ev ChangeEvent) {
	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	name := filepath.Base(path)
	segments := strings.Split(filepath.ToSlash(rel), "/")

	for _, pattern := range w.ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}
		for _, seg := range segments {
			if seg == pattern {
				return true
			}
		}
	}
	return false
}
