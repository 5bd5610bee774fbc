// Package watcher reports debounced changes to a firmware project's sources,
// manifest and partition table.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/phuslu/log"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// skipDirs are never watched.
var skipDirs = map[string]bool{
	".git":    true,
	".pio":    true,
	".fwscan": true,
}

// Config selects what a Watcher observes.
type Config struct {
	Dirs       []string      // watched recursively
	Extensions []string      // file extensions reported from Dirs, e.g. ".cpp"
	Files      []string      // single files reported regardless of extension
	Debounce   time.Duration // DefaultDebounce when zero
}

// Watcher batches file system events and reports them after a quiet period.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions map[string]bool
	files      map[string]bool
	debounce   time.Duration

	callback func(files []string)
	cancel   context.CancelFunc

	mu          sync.Mutex
	accumulated map[string]bool
	timer       *time.Timer

	stopOnce sync.Once
	doneCh   chan struct{}
}

// New creates a watcher. Every directory in cfg.Dirs must exist; missing
// single files are skipped.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:     fsw,
		extensions:  make(map[string]bool, len(cfg.Extensions)),
		files:       make(map[string]bool, len(cfg.Files)),
		debounce:    cfg.Debounce,
		accumulated: make(map[string]bool),
		doneCh:      make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	for _, ext := range cfg.Extensions {
		w.extensions[ext] = true
	}

	for _, dir := range cfg.Dirs {
		if err := w.addRecursive(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	for _, f := range cfg.Files {
		if _, err := os.Stat(f); err != nil {
			log.Debug().Str("file", f).Msg("not watching missing file")
			continue
		}
		w.files[filepath.Clean(f)] = true
		// watch the parent so editors that replace the file are seen
		if err := fsw.Add(filepath.Dir(f)); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("failed to watch file")
		}
	}
	return w, nil
}

// Start runs the event loop until ctx is cancelled or Stop is called.
// callback receives the changed paths, sorted, and runs on the loop
// goroutine, so batches are never reported concurrently.
func (w *Watcher) Start(ctx context.Context, callback func(files []string)) {
	w.callback = callback
	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)
}

// Stop ends the event loop and releases the watcher. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

// Done is closed when the event loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
					}
				}
			}
			if !w.relevant(event) {
				continue
			}
			w.mu.Lock()
			w.accumulated[event.Name] = true
			w.mu.Unlock()
			w.resetTimer(fire)

		case <-fire:
			if files := w.drain(); len(files) > 0 && w.callback != nil {
				w.callback(files)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// drain returns and clears the accumulated paths.
func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := make([]string, 0, len(w.accumulated))
	for f := range w.accumulated {
		files = append(files, f)
	}
	w.accumulated = make(map[string]bool)
	sort.Strings(files)
	return files
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// relevant keeps writes, creates, removes and renames of watched files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if w.files[filepath.Clean(event.Name)] {
		return true
	}
	return w.extensions[filepath.Ext(event.Name)]
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("cannot access directory, not watching it")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Warn().Err(err).Str("dir", path).Msg("failed to watch directory")
		}
		return nil
	})
}
