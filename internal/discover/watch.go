package discover

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"forge/internal/logging"
)

// debounceWindow batches rapid successive writes (editor saves, git
// checkouts) into a single rescan trigger. Grounded on codenerd's
// MangleWatcher debounce window.
const debounceWindow = 500 * time.Millisecond

// Watcher triggers onChange (debounced) whenever a file under the
// repository's top-level directories changes. fsnotify.Watcher does not
// recurse, so Watcher adds one watch per top-level directory — the same
// single-level scope MangleWatcher uses for its own watched directory —
// rather than attempting a full recursive tree watch.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string

	mu          sync.Mutex
	lastEvent   time.Time
	pendingStop chan struct{}
	done        chan struct{}
}

// NewWatcher creates a Watcher rooted at codebasePath, watching its
// top-level directories plus the root itself.
func NewWatcher(codebasePath string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(codebasePath); err != nil {
		_ = w.Close()
		return nil, err
	}
	dirs, err := topLevelDirs(codebasePath)
	if err == nil {
		for _, d := range dirs {
			_ = w.Add(filepath.Join(codebasePath, d)) // best-effort; missing dirs are skipped
		}
	}
	return &Watcher{
		watcher:     w,
		root:        codebasePath,
		pendingStop: make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

// Start runs the debounced event loop in a goroutine, calling onChange at
// most once per debounceWindow.
func (w *Watcher) Start(ctx context.Context, onChange func()) {
	log := logging.Get(logging.CategoryContext)
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.pendingStop:
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if irrelevant(event.Name) {
					continue
				}
				w.mu.Lock()
				w.lastEvent = time.Now()
				w.mu.Unlock()
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watch error: %v", err)
			case <-ticker.C:
				w.mu.Lock()
				due := !w.lastEvent.IsZero() && time.Since(w.lastEvent) >= debounceWindow
				if due {
					w.lastEvent = time.Time{}
				}
				w.mu.Unlock()
				if due {
					onChange()
				}
			}
		}
	}()
}

// Stop halts the watch loop and closes the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.pendingStop)
	<-w.done
	_ = w.watcher.Close()
}

func irrelevant(path string) bool {
	base := filepath.Base(path)
	switch base {
	case ".git", ".forge", "node_modules":
		return true
	}
	return filepath.Ext(base) == ".log"
}
