package templates

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/HendryAvila/ensemble/internal/logging"
)

// debounce collapses the burst of events editors emit for one save.
const debounce = 100 * time.Millisecond

// Watcher serves the template file at path and reloads it when it changes.
// A file that fails to parse is logged and the previous set is kept.
type Watcher struct {
	path   string
	logger *logging.Logger
	fsw    *fsnotify.Watcher

	mu  sync.RWMutex
	set Set

	reloaded chan struct{}
}

// NewWatcher loads path and starts watching its directory. Watching the
// directory rather than the file survives editors that replace the file
// on save.
func NewWatcher(path string, logger *logging.Logger) (*Watcher, error) {
	set, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		logger:   logger.WithComponent("templates"),
		fsw:      fsw,
		set:      set,
		reloaded: make(chan struct{}, 1),
	}, nil
}

// Current implements Source.
func (w *Watcher) Current() Set {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.set
}

// Run processes file events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("template watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	set, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("keeping previous templates", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	w.set = set
	w.mu.Unlock()
	w.logger.Info("templates reloaded", "path", w.path, "tasks", len(set.Tasks))

	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
