// Package watch reruns the rewrite pipeline as watched files change.
// Events are debounced per file so a burst of editor saves turns into a
// single rewrite once the file has settled.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"swiftstrip/internal/config"
	"swiftstrip/internal/rewrite"
	"swiftstrip/internal/scanner"
)

// Handler receives the results of each settled batch.
type Handler func([]rewrite.Result)

type Watcher struct {
	pipe    *rewrite.Pipeline
	root    string
	exts    map[string]bool
	exclude []string
	handler Handler
	log     *zap.Logger

	// Settle is how long a file must stay quiet before it is rewritten;
	// pending files are checked every Sweep.
	Settle time.Duration
	Sweep  time.Duration

	fsw     *fsnotify.Watcher
	pending map[string]time.Time
}

// New builds a Watcher over cfg.Root and seeds it with every directory a
// scan would descend into. Directories created later are picked up from
// their create events.
func New(cfg *config.Config, pipe *rewrite.Pipeline, handler Handler, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		pipe:    pipe,
		root:    cfg.Root,
		exts:    make(map[string]bool, len(cfg.Extensions)),
		exclude: cfg.Exclude,
		handler: handler,
		log:     log,
		Settle:  500 * time.Millisecond,
		Sweep:   100 * time.Millisecond,
		fsw:     fsw,
		pending: make(map[string]time.Time),
	}
	for _, e := range cfg.Extensions {
		w.exts[e] = true
	}

	dirs, err := scanner.Dirs(cfg.Root, cfg.Exclude)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled. Pending, Events, and Errors are all
// served from this one goroutine, so no locking is needed around the
// pending map.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.log.Info("watching", zap.String("root", w.root))

	ticker := time.NewTicker(w.Sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addTree(ev.Name)
			return
		}
	}
	if !w.exts[filepath.Ext(ev.Name)] {
		return
	}
	w.pending[ev.Name] = time.Now()
}

// addTree watches a directory created after startup, including any
// subdirectories that appeared with it.
func (w *Watcher) addTree(dir string) {
	base := filepath.Base(dir)
	if strings.HasPrefix(base, ".") {
		return
	}
	for _, name := range w.exclude {
		if base == name {
			return
		}
	}
	dirs, err := scanner.Dirs(dir, w.exclude)
	if err != nil {
		w.log.Warn("cannot scan new directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			w.log.Warn("cannot watch directory", zap.String("dir", d), zap.Error(err))
			continue
		}
		w.log.Debug("watching directory", zap.String("dir", d))
	}
}

// flush rewrites every pending file whose last event is at least Settle
// old. A rewrite's own event lands back in pending and converges to an
// unchanged result on the next pass.
func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	now := time.Now()
	var settled []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.Settle {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)

	results := w.pipe.Run(ctx, settled)
	if w.handler != nil {
		w.handler(results)
	}
}
