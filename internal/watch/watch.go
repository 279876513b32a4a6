// Package watch re-runs an action when chapter archives land in a directory.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/brogergvhs/cbzmaker/internal/archive"
	"github.com/brogergvhs/cbzmaker/internal/ui"
)

type Config struct {
	// Debounce is how long the directory must stay quiet before the action
	// runs. Archives are written in several steps, so a burst of events for
	// one file collapses into a single run.
	// Default: 2 seconds
	Debounce time.Duration

	// Ignore skips archives the action writes itself, so its own output
	// does not schedule another run.
	Ignore func(path string) bool

	Logger *log.Logger
}

// Watcher calls its action at most once per quiet period, never
// concurrently with itself.
type Watcher struct {
	dir      string
	debounce time.Duration
	action   func()
	ignore   func(path string) bool
	log      *log.Logger

	mu    sync.Mutex
	timer *time.Timer
	runMu sync.Mutex
	runs  int
}

func New(dir string, cfg Config, action func()) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	return &Watcher{
		dir:      dir,
		debounce: cfg.Debounce,
		action:   action,
		ignore:   cfg.Ignore,
		log:      ui.OrDiscard(cfg.Logger),
	}
}

// Runs is the number of times the action has completed.
func (w *Watcher) Runs() int {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return w.runs
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Infof("Watching %s for new archives", w.dir)

	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !archive.IsArchive(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if w.ignore != nil && w.ignore(event.Name) {
				w.log.Debugf("Ignoring %s", event.Name)
				continue
			}
			w.log.Debugf("%s: %s", event.Op, event.Name)
			w.schedule(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Errorf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.fire()
	})
}

func (w *Watcher) fire() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.action()
	w.runs++
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}
