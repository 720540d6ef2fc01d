// Package watch reloads the graph data file when it changes on disk.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/msalah0e/garden/internal/graph"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the file must be quiet before a reload.
const DefaultDebounce = 200 * time.Millisecond

// Handler receives each successfully parsed snapshot.
type Handler func(ctx context.Context, g *graph.Graph) error

type Options struct {
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher watches one data file. Editors that save by rename are handled by
// watching the parent directory and filtering on the file name.
type Watcher struct {
	path     string
	handler  Handler
	debounce time.Duration
	log      *zap.Logger
	ready    chan struct{}

	mu   sync.Mutex
	last [sha256.Size]byte
	seen bool
}

// New returns a watcher for path. Call Run to start it.
func New(path string, h Handler, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Watcher{
		path:     abs,
		handler:  h,
		debounce: opts.Debounce,
		log:      opts.Logger.With(zap.String("path", abs)),
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Sync records the file's current contents as already applied, so a write
// the program made itself does not trigger a reload.
func (w *Watcher) Sync() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.last, w.seen = sha256.Sum256(data), true
	w.mu.Unlock()
	return nil
}

// changed reports whether data differs from the last applied contents and
// records it.
func (w *Watcher) changed(data []byte) bool {
	sum := sha256.Sum256(data)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen && sum == w.last {
		return false
	}
	w.last, w.seen = sum, true
	return true
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	close(w.ready)
	w.log.Info("watching data file")

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || (ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write)) {
				continue
			}
			w.log.Debug("data file event", zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			w.reload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// reload parses the file and hands it to the handler. A missing or broken
// file keeps the current graph on screen.
func (w *Watcher) reload(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		w.log.Debug("data file gone, keeping current graph")
		return
	}
	if err != nil {
		w.log.Warn("reading data file", zap.Error(err))
		return
	}
	if !w.changed(data) {
		return
	}

	ext := strings.ToLower(filepath.Ext(w.path))
	g, err := graph.Decode(data, ext == ".yaml" || ext == ".yml")
	if err != nil {
		w.log.Warn("data file does not parse, keeping current graph", zap.Error(err))
		return
	}
	if err := w.handler(ctx, g); err != nil {
		w.log.Warn("applying reloaded graph", zap.Error(err))
		return
	}
	w.log.Info("data file reloaded",
		zap.Int("entities", len(g.Entities)),
		zap.Int("relationships", len(g.Relationships)))
}
