// Package importer reads lap CSV files, either once or from a watched drop
// directory.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/fetch"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/utils"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

// DefaultSettle is the quiet period after the last write to a file before it
// is read.
const DefaultSettle = 200 * time.Millisecond

// Handler receives the laps of an imported file.
type Handler func(ctx context.Context, path string, laps []model.Lap)

// ImportFile parses a CSV file. Dates missing in the file are set to the day
// of now.
func ImportFile(path string, now time.Time) ([]model.Lap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	laps, err := canonical.ParseCSV(f, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return laps, nil
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

type (
	Option  func(*DropDir)
	DropDir struct {
		dir      string
		handler  Handler
		settle   time.Duration
		existing bool
		clock    clock.Clock
		log      *log.Logger

		mu      sync.Mutex
		pending map[string]*fetch.Debouncer[string]
		hashes  map[string]string // content hash of the last import per file
	}
)

func WithSettle(d time.Duration) Option {
	return func(w *DropDir) {
		w.settle = d
	}
}

// WithExisting imports the CSV files already present when Run starts.
func WithExisting(arg bool) Option {
	return func(w *DropDir) {
		w.existing = arg
	}
}

func WithClock(c clock.Clock) Option {
	return func(w *DropDir) {
		w.clock = c
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *DropDir) {
		w.log = l
	}
}

func NewDropDir(dir string, handler Handler, opts ...Option) *DropDir {
	ret := &DropDir{
		dir:     dir,
		handler: handler,
		settle:  DefaultSettle,
		clock:   clock.Real(),
		log:     log.Default().Named("importer"),
		pending: map[string]*fetch.Debouncer[string]{},
		hashes:  map[string]string{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run watches the directory until ctx is done. Files which cannot be parsed
// are logged and skipped.
//
//nolint:cyclop // event loop
func (w *DropDir) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching drop directory", log.String("dir", w.dir))
	if w.existing {
		w.importExisting(ctx)
	}
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("context done, stopping drop directory watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isCSV(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.log.Debug("change detected",
					log.String("file", event.Name), log.Stringer("op", event.Op))
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", log.ErrorField(err))
		}
	}
}

func (w *DropDir) importExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Error("could not list drop directory", log.ErrorField(err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() && isCSV(e.Name()) {
			w.process(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

// schedule processes path once writes to it have settled.
func (w *DropDir) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.pending[path]
	if !ok {
		d = fetch.NewDebouncer(w.settle, func(p string) {
			if ctx.Err() == nil {
				w.process(ctx, p)
			}
		})
		w.pending[path] = d
	}
	d.Trigger(path)
}

func (w *DropDir) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range w.pending {
		d.Stop()
	}
}

// process imports path unless its content did not change since the last import.
func (w *DropDir) process(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("could not read file", log.String("file", path), log.ErrorField(err))
		return
	}
	hash := utils.ContentHash(data)
	w.mu.Lock()
	unchanged := w.hashes[path] == hash
	w.hashes[path] = hash
	w.mu.Unlock()
	if unchanged {
		w.log.Debug("file unchanged, skipping", log.String("file", path))
		return
	}
	laps, err := canonical.ParseCSV(bytes.NewReader(data), w.clock.Now())
	if err != nil {
		w.log.Warn("could not import file", log.String("file", path), log.ErrorField(err))
		return
	}
	w.log.Info("imported file", log.String("file", path), log.Int("laps", len(laps)))
	w.handler(ctx, path, laps)
}
