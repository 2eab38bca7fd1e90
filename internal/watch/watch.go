// Package watch re-imports table CSV files when they change on disk.
//
// The watcher observes one folder. A write to <Key>.csv, where Key is a
// registered table, schedules an import of that file once the file has
// been quiet for the debounce interval, so an editor's burst of writes
// becomes a single import. If another transfer is running the import is
// scheduled again instead of waiting for a slot.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JonMunkholm/gamedata/internal/core"
)

// DefaultDebounce is used when New is given a non-positive interval.
const DefaultDebounce = 500 * time.Millisecond

// Importer loads CSV text into a table without queueing behind other
// transfers: a busy importer returns core.ErrTransferBusy at once.
// *core.Service implements it.
type Importer interface {
	TryImportReader(ctx context.Context, key string, r io.Reader, mode core.ImportMode) (core.ImportResult, error)
}

// Watcher imports changed CSV files from a folder.
type Watcher struct {
	dir      string
	importer Importer
	mode     core.ImportMode
	debounce time.Duration

	// OnImport, if set, is called after every import attempt.
	OnImport func(key string, res core.ImportResult, err error)

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// New returns a watcher for dir. It does nothing until Run.
func New(dir string, importer Importer, mode core.ImportMode, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		importer: importer,
		mode:     mode,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is done. Pending imports are cancelled and running
// ones finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	// Watch the folder rather than each file so editors that save by
	// rename are still seen.
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	slog.Info("watching csv folder", "dir", w.dir, "mode", w.mode, "debounce", w.debounce)

	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := TableForFile(ev.Name)
			if !ok {
				continue
			}
			slog.Debug("csv changed", "file", ev.Name, "op", ev.Op.String())
			w.schedule(ctx, key, ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("file watcher error", "error", err)
		}
	}
}

// TableForFile returns the registered table a CSV file name belongs to.
func TableForFile(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".csv") {
		return "", false
	}
	key := strings.TrimSuffix(base, ext)
	if _, ok := core.Get(key); !ok {
		return "", false
	}
	return key, true
}

func (w *Watcher) schedule(ctx context.Context, key, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.pending[key]; ok {
		t.Stop()
	}
	w.pending[key] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, key)
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		w.importFile(ctx, key, path)
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	for key, t := range w.pending {
		t.Stop()
		delete(w.pending, key)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) importFile(ctx context.Context, key, path string) {
	if ctx.Err() != nil {
		return
	}

	res, err := w.read(ctx, key, path)
	if errors.Is(err, core.ErrTransferBusy) {
		slog.Debug("transfer running, retrying watch import", "table", key, "after", w.debounce)
		w.schedule(ctx, key, path)
		return
	}
	if err != nil {
		slog.Error("watch import failed", "table", key, "file", path, "error", err)
	} else {
		slog.Info("watch import complete",
			"table", key,
			"rows", res.Rows,
			"unmatched", res.Unmatched,
			"failed_cells", res.FailedCells,
		)
	}
	if w.OnImport != nil {
		w.OnImport(key, res, err)
	}
}

func (w *Watcher) read(ctx context.Context, key, path string) (core.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.ImportResult{}, err
	}
	defer f.Close()
	return w.importer.TryImportReader(core.ContextWithActor(ctx, "watch"), key, f, w.mode)
}
