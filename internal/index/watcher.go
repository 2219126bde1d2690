package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/chordbook/internal/checksum"
	"github.com/starford/chordbook/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

// Quiet periods. Editors save a song as a burst of create/write/chmod
// events; the burst is handled once it has been quiet for settleDelay.
const (
	settleDelay    = 75 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

// songWatcher turns fsnotify events under the vault root into index
// updates. All fields are owned by the Watch goroutine.
type songWatcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	fsw    *fsnotify.Watcher

	// pending maps a song path to the kind it will be reported as.
	pending   map[string]string
	settle    *time.Timer
	reconcile *time.Timer
}

// Watch watches the vault root until ctx is cancelled, keeping the index
// in step with song files and calling cb (if non-nil) after each change.
//
// Directories created at runtime are watched too. A rename schedules a
// reconciliation pass, since fsnotify only reports the old name.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := watchTree(fsw, vaultRoot); err != nil {
		return err
	}

	w := &songWatcher{
		db:      db,
		store:   store,
		root:    vaultRoot,
		logger:  logger,
		cb:      cb,
		fsw:     fsw,
		pending: make(map[string]string),
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-timerC(w.settle):
			w.settle = nil
			w.flush()

		case <-timerC(w.reconcile):
			w.reconcile = nil
			reconcile(db, store, logger, cb)

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// timerC returns t's channel, or nil (blocks forever) when t is unset.
func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (w *songWatcher) stopTimers() {
	for _, t := range []*time.Timer{w.settle, w.reconcile} {
		if t != nil {
			t.Stop()
		}
	}
}

func (w *songWatcher) handle(ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addDir(ev.Name)
			return
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || !isIndexable(rel) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		w.queue(rel, KindCreated)
	case ev.Op.Has(fsnotify.Write):
		w.queue(rel, KindUpdated)
	case ev.Op.Has(fsnotify.Remove):
		delete(w.pending, rel)
		w.remove(rel)
	case ev.Op.Has(fsnotify.Rename):
		delete(w.pending, rel)
		w.remove(rel)
		w.reconcile = resetTimer(w.reconcile, reconcileDelay)
	}
}

// queue records rel for the next flush. A create in the same burst wins
// over later writes.
func (w *songWatcher) queue(rel, kind string) {
	if w.pending[rel] != KindCreated {
		w.pending[rel] = kind
	}
	w.settle = resetTimer(w.settle, settleDelay)
}

func resetTimer(t *time.Timer, d time.Duration) *time.Timer {
	if t == nil {
		return time.NewTimer(d)
	}
	t.Reset(d)
	return t
}

// flush indexes every queued song. Files whose checksum already matches
// the index (saved through the song service, for example) are not
// re-parsed but are still reported.
func (w *songWatcher) flush() {
	for rel, kind := range w.pending {
		delete(w.pending, rel)

		data, err := w.store.Read(rel)
		if err != nil {
			// Gone again before the burst settled; the remove event handles it.
			w.logger.Debug("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		if cs, _ := w.db.GetChecksum(rel); cs != checksum.Sum(data) {
			if err := indexFile(w.db, rel, data); err != nil {
				w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
				continue
			}
		}
		w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		w.notify(kind, rel)
	}
}

func (w *songWatcher) remove(rel string) {
	if err := w.db.DeleteSong(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.notify(KindDeleted, rel)
}

func (w *songWatcher) notify(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// addDir watches a new directory and queues the songs already in it.
func (w *songWatcher) addDir(dir string) {
	if err := watchTree(w.fsw, dir); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", dir))

	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(w.root, p); err == nil && isIndexable(rel) {
			w.queue(rel, KindCreated)
		}
		return nil
	})
}

// watchTree adds root and every non-hidden directory below it.
func watchTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}
