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

	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/parser"
	"github.com/starford/luhmann/internal/storage"
)

// Note event kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// reconcileDelay debounces the pass that follows a rename.
const reconcileDelay = 200 * time.Millisecond

// NoteEvent describes one watcher-driven index change. The IDs are those of
// the note as indexed, or as it was indexed before a delete.
type NoteEvent struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	PrimaryID string `json:"primary_id,omitempty"`
	LuhmannID string `json:"luhmann_id,omitempty"`
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(NoteEvent)

type watcher struct {
	db     NoteIndex
	store  storage.Provider
	g      *luhmann.Grammar
	logger *slog.Logger
	cb     EventCallback
}

// Watch starts an fsnotify watcher on the vault root and keeps the index in
// step with note files until ctx is cancelled. It calls cb (if non-nil)
// after each index mutation; writes that leave a file's checksum unchanged
// are not reported.
//
// New directories created at runtime are added to the watch list. A rename
// triggers a debounced reconciliation pass, since only the old path is
// reported when a file leaves a watched directory.
func Watch(ctx context.Context, db NoteIndex, store storage.Provider, g *luhmann.Grammar, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := store.Root()
	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	w := &watcher{db: db, store: store, g: g, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	defer func() {
		if reconcileTimer != nil {
			reconcileTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileCh = nil
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && w.handleNewDir(fw, ev.Name) {
				continue
			}
			rel, ok := w.relPath(ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := KindUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = KindCreated
				}
				w.index(rel, kind)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.remove(rel)
				if ev.Op&fsnotify.Rename != 0 {
					if reconcileTimer == nil {
						reconcileTimer = time.NewTimer(reconcileDelay)
					} else {
						reconcileTimer.Reset(reconcileDelay)
					}
					reconcileCh = reconcileTimer.C
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relPath maps an absolute event path to a vault path, reporting false for
// files that are not notes.
func (w *watcher) relPath(abs string) (string, bool) {
	if !strings.HasSuffix(abs, w.store.Extension()) {
		return "", false
	}
	rel, err := filepath.Rel(w.store.Root(), abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// handleNewDir watches and indexes a directory created at runtime. It
// reports whether abs was a directory.
func (w *watcher) handleNewDir(fw *fsnotify.Watcher, abs string) bool {
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return false
	}
	if strings.HasPrefix(info.Name(), ".") {
		return true
	}
	if err := addDirsRecursive(fw, abs); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", abs),
			slog.String("error", err.Error()))
	} else {
		w.logger.Debug("watcher: watching new dir", slog.String("path", abs))
	}
	_ = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.relPath(path); ok {
			w.index(rel, KindCreated)
		}
		return nil
	})
	return true
}

// index re-indexes rel unless its content is unchanged.
func (w *watcher) index(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if old, err := w.db.GetChecksum(rel); err == nil && old == storage.Checksum(data) {
		return
	}
	row, err := IndexFile(w.db, w.g, rel, data)
	if err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(NoteEvent{Kind: kind, Path: rel, PrimaryID: row.PrimaryID, LuhmannID: row.LuhmannID})
}

// remove drops rel from the index and reports the IDs it was indexed with.
func (w *watcher) remove(rel string) {
	ev := NoteEvent{Kind: KindDeleted, Path: rel}
	if row, err := w.db.GetNote(rel); err == nil {
		ev.PrimaryID, ev.LuhmannID = row.PrimaryID, row.LuhmannID
	} else {
		name := parser.ParseName(w.g, rel)
		ev.PrimaryID = name.Primary
		if name.HasID {
			ev.LuhmannID = name.ID.String()
		}
	}
	if err := w.db.DeleteNote(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit(ev)
}

// reconcile removes index rows whose files are gone and indexes files the
// index does not know yet.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if old, ok := checksums[p]; !ok {
			w.index(p, KindCreated)
		} else if old != cs {
			w.index(p, KindUpdated)
		}
	}
}

func (w *watcher) emit(ev NoteEvent) {
	if w.cb != nil {
		w.cb(ev)
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
