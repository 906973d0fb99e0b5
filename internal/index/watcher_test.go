package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/luhmann/internal/storage"
)

// watcherTestEnv sets up a vault dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir, "")
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []NoteEvent

	go Watch(ctx, db, store, testGrammar(), quietLogger(), func(ev NoteEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	name := "202012091130 (1,2) New.md"
	_ = os.WriteFile(filepath.Join(vaultDir, name), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		n, err := db.GetNote(name)
		return err == nil && n.LuhmannID == "1,2"
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e.Kind == KindCreated && e.Path == name && e.LuhmannID == "1,2" && e.PrimaryID == "202012091130" {
				return true
			}
		}
		return false
	}, "expected created callback carrying the note IDs")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, testGrammar(), quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(vaultDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("subdir/deep.md")
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	g := testGrammar()

	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me"), 0o644)
	if _, err := Sync(db, store, g, quietLogger()); err != nil {
		t.Fatal(err)
	}

	cs, _ := db.GetChecksum("del.md")
	if cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, g, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, store, db := watcherTestEnv(t)
	g := testGrammar()

	_ = os.WriteFile(filepath.Join(vaultDir, "202012091130 Plain.md"), []byte("# Rename"), 0o644)
	if _, err := Sync(db, store, g, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, g, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	renamed := "202012091130 (4) Plain.md"
	_ = os.Rename(filepath.Join(vaultDir, "202012091130 Plain.md"), filepath.Join(vaultDir, renamed))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("202012091130 Plain.md")
		n, err := db.GetNote(renamed)
		return oldCS == "" && err == nil && n.LuhmannID == "4"
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

// recorder collects watcher events for the synchronous watcher tests.
type recorder struct {
	events []NoteEvent
}

func (r *recorder) record(ev NoteEvent) { r.events = append(r.events, ev) }

func newTestWatcher(t *testing.T) (*watcher, storage.Provider, *recorder) {
	t.Helper()
	_, store, db := watcherTestEnv(t)
	rec := &recorder{}
	return &watcher{db: db, store: store, g: testGrammar(), logger: quietLogger(), cb: rec.record}, store, rec
}

func TestWatcher_IndexSkipsUnchangedContent(t *testing.T) {
	w, store, rec := newTestWatcher(t)
	name := "202012091130 (1) Root.md"
	if err := store.Write(name, []byte("# Root")); err != nil {
		t.Fatal(err)
	}

	w.index(name, KindCreated)
	w.index(name, KindUpdated)
	if len(rec.events) != 1 || rec.events[0].Kind != KindCreated {
		t.Fatalf("events = %+v, want one created", rec.events)
	}

	if err := store.Write(name, []byte("# Root\n\nmore")); err != nil {
		t.Fatal(err)
	}
	w.index(name, KindUpdated)
	if len(rec.events) != 2 || rec.events[1].Kind != KindUpdated || rec.events[1].LuhmannID != "1" {
		t.Errorf("events = %+v, want created then updated", rec.events)
	}
}

func TestWatcher_RemoveReportsIndexedIDs(t *testing.T) {
	w, store, rec := newTestWatcher(t)
	name := "202012091131 (1,1) Child.md"
	if err := store.Write(name, []byte("# Child")); err != nil {
		t.Fatal(err)
	}
	w.index(name, KindCreated)

	w.remove(name)
	last := rec.events[len(rec.events)-1]
	if last.Kind != KindDeleted || last.LuhmannID != "1,1" || last.PrimaryID != "202012091131" {
		t.Errorf("delete event = %+v", last)
	}
	if cs, _ := w.db.GetChecksum(name); cs != "" {
		t.Error("row survived remove")
	}

	// Unindexed paths fall back to the file name.
	w.remove("202012091139 (7,b) Gone.md")
	last = rec.events[len(rec.events)-1]
	if last.LuhmannID != "7,b" || last.PrimaryID != "202012091139" {
		t.Errorf("fallback delete event = %+v", last)
	}
}

func TestWatcher_Reconcile(t *testing.T) {
	w, store, rec := newTestWatcher(t)
	if err := store.Write("202012091130 (1) Old.md", []byte("# Old")); err != nil {
		t.Fatal(err)
	}
	w.index("202012091130 (1) Old.md", KindCreated)
	rec.events = nil

	if err := store.Move("202012091130 (1) Old.md", "202012091130 (2) Old.md"); err != nil {
		t.Fatal(err)
	}
	w.reconcile()

	kinds := map[string]string{}
	for _, ev := range rec.events {
		kinds[ev.Path] = ev.Kind
	}
	if kinds["202012091130 (1) Old.md"] != KindDeleted || kinds["202012091130 (2) Old.md"] != KindCreated {
		t.Errorf("reconcile events = %+v", rec.events)
	}
}
