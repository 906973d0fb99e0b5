package index

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/luhmann/internal/apperr"
	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "luhmann-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testGrammar() *luhmann.Grammar {
	return luhmann.MustGrammar(luhmann.DefaultConfig(), "[0-9]{12}")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM views`).Scan(&count); err != nil {
		t.Fatalf("views table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "202012091130 (1) Hello.md",
		PrimaryID: "202012091130",
		LuhmannID: "1",
		Title:     "Hello",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "This is a hello world note."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum(row.Path)
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetNote(row.Path)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.LuhmannID != "1" || got.PrimaryID != "202012091130" || len(got.Tags) != 2 {
		t.Errorf("GetNote = %+v", got)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetNote("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x"}, "body")

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", LuhmannID: "1", Checksum: "1"}, "old body")
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", LuhmannID: "2", Checksum: "2", Tags: []string{"new"}}, "new body")

	got, err := db.GetNote("up.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Checksum != "2" || got.Title != "New" || got.LuhmannID != "2" {
		t.Errorf("row not updated: %+v", got)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestLuhmannNotes_Order(t *testing.T) {
	db := testDB(t)
	for _, r := range []NoteRow{
		{Path: "c.md", LuhmannID: "1,2"},
		{Path: "a.md", LuhmannID: "1"},
		{Path: "d.md", LuhmannID: "1,10"},
		{Path: "plain.md"},
		{Path: "b.md", LuhmannID: "1,1,a"},
	} {
		if err := db.UpsertNote(r, ""); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := db.LuhmannNotes()
	if err != nil {
		t.Fatalf("LuhmannNotes: %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r.LuhmannID)
	}
	want := []string{"1", "1,1,a", "1,10", "1,2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNoteByPrimaryID(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "202012091130 (1) A.md", PrimaryID: "202012091130", LuhmannID: "1"}, "")

	got, err := db.NoteByPrimaryID("202012091130")
	if err != nil {
		t.Fatalf("NoteByPrimaryID: %v", err)
	}
	if got.Path != "202012091130 (1) A.md" {
		t.Errorf("path = %q", got.Path)
	}
	if _, err := db.NoteByPrimaryID("000000000000"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadView(t *testing.T) {
	db := testDB(t)
	if _, err := db.LoadView("main"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("LoadView on empty db: err = %v, want ErrNotFound", err)
	}

	v := ViewRow{Name: "main", Files: []string{"a.md", "b.md"}, Cursor: 1, Current: "202012091130"}
	if err := db.SaveView(v); err != nil {
		t.Fatalf("SaveView: %v", err)
	}
	v.Cursor = 0
	v.Files = []string{"b.md"}
	if err := db.SaveView(v); err != nil {
		t.Fatalf("SaveView overwrite: %v", err)
	}

	got, err := db.LoadView("main")
	if err != nil {
		t.Fatalf("LoadView: %v", err)
	}
	if got.Cursor != 0 || len(got.Files) != 1 || got.Files[0] != "b.md" || got.Current != "202012091130" {
		t.Errorf("LoadView = %+v", got)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "s.md", Title: "Search Me", LuhmannID: "3", Checksum: "1"}, "uniqueword appears here")

	results, err := db.Search(SearchQuery{Text: "uniqueword", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" || results[0].LuhmannID != "3" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSearch_Branch(t *testing.T) {
	db := testDB(t)
	for _, n := range []NoteRow{
		{Path: "a.md", LuhmannID: "1,2", Checksum: "a"},
		{Path: "b.md", LuhmannID: "1,2,a", Checksum: "b"},
		{Path: "c.md", LuhmannID: "1,20", Checksum: "c"},
		{Path: "d.md", Checksum: "d"},
	} {
		if err := db.UpsertNote(n, "shared term"); err != nil {
			t.Fatal(err)
		}
	}

	results, err := db.Search(SearchQuery{Text: "shared", Branch: "1,2", Delimiter: ","})
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	if strings.Join(paths, " ") != "a.md b.md" {
		t.Errorf("branch hits = %v, want [a.md b.md]", paths)
	}
}


func TestSync(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	g := testGrammar()

	_ = store.Write("202012091130 (1) Root.md", []byte("# Ignored heading\nbody"))
	_ = store.Write("202012091131 (1,1) Child.md", []byte("child #zettel"))
	_ = store.Write("202012091132.md", []byte("# Loose note"))

	st, err := Sync(db, store, g, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if st.Indexed != 3 || st.Removed != 0 || st.Failed != 0 {
		t.Errorf("first sync stats = %+v", st)
	}

	child, err := db.GetNote("202012091131 (1,1) Child.md")
	if err != nil {
		t.Fatal(err)
	}
	if child.LuhmannID != "1,1" || child.Title != "Child" || child.PrimaryID != "202012091131" {
		t.Errorf("child row = %+v", child)
	}
	if len(child.Tags) != 1 || child.Tags[0] != "zettel" {
		t.Errorf("child tags = %v", child.Tags)
	}

	loose, err := db.GetNote("202012091132.md")
	if err != nil {
		t.Fatal(err)
	}
	if loose.LuhmannID != "" || loose.Title != "Loose note" {
		t.Errorf("loose row = %+v", loose)
	}

	if err := os.Remove(filepath.Join(dir, "202012091132.md")); err != nil {
		t.Fatal(err)
	}
	st, err = Sync(db, store, g, quietLogger())
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if st.Indexed != 0 || st.Removed != 1 || st.Unchanged != 2 {
		t.Errorf("second sync stats = %+v", st)
	}
	if _, err := db.GetNote("202012091132.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale row survived sync: %v", err)
	}
}
