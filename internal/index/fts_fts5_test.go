//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files_fts`).Scan(&count); err != nil {
		t.Fatalf("files_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "202012091130 (1,a) FTS Note.md",
		LuhmannID: "1,a",
		Title:     "FTS Note",
		Checksum:  "f1",
		Tags:      []string{"search"},
	}
	if err := db.UpsertNote(row, "A slip box provides powerful associative search."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	results, err := db.Search(SearchQuery{Text: "powerful", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != row.Path || results[0].LuhmannID != "1,a" {
		t.Errorf("result = %+v", results[0])
	}
	// FTS5 snippet should contain bold markers.
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "gone.md", Checksum: "g"}, "vanishing content")
	_ = db.DeleteNote("gone.md")

	results, _ := db.Search(SearchQuery{Text: "vanishing", Limit: 10})
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted note still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "evo.md", Title: "Old", Checksum: "1"}, "original text")
	_ = db.UpsertNote(NoteRow{Path: "evo.md", Title: "New", Checksum: "2"}, "replacement text")

	results, _ := db.Search(SearchQuery{Text: "original", Limit: 10})
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search(SearchQuery{Text: "replacement", Limit: 10})
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_SearchBranch(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.md", LuhmannID: "1,2", Checksum: "a"}, "shared term")
	_ = db.UpsertNote(NoteRow{Path: "b.md", LuhmannID: "1,20", Checksum: "b"}, "shared term")

	results, err := db.Search(SearchQuery{Text: "shared", Branch: "1,2", Delimiter: ","})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "a.md" {
		t.Errorf("branch results = %+v", results)
	}
}
