// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/luhmann/internal/index"
	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/storage"
)

// PrimaryPattern is the primary ID pattern used by test vaults.
const PrimaryPattern = "[0-9]{12}"

// Corpus is a small vault in the default naming scheme.
var Corpus = map[string]string{
	"202012091130 (1) Slip boxes.md":        "# Slip boxes\n\nNotes about notes. #zettel\n",
	"202012091131 (1,1) Fixed positions.md": "# Fixed positions\n\nEvery slip keeps its place.\n",
	"202012091132 (1,2) Branching.md":       "# Branching\n\nA slip can start a branch.\n",
	"202012091133 (1,2,a) Letters.md":       "# Letters\n\nBranches alternate numbers and letters.\n",
	"202012091134 (2) Communication.md":     "# Communication\n\nThe box as a partner.\n",
	"202012091135 Inbox.md":                 "# Inbox\n\nNot filed yet.\n",
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "luhmann-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir, "")
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// Grammar returns the default grammar.
func Grammar(t *testing.T) *luhmann.Grammar {
	t.Helper()
	g, err := luhmann.NewGrammar(luhmann.DefaultConfig(), PrimaryPattern)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// Seed writes files into store and syncs them into db.
func Seed(t *testing.T, store storage.Provider, db *index.DB, g *luhmann.Grammar, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := store.Write(name, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := index.Sync(db, store, g, Logger()); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
