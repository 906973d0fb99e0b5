//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE fallback on the notes.body column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error {
	// Body is already stored in the notes table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// Title hits rank first, then notes in index order, unfiled notes last.
func (db *DB) Search(q SearchQuery) ([]SearchResult, error) {
	like := likePattern(q.Text)
	branch, branchArgs := q.branchFilter("luhmann_id")
	args := append([]any{like, like, like}, branchArgs...)
	args = append(args, like, q.limit())

	rows, err := db.conn.Query(`
		SELECT path, luhmann_id, title, substr(body, 1, 200)
		FROM notes
		WHERE (title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')
		  AND `+branch+`
		ORDER BY title LIKE ? ESCAPE '\' DESC, luhmann_id = '', luhmann_id, path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.LuhmannID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
