package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/luhmann/internal/apperr"
)

// ViewRow is the persisted state of a named view buffer.
type ViewRow struct {
	Name      string
	Files     []string
	Cursor    int
	Current   string // primary ID of the active note
	UpdatedAt time.Time
}

// SaveView stores v, replacing any previous state under the same name.
func (db *DB) SaveView(v ViewRow) error {
	if v.Files == nil {
		v.Files = []string{}
	}
	files, err := json.Marshal(v.Files)
	if err != nil {
		return fmt.Errorf("index: encode view: %w", err)
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now().UTC()
	}
	_, err = db.conn.Exec(`
		INSERT INTO views (name, files, cursor, current, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			files      = excluded.files,
			cursor     = excluded.cursor,
			current    = excluded.current,
			updated_at = excluded.updated_at
	`, v.Name, string(files), v.Cursor, v.Current, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: save view %s: %w", v.Name, err)
	}
	return nil
}

// LoadView returns the view stored under name or apperr.ErrNotFound.
func (db *DB) LoadView(name string) (*ViewRow, error) {
	var (
		v     ViewRow
		files string
	)
	err := db.conn.QueryRow(`SELECT name, files, cursor, current, updated_at FROM views WHERE name = ?`, name).
		Scan(&v.Name, &files, &v.Cursor, &v.Current, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: load view %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: load view %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(files), &v.Files); err != nil {
		return nil, fmt.Errorf("index: decode view %s: %w", name, err)
	}
	return &v, nil
}
