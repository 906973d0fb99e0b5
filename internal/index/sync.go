package index

import (
	"log/slog"

	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/parser"
	"github.com/starford/luhmann/internal/storage"
)

// SyncStats counts what a Sync changed.
type SyncStats struct {
	Indexed   int
	Removed   int
	Unchanged int
	Failed    int
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Files that cannot be read or parsed are logged and counted, not fatal.
func Sync(db NoteIndex, store storage.Provider, g *luhmann.Grammar, logger *slog.Logger) (SyncStats, error) {
	var st SyncStats
	metas, err := store.List("")
	if err != nil {
		return st, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return st, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			st.Unchanged++
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			st.Failed++
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexFile(db, g, m.Path, data); err != nil {
			st.Failed++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		st.Indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			st.Failed++
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		st.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: done",
		slog.Int("indexed", st.Indexed),
		slog.Int("removed", st.Removed),
		slog.Int("unchanged", st.Unchanged),
		slog.Int("failed", st.Failed))
	return st, nil
}

// IndexFile parses the file name and content of path and upserts the row.
// The title comes from the file name, falling back to the content.
func IndexFile(db NoteIndex, g *luhmann.Grammar, path string, data []byte) (NoteRow, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return NoteRow{}, err
	}
	name := parser.ParseName(g, path)

	row := NoteRow{
		Path:      path,
		PrimaryID: name.Primary,
		Title:     name.Title,
		Checksum:  storage.Checksum(data),
		Tags:      res.Tags,
	}
	if name.HasID {
		row.LuhmannID = name.ID.String()
	}
	if row.Title == "" {
		row.Title = res.Title
	}
	return row, db.UpsertNote(row, res.Body)
}
