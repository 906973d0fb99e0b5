package index

// NoteIndex is the derived index as seen by Sync, Watch and the note
// service. *DB is the only production implementation.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, error)
	NoteByPrimaryID(primary string) (*NoteRow, error)
	LuhmannNotes() ([]NoteRow, error)
	Search(q SearchQuery) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	SaveView(v ViewRow) error
	LoadView(name string) (*ViewRow, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
