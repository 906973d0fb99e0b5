package navigator

import "context"

// FileLister is the host's file discovery service. pattern is matched
// against file base names.
type FileLister interface {
	ListFiles(ctx context.Context, recursive bool, pattern string) ([]string, error)
}

// Formatter renders a file name as one display line.
type Formatter interface {
	Format(file string) string
}

// Sorter orders a file set for display.
type Sorter interface {
	SortFiles(files []string) []string
}

// Display is the host's list view. Render replaces its content wholesale
// and moves the cursor to the first line.
type Display interface {
	Files() []string
	Lines() []string
	Cursor() int
	Render(files []string, f Formatter, s Sorter)
	// Goto moves the cursor to the first line containing text.
	Goto(text string) bool
	// Highlight marks the cursor line until the next Render.
	Highlight()
}

// NoteLocator reports the primary ID of the note the user is working on.
type NoteLocator interface {
	CurrentNoteID() (string, error)
}
