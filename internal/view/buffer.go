// Package view holds the host-side list buffers the navigator renders into,
// the line formatter for Luhmann index entries, and terminal renderers.
package view

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/luhmann/internal/apperr"
	"github.com/starford/luhmann/internal/navigator"
)

// ErrNoActiveNote is returned by CurrentNoteID when no note has been opened
// in the buffer.
var ErrNoActiveNote = errors.New("no active note")

// Buffer is an in-memory list view. It satisfies navigator.Display and
// navigator.NoteLocator.
type Buffer struct {
	name      string
	files     []string
	lines     []string
	cursor    int
	highlight int // -1 when nothing is highlighted
	current   string
}

var (
	_ navigator.Display     = (*Buffer)(nil)
	_ navigator.NoteLocator = (*Buffer)(nil)
)

// NewBuffer returns an empty buffer.
func NewBuffer(name string) *Buffer {
	return &Buffer{name: name, highlight: -1}
}

// Name returns the buffer name.
func (b *Buffer) Name() string { return b.name }

// Files returns the displayed files in line order.
func (b *Buffer) Files() []string { return slices.Clone(b.files) }

// Lines returns the rendered lines.
func (b *Buffer) Lines() []string { return slices.Clone(b.lines) }

// Cursor returns the zero-based cursor line.
func (b *Buffer) Cursor() int { return b.cursor }

// Highlighted returns the highlighted line or -1.
func (b *Buffer) Highlighted() int { return b.highlight }

// Render replaces the buffer content with files sorted by s and formatted
// by f. The cursor moves to the first line and any highlight is cleared.
func (b *Buffer) Render(files []string, f navigator.Formatter, s navigator.Sorter) {
	b.fill(s.SortFiles(files), f)
	b.cursor = 0
	b.highlight = -1
}

func (b *Buffer) fill(files []string, f navigator.Formatter) {
	b.files = files
	b.lines = make([]string, len(files))
	for i, file := range files {
		b.lines[i] = f.Format(file)
	}
}

// Goto moves the cursor to the first line containing text.
func (b *Buffer) Goto(text string) bool {
	for i, l := range b.lines {
		if strings.Contains(l, text) {
			b.cursor = i
			return true
		}
	}
	return false
}

// Highlight marks the cursor line.
func (b *Buffer) Highlight() {
	if len(b.lines) > 0 {
		b.highlight = b.cursor
	}
}

// SetCursor moves the cursor to line n.
func (b *Buffer) SetCursor(n int) error {
	if n < 0 || (n > 0 && n >= len(b.lines)) {
		return fmt.Errorf("view: cursor %d outside %d lines: %w", n, len(b.lines), apperr.ErrInvalidInput)
	}
	b.cursor = n
	return nil
}

// CurrentFile returns the file on the cursor line.
func (b *Buffer) CurrentFile() (string, bool) {
	if b.cursor < 0 || b.cursor >= len(b.files) {
		return "", false
	}
	return b.files[b.cursor], true
}

// SetCurrentNote records the primary ID of the active note.
func (b *Buffer) SetCurrentNote(primary string) { b.current = primary }

// CurrentNoteID returns the primary ID of the active note.
func (b *Buffer) CurrentNoteID() (string, error) {
	if b.current == "" {
		return "", ErrNoActiveNote
	}
	return b.current, nil
}

// State is the persistable part of a buffer. Highlights are transient and
// not part of it.
type State struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Cursor  int      `json:"cursor"`
	Current string   `json:"current,omitempty"`
}

// State returns a snapshot of the buffer.
func (b *Buffer) State() State {
	files := b.Files()
	if files == nil {
		files = []string{}
	}
	return State{Name: b.name, Files: files, Cursor: b.cursor, Current: b.current}
}

// Restore rebuilds a buffer from st, formatting lines with f. The stored
// file order is kept and an out-of-range cursor is clamped.
func Restore(st State, f navigator.Formatter) *Buffer {
	b := NewBuffer(st.Name)
	b.fill(slices.Clone(st.Files), f)
	b.current = st.Current
	b.cursor = min(max(st.Cursor, 0), max(len(b.lines)-1, 0))
	return b
}
