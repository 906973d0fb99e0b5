package view

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/parser"
)

// IndexFormatter renders a note file as an index line:
//
//	(1,2) Title [[202012091130]]
//
// The Luhmann ID leads so ID extraction finds it first, and the wiki link
// lets editors follow the line to the note.
type IndexFormatter struct {
	grammar *luhmann.Grammar
}

// NewIndexFormatter creates a formatter for g's naming scheme.
func NewIndexFormatter(g *luhmann.Grammar) IndexFormatter {
	return IndexFormatter{grammar: g}
}

// Format implements navigator.Formatter.
func (f IndexFormatter) Format(file string) string {
	n := parser.ParseName(f.grammar, file)
	var parts []string
	if n.HasID {
		parts = append(parts, f.grammar.Format(n.ID))
	}
	if n.Title != "" {
		parts = append(parts, n.Title)
	}
	if n.Primary != "" {
		parts = append(parts, "[["+n.Primary+"]]")
	}
	if len(parts) == 0 {
		base := path.Base(filepath.ToSlash(file))
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.Join(parts, " ")
}
