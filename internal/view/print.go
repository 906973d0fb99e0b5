package view

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#2CD7C7")
	colorMuted  = lipgloss.Color("#2C4A54")
)

// Styles controls how Print decorates lines.
type Styles struct {
	Header    lipgloss.Style
	Line      lipgloss.Style
	Cursor    lipgloss.Style
	Highlight lipgloss.Style
	Empty     lipgloss.Style
}

// DefaultStyles returns the terminal styles used by the CLI.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Line:      lipgloss.NewStyle(),
		Cursor:    lipgloss.NewStyle().Bold(true),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Empty:     lipgloss.NewStyle().Italic(true).Foreground(colorMuted),
	}
}

// PlainStyles returns styles that leave every line undecorated.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Header: plain, Line: plain, Cursor: plain, Highlight: plain, Empty: plain}
}

// Print writes the buffer to w, one line per entry, with "> " marking the
// cursor line.
func Print(w io.Writer, b *Buffer, st Styles) error {
	if _, err := fmt.Fprintln(w, st.Header.Render("Luhmann index: "+b.Name())); err != nil {
		return err
	}
	lines := b.Lines()
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, st.Empty.Render("(no notes)"))
		return err
	}
	for i, l := range lines {
		marker := "  "
		style := st.Line
		if i == b.Cursor() {
			marker = "> "
			style = st.Cursor
		}
		if i == b.Highlighted() {
			style = st.Highlight
		}
		if _, err := fmt.Fprintln(w, marker+style.Render(l)); err != nil {
			return err
		}
	}
	return nil
}
