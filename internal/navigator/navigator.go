// Package navigator implements tree traversal over a Luhmann index view.
//
// The navigator keeps no state of its own. Each operation reads the display
// and its cursor, queries the file lister, and re-renders the display with
// a fresh file set. When an operation would leave the display unchanged it
// escalates to a broader operation instead of failing:
//
//	StepForward -> Unfold -> FocusTopLevel -> FocusAll
//	StepBack    -> FocusTopLevel
//
// An empty cursor line carries no ID context; ID-based operations then fall
// through to FocusTopLevel.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/luhmann/internal/luhmann"
)

// Window selects how much of an ID seeds an expansion.
type Window int

const (
	// WindowFull expands the ID itself one level.
	WindowFull Window = iota
	// WindowRoot expands the ID's depth-1 ancestor one level.
	WindowRoot
)

// Navigator runs traversal commands against a Display.
type Navigator struct {
	grammar   *luhmann.Grammar
	files     FileLister
	formatter Formatter
	recursive bool
	logger    *slog.Logger
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithRecursive makes queries descend into vault sub-directories.
func WithRecursive(recursive bool) Option {
	return func(n *Navigator) { n.recursive = recursive }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) { n.logger = logger }
}

// New creates a Navigator.
func New(g *luhmann.Grammar, files FileLister, f Formatter, opts ...Option) *Navigator {
	n := &Navigator{
		grammar:   g,
		files:     files,
		formatter: f,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// FocusAll shows every note with a Luhmann ID.
func (n *Navigator) FocusAll(ctx context.Context, d Display) error {
	_, err := n.show(ctx, d, n.grammar.AllFiles())
	return err
}

// FocusTopLevel shows the depth-1 notes, or everything when there are none
// or they are already shown.
func (n *Navigator) FocusTopLevel(ctx context.Context, d Display) error {
	before := n.grammar.SortFiles(d.Files())
	files, err := n.list(ctx, n.grammar.TopLevel())
	if err != nil {
		return err
	}
	n.render(d, files)
	if len(files) == 0 || slices.Equal(before, d.Files()) {
		n.logger.Debug("navigator: top level unchanged, showing all")
		return n.FocusAll(ctx, d)
	}
	return nil
}

// StepForward shows the note under the cursor and its direct children. On a
// leaf it unfolds instead.
func (n *Navigator) StepForward(ctx context.Context, d Display) error {
	id, err := n.grammar.ExtractFromLine(d.Lines(), d.Cursor())
	if errors.Is(err, luhmann.ErrEmptyLine) {
		return n.FocusTopLevel(ctx, d)
	}
	if err != nil {
		return err
	}

	changed, err := n.expand(ctx, d, id, WindowFull)
	if err != nil || changed {
		return err
	}
	n.logger.Debug("navigator: forward unchanged, unfolding", slog.String("id", id.String()))
	return n.unfold(ctx, d, id)
}

// Unfold shows the depth-1 ancestor of the note under the cursor and that
// ancestor's direct children, then highlights the note.
func (n *Navigator) Unfold(ctx context.Context, d Display) error {
	id, err := n.grammar.ExtractFromLine(d.Lines(), d.Cursor())
	if errors.Is(err, luhmann.ErrEmptyLine) {
		return n.FocusTopLevel(ctx, d)
	}
	if err != nil {
		return err
	}
	return n.unfold(ctx, d, id)
}

func (n *Navigator) unfold(ctx context.Context, d Display, id luhmann.ID) error {
	changed, err := n.expand(ctx, d, id, WindowRoot)
	if err != nil {
		return err
	}
	if !changed {
		n.logger.Debug("navigator: unfold unchanged, focusing top level", slog.String("id", id.String()))
		return n.FocusTopLevel(ctx, d)
	}
	d.Highlight()
	return nil
}

// expand renders the seed selected by w and puts the cursor back on id.
func (n *Navigator) expand(ctx context.Context, d Display, id luhmann.ID, w Window) (bool, error) {
	seed := id
	if w == WindowRoot {
		seed = id.Root()
	}
	changed, err := n.show(ctx, d, n.grammar.DescendantsAndSiblings(seed))
	if err != nil {
		return false, err
	}
	n.gotoID(d, id)
	return changed, nil
}

// StepBack re-sorts the display and climbs one level from its first note:
// a root shows its whole subtree, anything deeper shows its parent's level.
// The display is only touched once the first note's ID is known.
func (n *Navigator) StepBack(ctx context.Context, d Display) error {
	var first []string
	if sorted := n.grammar.SortFiles(d.Files()); len(sorted) > 0 {
		first = []string{n.formatter.Format(sorted[0])}
	}

	id, err := n.grammar.ExtractFromLine(first, 0)
	if errors.Is(err, luhmann.ErrEmptyLine) {
		return n.FocusTopLevel(ctx, d)
	}
	if err != nil {
		return err
	}

	q := n.grammar.Ancestors(id)
	if id.Depth() == 1 {
		q = n.grammar.Subtree(id)
	}
	changed, err := n.show(ctx, d, q)
	if err != nil {
		return err
	}
	if !changed {
		n.logger.Debug("navigator: back unchanged, focusing top level", slog.String("id", id.String()))
		return n.FocusTopLevel(ctx, d)
	}
	n.gotoID(d, id)
	d.Highlight()
	return nil
}

// SetDepthWindow narrows the current display to notes with exactly depth
// segments.
func (n *Navigator) SetDepthWindow(ctx context.Context, d Display, depth int) error {
	q, err := n.grammar.Depth(depth)
	if err != nil {
		return err
	}
	matching, err := n.list(ctx, q)
	if err != nil {
		return err
	}
	keep := make(map[string]struct{}, len(matching))
	for _, f := range matching {
		keep[f] = struct{}{}
	}
	var files []string
	for _, f := range d.Files() {
		if _, ok := keep[f]; ok {
			files = append(files, f)
		}
	}
	n.render(d, files)
	return nil
}

// JumpToCurrentNote shows every Luhmann note and highlights the active one.
func (n *Navigator) JumpToCurrentNote(ctx context.Context, d Display, loc NoteLocator) error {
	if loc == nil {
		return fmt.Errorf("navigator: no note locator")
	}
	primary, err := loc.CurrentNoteID()
	if err != nil {
		return err
	}
	if err := n.FocusAll(ctx, d); err != nil {
		return err
	}
	found := primary != "" && n.gotoFile(d, func(f string) bool {
		return n.grammar.PrimaryID(f) == primary
	})
	if !found {
		return fmt.Errorf("navigator: current note %q: %w", primary, ErrNoteNotShown)
	}
	d.Highlight()
	return nil
}

// show renders the files matching q and reports whether the file set changed.
func (n *Navigator) show(ctx context.Context, d Display, q luhmann.Query) (bool, error) {
	before := n.grammar.SortFiles(d.Files())
	files, err := n.list(ctx, q)
	if err != nil {
		return false, err
	}
	n.render(d, files)
	return !slices.Equal(before, d.Files()), nil
}

func (n *Navigator) list(ctx context.Context, q luhmann.Query) ([]string, error) {
	files, err := n.files.ListFiles(ctx, n.recursive, q.String())
	if err != nil {
		return nil, fmt.Errorf("navigator: list %q: %w", q, err)
	}
	return files, nil
}

func (n *Navigator) gotoID(d Display, id luhmann.ID) bool {
	return n.gotoFile(d, func(f string) bool {
		fid, ok := n.grammar.ExtractFromFilename(f)
		return ok && fid.Equal(id)
	})
}

// gotoFile moves the cursor to the line of the first displayed file
// satisfying match.
func (n *Navigator) gotoFile(d Display, match func(string) bool) bool {
	for _, f := range d.Files() {
		if match(f) {
			return d.Goto(n.formatter.Format(f))
		}
	}
	return false
}

func (n *Navigator) render(d Display, files []string) {
	d.Render(files, n.formatter, n.grammar)
}
