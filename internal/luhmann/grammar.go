package luhmann

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
)

const segmentPattern = `[0-9a-zA-Z]+`

// Grammar turns a Config into the patterns shared by the matcher and the
// query builder. It is immutable and safe for concurrent use.
type Grammar struct {
	cfg Config

	prefix  string // quoted
	postfix string // quoted
	delim   string // quoted
	anchor  string // start of a base name up to the Luhmann prefix

	anyRe     *regexp.Regexp
	nameRe    *regexp.Regexp
	rawRe     *regexp.Regexp
	primaryRe *regexp.Regexp
}

// NewGrammar compiles the ID patterns. primaryPattern is the regexp of the
// host's chronological IDs, e.g. `[0-9]{12}`; it must not be able to match
// any of the grammar characters.
func NewGrammar(cfg Config, primaryPattern string) (*Grammar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("luhmann: %w", err)
	}
	if primaryPattern == "" {
		return nil, fmt.Errorf("luhmann: primary ID pattern is required")
	}
	exactRe, err := regexp.Compile(`^(?:` + primaryPattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("luhmann: compile primary ID pattern: %w", err)
	}
	// A token, or any one of its characters, that is itself a whole
	// primary ID would be ambiguous in a file name.
	for _, tok := range []string{cfg.Prefix, cfg.Postfix, cfg.Delimiter} {
		if exactRe.MatchString(tok) || slices.ContainsFunc([]rune(tok), func(r rune) bool {
			return exactRe.MatchString(string(r))
		}) {
			return nil, fmt.Errorf("luhmann: %q collides with primary ID pattern %q", tok, primaryPattern)
		}
	}

	g := &Grammar{
		cfg:     cfg,
		prefix:  regexp.QuoteMeta(cfg.Prefix),
		postfix: regexp.QuoteMeta(cfg.Postfix),
		delim:   regexp.QuoteMeta(cfg.Delimiter),
		anchor:  `^(?:` + primaryPattern + `)\s+`,
	}
	// zero-or-more of {alphanumeric, delimiter}; empty segments are
	// rejected after matching.
	body := `([0-9a-zA-Z]*(?:` + g.delim + `[0-9a-zA-Z]*)*)`
	if g.anyRe, err = regexp.Compile(g.prefix + body + g.postfix); err != nil {
		return nil, fmt.Errorf("luhmann: compile id pattern: %w", err)
	}
	if g.nameRe, err = regexp.Compile(g.anchor + g.prefix + body + g.postfix); err != nil {
		return nil, fmt.Errorf("luhmann: compile name pattern: %w", err)
	}
	if g.primaryRe, err = regexp.Compile(`^(?:` + primaryPattern + `)`); err != nil {
		return nil, fmt.Errorf("luhmann: compile primary pattern: %w", err)
	}
	if g.rawRe, err = regexp.Compile(`^` + segmentPattern + `(?:` + g.delim + segmentPattern + `)*$`); err != nil {
		return nil, fmt.Errorf("luhmann: compile raw pattern: %w", err)
	}
	return g, nil
}

// MustGrammar is NewGrammar for known-good input. It panics on error.
func MustGrammar(cfg Config, primaryPattern string) *Grammar {
	g, err := NewGrammar(cfg, primaryPattern)
	if err != nil {
		panic(err)
	}
	return g
}

// Config returns the grammar characters.
func (g *Grammar) Config() Config { return g.cfg }

// NewID builds an ID from segments.
func (g *Grammar) NewID(segments ...string) ID {
	segs := make([]string, len(segments))
	copy(segs, segments)
	return ID{segments: segs, delim: g.cfg.Delimiter}
}

// ParseID parses "1,2,a" or "(1,2,a)".
func (g *Grammar) ParseID(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, g.cfg.Prefix) && strings.HasSuffix(s, g.cfg.Postfix) && len(s) >= len(g.cfg.Prefix)+len(g.cfg.Postfix) {
		s = s[len(g.cfg.Prefix) : len(s)-len(g.cfg.Postfix)]
	}
	if !g.rawRe.MatchString(s) {
		return ID{delim: g.cfg.Delimiter}, false
	}
	return g.NewID(strings.Split(s, g.cfg.Delimiter)...), true
}

// Open renders prefix+segments without the postfix, e.g. "(1,2". This is the
// seed form used by the query builder.
func (g *Grammar) Open(id ID) string {
	return g.cfg.Prefix + id.String()
}

// Format renders the full ID, e.g. "(1,2)".
func (g *Grammar) Format(id ID) string {
	return g.cfg.Prefix + id.String() + g.cfg.Postfix
}

// Extract returns the first well-formed ID anywhere in text.
func (g *Grammar) Extract(text string) (ID, bool) {
	for _, m := range g.anyRe.FindAllStringSubmatch(text, -1) {
		if id, ok := g.fromBody(m[1]); ok {
			return id, true
		}
	}
	return ID{delim: g.cfg.Delimiter}, false
}

// ExtractFromFilename returns the ID that directly follows the primary ID in
// the base name of name. A bare primary ID or a parenthesised title word is
// not an ID.
func (g *Grammar) ExtractFromFilename(name string) (ID, bool) {
	m := g.nameRe.FindStringSubmatch(baseName(name))
	if m == nil {
		return ID{delim: g.cfg.Delimiter}, false
	}
	return g.fromBody(m[1])
}

// ExtractFromLine extracts the ID on the cursor line of a rendered display.
// It returns ErrEmptyLine for a blank line or a cursor outside the display,
// and a *NotALuhmannNoteError for a non-empty line without an ID.
func (g *Grammar) ExtractFromLine(lines []string, cursor int) (ID, error) {
	if cursor < 0 || cursor >= len(lines) || strings.TrimSpace(lines[cursor]) == "" {
		return ID{delim: g.cfg.Delimiter}, ErrEmptyLine
	}
	id, ok := g.Extract(lines[cursor])
	if !ok {
		return id, &NotALuhmannNoteError{Line: lines[cursor]}
	}
	return id, nil
}

// PrimaryID returns the chronological ID at the start of the base name of
// name, or "".
func (g *Grammar) PrimaryID(name string) string {
	return g.primaryRe.FindString(baseName(name))
}

// SortFiles returns files stably sorted by their Luhmann ID. Files without
// an ID get the empty key and come first.
func (g *Grammar) SortFiles(files []string) []string {
	type keyed struct {
		file string
		key  string
	}
	ks := make([]keyed, len(files))
	for i, f := range files {
		id, _ := g.ExtractFromFilename(f)
		ks[i] = keyed{file: f, key: id.String()}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.file
	}
	return out
}

func (g *Grammar) fromBody(body string) (ID, bool) {
	if body == "" {
		return ID{delim: g.cfg.Delimiter}, false
	}
	segs := strings.Split(body, g.cfg.Delimiter)
	for _, s := range segs {
		if s == "" {
			return ID{delim: g.cfg.Delimiter}, false
		}
	}
	return ID{segments: segs, delim: g.cfg.Delimiter}, true
}

func baseName(name string) string {
	return path.Base(filepath.ToSlash(name))
}
