package luhmann

import (
	"fmt"
	"regexp"
	"strings"
)

// Query is a file-name search pattern for the host's file lister. It is a
// regular expression matched against base names.
type Query string

func (q Query) String() string { return string(q) }

// Compile compiles the pattern.
func (q Query) Compile() (*regexp.Regexp, error) {
	re, err := regexp.Compile(string(q))
	if err != nil {
		return nil, fmt.Errorf("luhmann: compile query %q: %w", string(q), err)
	}
	return re, nil
}

// AllFiles matches every file carrying any Luhmann ID.
func (g *Grammar) AllFiles() Query {
	return Query(g.anchor + g.prefix)
}

// TopLevel matches depth-1 IDs only.
func (g *Grammar) TopLevel() Query {
	return Query(g.anchor + g.prefix + segmentPattern + g.postfix)
}

// DescendantsAndSiblings matches seed itself and its direct children, never
// anything deeper. The zero ID seeds the top level.
func (g *Grammar) DescendantsAndSiblings(seed ID) Query {
	if seed.IsZero() {
		return g.TopLevel()
	}
	return Query(g.anchor + regexp.QuoteMeta(g.Open(seed)) +
		`(?:` + g.delim + segmentPattern + `)?` + g.postfix)
}

// Ancestors re-shows the level of id: its parent and the parent's children.
func (g *Grammar) Ancestors(id ID) Query {
	return g.DescendantsAndSiblings(id.Parent())
}

// Subtree matches id and all of its descendants at any depth. "(1" matches
// "(1)" and "(1,2,a)" but not "(10)".
func (g *Grammar) Subtree(id ID) Query {
	if id.IsZero() {
		return g.AllFiles()
	}
	return Query(g.anchor + regexp.QuoteMeta(g.Open(id)) +
		`(?:` + g.delim + segmentPattern + `)*` + g.postfix)
}

// Depth matches IDs with exactly n segments.
func (g *Grammar) Depth(n int) (Query, error) {
	if n < 1 || n > 9 {
		return "", fmt.Errorf("luhmann: depth %d: %w", n, ErrInvalidDepth)
	}
	var b strings.Builder
	b.WriteString(g.anchor)
	b.WriteString(g.prefix)
	b.WriteString(segmentPattern)
	for i := 1; i < n; i++ {
		b.WriteString(g.delim)
		b.WriteString(segmentPattern)
	}
	b.WriteString(g.postfix)
	return Query(b.String()), nil
}
