package index

import (
	"strings"
	"unicode/utf8"
)

const defaultSearchLimit = 20

// SearchQuery is a full-text search, optionally limited to one branch of
// the Luhmann tree.
type SearchQuery struct {
	Text  string
	Limit int
	// Branch keeps notes whose Luhmann ID is Branch or starts with
	// Branch+Delimiter.
	Branch    string
	Delimiter string
}

func (q SearchQuery) limit() int {
	if q.Limit <= 0 {
		return defaultSearchLimit
	}
	return q.Limit
}

// branchFilter returns the SQL condition on column selecting the branch,
// with its arguments.
func (q SearchQuery) branchFilter(column string) (string, []any) {
	if q.Branch == "" {
		return "1 = 1", nil
	}
	below := q.Branch + q.Delimiter
	return "(" + column + " = ? OR substr(" + column + ", 1, ?) = ?)",
		[]any{q.Branch, utf8.RuneCountInString(below), below}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s anywhere, with LIKE wildcards in s taken literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
