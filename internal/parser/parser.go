// Package parser splits note file names into their identifiers and title,
// and extracts frontmatter, title and tags from Markdown content.
package parser

import (
	"bytes"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/luhmann/internal/luhmann"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Name is a parsed note file name: "<primary> [<luhmann>] <title>.<ext>".
type Name struct {
	Primary string
	ID      luhmann.ID
	HasID   bool
	Title   string
}

// ParseName parses the base name of file.
func ParseName(g *luhmann.Grammar, file string) Name {
	base := path.Base(filepath.ToSlash(file))
	stem := strings.TrimSuffix(base, path.Ext(base))

	n := Name{Primary: g.PrimaryID(stem)}
	rest := strings.TrimSpace(stem[len(n.Primary):])
	if id, ok := g.ExtractFromFilename(stem); ok {
		n.ID, n.HasID = id, true
		rest = strings.TrimSpace(strings.TrimPrefix(rest, g.Format(id)))
	}
	n.Title = rest
	return n
}

// FileName renders a note file name. An unset ID is left out.
func FileName(g *luhmann.Grammar, primary string, id luhmann.ID, title, ext string) string {
	parts := []string{primary}
	if !id.IsZero() {
		parts = append(parts, g.Format(id))
	}
	if t := sanitizeTitle(title); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, " ") + ext
}

func sanitizeTitle(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '\n', '\r', '\t':
			return ' '
		}
		return r
	}, title)
	return strings.Join(strings.Fields(title), " ")
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, title and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter between leading --- lines from
// the body. Missing or invalid frontmatter leaves everything in the body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm map[string]interface{}
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// extractTags collects frontmatter tags first, then inline #tags.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if list, ok := fm["tags"].([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle prefers the frontmatter title, then the first H1.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
