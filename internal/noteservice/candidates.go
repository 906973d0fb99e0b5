package noteservice

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/starford/luhmann/internal/apperr"
	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/models"
	"github.com/starford/luhmann/internal/view"
)

// Candidate is one entry of the open-by-ID picker.
type Candidate struct {
	models.Note
	Label string `json:"label"`
}

// CandidateGroup holds the candidates sharing a depth-1 ancestor.
type CandidateGroup struct {
	Root       string      `json:"root"`
	Candidates []Candidate `json:"candidates"`
}

type candidate struct {
	Candidate
	id luhmann.ID
}

// Candidates lists the notes with a Luhmann ID grouped by their root and in
// comparator order. A non-empty query keeps only entries whose label
// fuzzy-matches it.
func (s *Service) Candidates(_ context.Context, query string) ([]CandidateGroup, error) {
	all, err := s.candidates()
	if err != nil {
		return nil, err
	}
	all = s.filter(all, query)

	groups := []CandidateGroup{}
	roots := []luhmann.ID{}
	pos := make(map[string]int)
	for _, c := range all {
		root := c.id.Root()
		i, ok := pos[root.String()]
		if !ok {
			i = len(groups)
			pos[root.String()] = i
			groups = append(groups, CandidateGroup{Root: root.String()})
			roots = append(roots, root)
		}
		groups[i].Candidates = append(groups[i].Candidates, c.Candidate)
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return luhmann.Compare(roots[a], roots[b]) })
	sorted := make([]CandidateGroup, len(groups))
	for i, j := range order {
		sorted[i] = groups[j]
	}
	return sorted, nil
}

// Open resolves query to a single note and makes it the active note of the
// named view. An exact Luhmann ID or primary ID wins over a fuzzy match.
// The cursor moves to the note when the view shows it.
func (s *Service) Open(_ context.Context, name, query string) (*models.Note, *view.Buffer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, invalid("empty query")
	}
	all, err := s.candidates()
	if err != nil {
		return nil, nil, err
	}
	c, ok := s.resolve(all, query)
	if !ok {
		return nil, nil, fmt.Errorf("noteservice: open %q: %w", query, apperr.ErrNotFound)
	}

	var out *view.Buffer
	err = s.withView(name, func(b *view.Buffer) (bool, error) {
		b.SetCurrentNote(c.PrimaryID)
		b.Goto(s.formatter.Format(c.Path))
		out = b
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	note := c.Note
	return &note, out, nil
}

func (s *Service) resolve(all []candidate, query string) (candidate, bool) {
	if id, ok := s.grammar.ParseID(query); ok {
		for _, c := range all {
			if c.id.Equal(id) {
				return c, true
			}
		}
	}
	for _, c := range all {
		if c.PrimaryID == query {
			return c, true
		}
	}
	labels := make([]string, len(all))
	for i, c := range all {
		labels[i] = c.Label
	}
	matches := fuzzy.Find(query, labels)
	if len(matches) == 0 {
		return candidate{}, false
	}
	return all[matches[0].Index], true
}

func (s *Service) filter(all []candidate, query string) []candidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}
	labels := make([]string, len(all))
	for i, c := range all {
		labels[i] = c.Label
	}
	keep := make([]bool, len(all))
	for _, m := range fuzzy.Find(query, labels) {
		keep[m.Index] = true
	}
	out := all[:0:0]
	for i, c := range all {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) candidates() ([]candidate, error) {
	rows, err := s.db.LuhmannNotes()
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(rows))
	for _, r := range rows {
		id, ok := s.grammar.ParseID(r.LuhmannID)
		if !ok {
			continue
		}
		out = append(out, candidate{
			Candidate: Candidate{Note: noteFromRow(r), Label: s.formatter.Format(r.Path)},
			id:        id,
		})
	}
	slices.SortStableFunc(out, func(a, b candidate) int { return luhmann.Compare(a.id, b.id) })
	return out, nil
}
