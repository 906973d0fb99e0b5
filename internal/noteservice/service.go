// Package noteservice coordinates the vault, the derived index and the
// navigator. Transports (HTTP, MCP, CLI) talk to the vault only through it.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/luhmann/internal/apperr"
	"github.com/starford/luhmann/internal/index"
	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/models"
	"github.com/starford/luhmann/internal/navigator"
	"github.com/starford/luhmann/internal/parser"
	"github.com/starford/luhmann/internal/storage"
	"github.com/starford/luhmann/internal/view"
)

// DefaultIDFormat is the time layout of primary IDs.
const DefaultIDFormat = "200601021504"

// NoteDetail is the full representation of a note with its place in the
// Luhmann hierarchy.
type NoteDetail struct {
	models.Note
	Content     string         `json:"content"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Parent      *models.Note   `json:"parent,omitempty"`
	Children    []models.Note  `json:"children"`
}

// Service coordinates storage, index and navigation.
type Service struct {
	store     storage.Provider
	db        index.NoteIndex
	grammar   *luhmann.Grammar
	formatter view.IndexFormatter
	nav       *navigator.Navigator

	recursive bool
	idFormat  string
	now       func() time.Time
	logger    *slog.Logger
	onView    func(ViewDetail)

	mu    sync.Mutex
	views map[string]*sync.Mutex

	// idMu serializes ID allocation through to the index write.
	idMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecursive makes navigation queries include vault sub-directories.
func WithRecursive(recursive bool) Option {
	return func(s *Service) { s.recursive = recursive }
}

// WithIDFormat sets the time layout used for new primary IDs.
func WithIDFormat(layout string) Option {
	return func(s *Service) { s.idFormat = layout }
}

// WithClock replaces time.Now for primary ID allocation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithViewListener registers fn to be called after every view change.
func WithViewListener(fn func(ViewDetail)) Option {
	return func(s *Service) { s.onView = fn }
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex, g *luhmann.Grammar, opts ...Option) *Service {
	s := &Service{
		store:     store,
		db:        db,
		grammar:   g,
		formatter: view.NewIndexFormatter(g),
		idFormat:  DefaultIDFormat,
		now:       time.Now,
		logger:    slog.Default(),
		views:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nav = navigator.New(g, vaultLister{store: store}, s.formatter,
		navigator.WithRecursive(s.recursive),
		navigator.WithLogger(s.logger),
	)
	return s
}

// Grammar returns the ID grammar the service was built with.
func (s *Service) Grammar() *luhmann.Grammar { return s.grammar }

// Formatter returns the index line formatter.
func (s *Service) Formatter() view.IndexFormatter { return s.formatter }

// Sync brings the index up to date with the vault.
func (s *Service) Sync(_ context.Context) (index.SyncStats, error) {
	return index.Sync(s.db, s.store, s.grammar, s.logger)
}

// GetNote reads a note from storage and resolves its parent and children.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	row, err := s.db.GetNote(path)
	if errors.Is(err, apperr.ErrNotFound) {
		r, idxErr := index.IndexFile(s.db, s.grammar, path, data)
		if idxErr != nil {
			return nil, idxErr
		}
		row, err = &r, nil
	}
	if err != nil {
		return nil, err
	}

	d := &NoteDetail{
		Note:        noteFromRow(*row),
		Content:     string(data),
		Frontmatter: res.Frontmatter,
		Children:    []models.Note{},
	}
	id, ok := s.grammar.ParseID(row.LuhmannID)
	if !ok {
		return d, nil
	}
	rows, err := s.db.LuhmannNotes()
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		other, ok := s.grammar.ParseID(r.LuhmannID)
		if !ok {
			continue
		}
		switch {
		case other.IsParentOf(id) && d.Parent == nil:
			p := noteFromRow(r)
			d.Parent = &p
		case id.IsParentOf(other):
			d.Children = append(d.Children, noteFromRow(r))
		}
	}
	return d, nil
}

// Search runs a full-text search. A non-empty branch keeps only hits on
// that Luhmann ID and its descendants.
func (s *Service) Search(_ context.Context, query, branch string, limit int) ([]index.SearchResult, error) {
	q := index.SearchQuery{Text: query, Limit: limit}
	if b := strings.TrimSpace(branch); b != "" {
		id, ok := s.grammar.ParseID(b)
		if !ok {
			return nil, invalid("branch %q is not a luhmann id", branch)
		}
		q.Branch, q.Delimiter = id.String(), s.grammar.Config().Delimiter
	}
	return s.db.Search(q)
}

// Index returns every note with a Luhmann ID in comparator order.
func (s *Service) Index(_ context.Context) ([]models.Note, error) {
	rows, err := s.db.LuhmannNotes()
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, len(rows))
	for i, r := range rows {
		notes[i] = noteFromRow(r)
	}
	return notes, nil
}

// Tree renders the Luhmann hierarchy of the whole vault.
func (s *Service) Tree(ctx context.Context) (string, error) {
	notes, err := s.Index(ctx)
	if err != nil {
		return "", err
	}
	files := make([]string, len(notes))
	for i, n := range notes {
		files[i] = n.Path
	}
	return view.Tree(s.grammar, s.formatter, s.store.Root(), files), nil
}

func noteFromRow(r index.NoteRow) models.Note {
	return models.Note{
		Path:      r.Path,
		PrimaryID: r.PrimaryID,
		LuhmannID: r.LuhmannID,
		Title:     r.Title,
		Tags:      nonNilSlice(r.Tags),
		Checksum:  r.Checksum,
		UpdatedAt: r.UpdatedAt,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, fmt.Sprintf(format, args...))
}
