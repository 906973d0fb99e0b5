package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/luhmann/internal/apperr"
	"github.com/starford/luhmann/internal/index"
	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/models"
	"github.com/starford/luhmann/internal/parser"
)

// maxPrimaryBumps bounds the search for a free primary ID.
const maxPrimaryBumps = 60

// CreateNoteInput describes a new note. Parent is a Luhmann ID ("1,2" or
// "(1,2)"); empty creates a new top-level note.
type CreateNoteInput struct {
	Parent string `json:"parent"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Validate validates the input.
func (in CreateNoteInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
	)
}

// CreateNote allocates the next child ID under the parent and a fresh
// primary ID, writes the note and indexes it.
func (s *Service) CreateNote(_ context.Context, in CreateNoteInput) (*models.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error())
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()

	existing, err := s.existingIDs()
	if err != nil {
		return nil, err
	}

	parent := s.grammar.NewID()
	if p := strings.TrimSpace(in.Parent); p != "" {
		id, ok := s.grammar.ParseID(p)
		if !ok {
			return nil, invalid("parent %q is not a luhmann id", in.Parent)
		}
		if !containsID(existing, id) {
			return nil, fmt.Errorf("noteservice: parent %s: %w", id, apperr.ErrNotFound)
		}
		parent = id
	}
	id := s.grammar.NextChild(parent, existing)

	primary, err := s.nextPrimaryID()
	if err != nil {
		return nil, err
	}

	name := parser.FileName(s.grammar, primary, id, in.Title, s.store.Extension())
	content := renderNote(in.Title, in.Body)
	if err := s.store.Create(name, content); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("noteservice: create %s: %w", name, apperr.ErrAlreadyExists)
		}
		return nil, err
	}
	row, err := index.IndexFile(s.db, s.grammar, name, content)
	if err != nil {
		return nil, err
	}
	s.logger.Info("note created",
		slog.String("path", name),
		slog.String("luhmann_id", id.String()))
	note := noteFromRow(row)
	return &note, nil
}

// AssignID renames the note at path so it carries id, keeping its primary
// ID and title. The ID must not be in use by another note.
func (s *Service) AssignID(_ context.Context, path, rawID string) (*models.Note, error) {
	id, ok := s.grammar.ParseID(strings.TrimSpace(rawID))
	if !ok {
		return nil, invalid("%q is not a luhmann id", rawID)
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()

	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	rows, err := s.db.LuhmannNotes()
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.LuhmannID == id.String() && r.Path != path {
			return nil, fmt.Errorf("noteservice: id %s taken by %s: %w", id, r.Path, apperr.ErrConflict)
		}
	}

	name := parser.ParseName(s.grammar, path)
	if name.Primary == "" {
		return nil, invalid("%s has no primary id", path)
	}
	dir := ""
	if i := strings.LastIndex(path, "/"); i >= 0 {
		dir = path[:i+1]
	}
	target := dir + parser.FileName(s.grammar, name.Primary, id, name.Title, s.store.Extension())
	if target != path {
		if err := s.store.Move(path, target); err != nil {
			if errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("noteservice: move to %s: %w", target, apperr.ErrAlreadyExists)
			}
			return nil, err
		}
		if err := s.db.DeleteNote(path); err != nil {
			return nil, err
		}
	}
	row, err := index.IndexFile(s.db, s.grammar, target, data)
	if err != nil {
		return nil, err
	}
	note := noteFromRow(row)
	return &note, nil
}

func (s *Service) existingIDs() ([]luhmann.ID, error) {
	rows, err := s.db.LuhmannNotes()
	if err != nil {
		return nil, err
	}
	ids := make([]luhmann.ID, 0, len(rows))
	for _, r := range rows {
		if id, ok := s.grammar.ParseID(r.LuhmannID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// nextPrimaryID formats the clock with the ID layout, stepping a minute
// forward while the ID is taken.
func (s *Service) nextPrimaryID() (string, error) {
	t := s.now()
	for range maxPrimaryBumps {
		primary := t.Format(s.idFormat)
		_, err := s.db.NoteByPrimaryID(primary)
		if errors.Is(err, apperr.ErrNotFound) {
			return primary, nil
		}
		if err != nil {
			return "", err
		}
		t = t.Add(time.Minute)
	}
	return "", fmt.Errorf("noteservice: no free primary id near %s: %w", s.now().Format(s.idFormat), apperr.ErrConflict)
}

func containsID(ids []luhmann.ID, id luhmann.ID) bool {
	for _, other := range ids {
		if other.Equal(id) {
			return true
		}
	}
	return false
}

func renderNote(title, body string) []byte {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(strings.TrimSpace(title))
	b.WriteString("\n")
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return []byte(b.String())
}
