package noteservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/starford/luhmann/internal/apperr"
	"github.com/starford/luhmann/internal/index"
	"github.com/starford/luhmann/internal/navigator"
	"github.com/starford/luhmann/internal/view"
)

// DefaultView is the buffer used when a caller names none.
const DefaultView = "main"

// ViewDetail is the JSON form of a view buffer.
type ViewDetail struct {
	Name       string   `json:"name"`
	Files      []string `json:"files"`
	Lines      []string `json:"lines"`
	Cursor     int      `json:"cursor"`
	CursorFile string   `json:"cursor_file,omitempty"`
	Highlight  int      `json:"highlight"`
	Current    string   `json:"current,omitempty"`
}

// NewViewDetail snapshots b.
func NewViewDetail(b *view.Buffer) ViewDetail {
	st := b.State()
	lines := b.Lines()
	if lines == nil {
		lines = []string{}
	}
	file, _ := b.CurrentFile()
	return ViewDetail{
		Name:       st.Name,
		Files:      st.Files,
		Lines:      lines,
		Cursor:     st.Cursor,
		CursorFile: file,
		Highlight:  b.Highlighted(),
		Current:    st.Current,
	}
}

// Navigate runs cmd against the named view and persists the result. depth
// is read by navigator.CommandDepth only. On error the stored view is left
// untouched.
func (s *Service) Navigate(ctx context.Context, name string, cmd navigator.Command, depth int) (*view.Buffer, error) {
	var out *view.Buffer
	err := s.withView(name, func(b *view.Buffer) (bool, error) {
		if err := s.nav.Do(ctx, b, cmd, depth, b); err != nil {
			return false, err
		}
		out = b
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// View returns the stored state of the named view.
func (s *Service) View(_ context.Context, name string) (*view.Buffer, error) {
	var out *view.Buffer
	err := s.withView(name, func(b *view.Buffer) (bool, error) {
		out = b
		return false, nil
	})
	return out, err
}

// SetCursor moves the cursor of the named view.
func (s *Service) SetCursor(_ context.Context, name string, line int) (*view.Buffer, error) {
	var out *view.Buffer
	err := s.withView(name, func(b *view.Buffer) (bool, error) {
		if err := b.SetCursor(line); err != nil {
			return false, err
		}
		out = b
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withView loads the named buffer under its lock, runs fn and saves the
// buffer when fn reports a change.
func (s *Service) withView(name string, fn func(*view.Buffer) (bool, error)) error {
	if name == "" {
		name = DefaultView
	}
	mu := s.viewLock(name)
	mu.Lock()
	defer mu.Unlock()

	b, err := s.loadView(name)
	if err != nil {
		return err
	}
	changed, err := fn(b)
	if err != nil || !changed {
		return err
	}
	if err := s.saveView(b); err != nil {
		return err
	}
	if s.onView != nil {
		s.onView(NewViewDetail(b))
	}
	return nil
}

func (s *Service) viewLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.views[name]
	if !ok {
		mu = &sync.Mutex{}
		s.views[name] = mu
	}
	return mu
}

func (s *Service) loadView(name string) (*view.Buffer, error) {
	row, err := s.db.LoadView(name)
	if errors.Is(err, apperr.ErrNotFound) {
		return view.NewBuffer(name), nil
	}
	if err != nil {
		return nil, fmt.Errorf("noteservice: load view: %w", err)
	}
	return view.Restore(view.State{
		Name:    row.Name,
		Files:   row.Files,
		Cursor:  row.Cursor,
		Current: row.Current,
	}, s.formatter), nil
}

func (s *Service) saveView(b *view.Buffer) error {
	st := b.State()
	if err := s.db.SaveView(index.ViewRow{
		Name:    st.Name,
		Files:   st.Files,
		Cursor:  st.Cursor,
		Current: st.Current,
	}); err != nil {
		return fmt.Errorf("noteservice: save view: %w", err)
	}
	return nil
}
