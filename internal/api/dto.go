package api

import (
	"github.com/starford/luhmann/internal/models"
	"github.com/starford/luhmann/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest = noteservice.CreateNoteInput

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// ViewDetail is a rendered view buffer (aliased from the domain layer).
type ViewDetail = noteservice.ViewDetail

// CandidateGroup is one root's block of open-by-ID candidates.
type CandidateGroup = noteservice.CandidateGroup

// OpenRequest is the request body for opening a note in a view.
type OpenRequest struct {
	View  string `json:"view" example:"main"`
	Query string `json:"query" example:"1,2" validate:"required"`
}

// OpenResponse reports the opened note and the view it became active in.
type OpenResponse struct {
	Note models.Note `json:"note" validate:"required"`
	View ViewDetail  `json:"view" validate:"required"`
}

// AssignRequest is the request body for giving a note a Luhmann ID.
type AssignRequest struct {
	Path      string `json:"path" example:"202012091135 Inbox.md" validate:"required"`
	LuhmannID string `json:"luhmann_id" example:"3" validate:"required"`
}

// CursorRequest is the request body for moving a view cursor.
type CursorRequest struct {
	Line int `json:"line" example:"2"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path      string `json:"path" example:"202012091130 (1) Slip boxes.md" validate:"required"`
	LuhmannID string `json:"luhmann_id,omitempty" example:"1"`
	Title     string `json:"title" example:"Slip boxes" validate:"required"`
	Snippet   string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// IndexResponse lists the notes of the Luhmann index in comparator order.
type IndexResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
}

// CandidatesResponse wraps grouped candidates.
type CandidatesResponse struct {
	Groups []CandidateGroup `json:"groups" validate:"required"`
}
