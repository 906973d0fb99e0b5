package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/luhmann/internal/navigator"
	"github.com/starford/luhmann/internal/noteservice"
)

// Index handles GET /luhmann/index.
//
//	@Summary		List every note with a Luhmann ID in index order
//	@Tags			luhmann
//	@Produce		json
//	@Success		200	{object}	IndexResponse
//	@Security		BearerAuth
//	@Router			/luhmann/index [get]
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Index(r.Context())
	if err != nil {
		writeError(w, "index", err)
		return
	}
	writeJSON(w, http.StatusOK, IndexResponse{Notes: notes})
}

// Tree handles GET /luhmann/tree and returns the hierarchy as plain text.
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Tree(r.Context())
	if err != nil {
		writeError(w, "tree", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// Candidates handles GET /luhmann/candidates.
//
//	@Summary		Open-by-ID candidates grouped by root
//	@Tags			luhmann
//	@Produce		json
//	@Param			q	query		string	false	"Fuzzy filter"
//	@Success		200	{object}	CandidatesResponse
//	@Security		BearerAuth
//	@Router			/luhmann/candidates [get]
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Candidates(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, "candidates", err)
		return
	}
	writeJSON(w, http.StatusOK, CandidatesResponse{Groups: groups})
}

// Open handles POST /luhmann/open.
//
//	@Summary		Make a note the active note of a view
//	@Tags			luhmann
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenRequest	true	"Query"
//	@Success		200		{object}	OpenResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/luhmann/open [post]
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, b, err := h.svc.Open(r.Context(), req.View, req.Query)
	if err != nil {
		writeError(w, "open", err)
		return
	}
	writeJSON(w, http.StatusOK, OpenResponse{Note: *note, View: noteservice.NewViewDetail(b)})
}

// AssignID handles POST /luhmann/assign.
//
//	@Summary		Rename a note so it carries a Luhmann ID
//	@Tags			luhmann
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssignRequest	true	"Note and ID"
//	@Success		200		{object}	models.Note
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/luhmann/assign [post]
func (h *Handler) AssignID(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.LuhmannID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and luhmann_id are required"))
		return
	}
	note, err := h.svc.AssignID(r.Context(), req.Path, req.LuhmannID)
	if err != nil {
		writeError(w, "assign id", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetView handles GET /luhmann/views/{view}.
//
//	@Summary		Get a view buffer
//	@Tags			luhmann
//	@Produce		json
//	@Param			view	path		string	true	"View name"
//	@Success		200		{object}	ViewDetail
//	@Security		BearerAuth
//	@Router			/luhmann/views/{view} [get]
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.View(r.Context(), chi.URLParam(r, "view"))
	if err != nil {
		writeError(w, "get view", err)
		return
	}
	writeJSON(w, http.StatusOK, noteservice.NewViewDetail(b))
}

// SetCursor handles PUT /luhmann/views/{view}/cursor.
//
//	@Summary		Move a view cursor
//	@Tags			luhmann
//	@Accept			json
//	@Produce		json
//	@Param			view	path		string			true	"View name"
//	@Param			body	body		CursorRequest	true	"Line"
//	@Success		200		{object}	ViewDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/luhmann/views/{view}/cursor [put]
func (h *Handler) SetCursor(w http.ResponseWriter, r *http.Request) {
	var req CursorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	b, err := h.svc.SetCursor(r.Context(), chi.URLParam(r, "view"), req.Line)
	if err != nil {
		writeError(w, "set cursor", err)
		return
	}
	writeJSON(w, http.StatusOK, noteservice.NewViewDetail(b))
}

// Navigate handles POST /luhmann/views/{view}/{command}.
//
//	@Summary		Run a navigation command against a view
//	@Tags			luhmann
//	@Produce		json
//	@Param			view	path		string	true	"View name"
//	@Param			command	path		string	true	"Command"	Enums(top, all, forward, back, unfold, depth, current)
//	@Param			n		query		int		false	"Depth for the depth command"
//	@Success		200		{object}	ViewDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/luhmann/views/{view}/{command} [post]
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	cmd, err := navigator.ParseCommand(chi.URLParam(r, "command"))
	if err != nil {
		writeError(w, "navigate", err)
		return
	}
	var depth int
	if cmd == navigator.CommandDepth {
		depth, err = strconv.Atoi(r.URL.Query().Get("n"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'n' must be a number"))
			return
		}
	}
	b, err := h.svc.Navigate(r.Context(), chi.URLParam(r, "view"), cmd, depth)
	if err != nil {
		writeError(w, "navigate", err)
		return
	}
	writeJSON(w, http.StatusOK, noteservice.NewViewDetail(b))
}
