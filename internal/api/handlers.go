package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tissue/internal/noteservice"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteID extracts the identifier from the URL (everything after /notes/).
// Escaped slashes (work%2Fq3) are decoded.
func noteID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// tagParams collects a repeated query parameter, also accepting
// comma-separated values.
func tagParams(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(strings.TrimPrefix(t, "#")); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes selected by tags
//	@Tags			notes
//	@Produce		json
//	@Param			tag	query		[]string	false	"Include tags (union); none selects every note"
//	@Param			not	query		[]string	false	"Exclude tags"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes := h.svc.Query(r.Context(), tagParams(q, "tag"), tagParams(q, "not"))
	items := make([]NoteListItem, len(notes))
	for i, n := range notes {
		items[i] = listItem(n)
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by identifier
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note identifier"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	writeJSON(w, http.StatusOK, note)
}

func decodeNoteRequest(w http.ResponseWriter, r *http.Request) (NoteRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	return req, true
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note from its text encoding
//	@Description	A missing or malformed identifier is generated from the content.
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNoteRequest(w, r)
	if !ok {
		return
	}
	note, err := h.svc.Create(r.Context(), []byte(req.Content))
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Replace a note, keeping its identifier
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Note identifier"
//	@Param			If-Match	header		string		false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		NoteRequest	true	"Updated content"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	req, ok := decodeNoteRequest(w, r)
	if !ok {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.Update(r.Context(), id, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Tags handles GET /api/tags.
//
//	@Summary		List known tags
//	@Tags			tags
//	@Produce		json
//	@Param			q	query		string	false	"Only tags containing this substring"
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags := h.svc.Tags(r.Context(), r.URL.Query().Get("q"))
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
