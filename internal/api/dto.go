package api

import (
	"github.com/starford/tissue/internal/index"
	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/noteservice"
)

// NoteRequest is the request body for creating or updating a note. Content
// is the note in its file encoding.
type NoteRequest struct {
	Content string `json:"content" example:"# #todo Buy milk\n\nat the #shop" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID    string   `json:"id" example:"todo" validate:"required"`
	Title string   `json:"title" example:"Buy milk"`
	Tags  []string `json:"tags" example:"shop"`
}

func listItem(n models.Note) NoteListItem {
	return NoteListItem{ID: n.ID, Title: n.Title, Tags: n.Tags.Sorted()}
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// TagsResponse wraps the tag vocabulary.
type TagsResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
