// Package noteservice shares one notebook between the HTTP API, the MCP
// server and the file watcher. It serializes access, keeps the search
// mirror in step and announces changes.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/starford/tissue/internal/apperr"
	"github.com/starford/tissue/internal/checksum"
	"github.com/starford/tissue/internal/index"
	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/notebook"
	"github.com/starford/tissue/internal/parser"
	"github.com/starford/tissue/internal/storage"
	"github.com/starford/tissue/internal/workflow"
)

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	PublishNoteEvent(kind, id string)
	PublishReload(notes int)
}

// NoteDetail is a note together with its encoded form and checksum.
type NoteDetail struct {
	models.Note
	Content  string `json:"content"`
	Checksum string `json:"checksum"`
}

// Detail builds the full representation of n.
func Detail(n models.Note) NoteDetail {
	data := parser.Format(n)
	return NoteDetail{
		Note:     n,
		Content:  string(data),
		Checksum: checksum.Sum(data),
	}
}

// Service coordinates the notebook, the search mirror and subscribers.
type Service struct {
	store  storage.Provider
	db     index.NoteIndex
	logger *slog.Logger
	pub    Publisher

	mu sync.RWMutex
	nb *notebook.Notebook
}

// Option configures a Service.
type Option func(*Service)

// WithIndex mirrors the notebook into db and serves Search from it.
func WithIndex(db index.NoteIndex) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithPublisher sends note and reload events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.pub = p
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New opens the notebook behind store and, when an index is configured,
// brings the mirror up to date.
func New(store storage.Provider, opts ...Option) (*Service, error) {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	nb, err := notebook.Open(store, s.logger)
	if err != nil {
		return nil, err
	}
	s.nb = nb
	s.syncIndex(nb.Notes())
	return s, nil
}

// syncIndex and indexNote run with s.mu held for writing, so the mirror is
// updated in the same order as the notebook.
func (s *Service) syncIndex(notes []models.Note) {
	if s.db == nil {
		return
	}
	stats, err := index.Sync(s.db, notes, s.logger)
	if err != nil {
		s.logger.Warn("noteservice: index sync failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("noteservice: index synced",
		slog.Int("upserted", stats.Upserted),
		slog.Int("deleted", stats.Deleted))
}

// Query returns the notes selected by include and exclude tags.
func (s *Service) Query(_ context.Context, include, exclude []string) []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nb.Query(include, exclude)
}

// Get returns the note with the given identifier.
func (s *Service) Get(_ context.Context, id string) (NoteDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nb.Get(id)
	if !ok {
		return NoteDetail{}, fmt.Errorf("noteservice: get %s: %w", id, apperr.ErrNotFound)
	}
	return Detail(n), nil
}

// Tags returns the known tags containing substr; an empty substr lists all.
func (s *Service) Tags(_ context.Context, substr string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if substr == "" {
		return s.nb.Tags()
	}
	return s.nb.SearchTags(substr)
}

// Entries returns id/title pairs for every note.
func (s *Service) Entries(_ context.Context) []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nb.Entries()
}

// Len returns the number of notes.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nb.Len()
}

// Create decodes content as a new note and stores it with the create merge
// rules: empty notes are refused and a missing identifier is generated.
func (s *Service) Create(_ context.Context, content []byte) (NoteDetail, error) {
	candidate, err := parser.Parse(content)
	if err != nil {
		return NoteDetail{}, err
	}

	s.mu.Lock()
	existed := candidate.ID != "" && s.nb.Has(candidate.ID)
	n, err := workflow.MergeNew(s.nb, candidate)
	if err == nil {
		s.indexNote(n)
	}
	s.mu.Unlock()
	if err != nil {
		return NoteDetail{}, err
	}

	kind := "created"
	if existed {
		kind = "updated"
	}
	s.afterWrite(kind, n)
	return Detail(n), nil
}

// Update decodes content as the new version of note id. The identifier is
// kept whatever the content says. When ifMatch is non-empty it must equal
// the current checksum of the note.
func (s *Service) Update(_ context.Context, id string, content []byte, ifMatch string) (NoteDetail, error) {
	candidate, err := parser.Parse(content)
	if err != nil {
		return NoteDetail{}, err
	}

	s.mu.Lock()
	target, ok := s.nb.Get(id)
	if !ok {
		s.mu.Unlock()
		return NoteDetail{}, fmt.Errorf("noteservice: update %s: %w", id, apperr.ErrNotFound)
	}
	if ifMatch != "" && ifMatch != Detail(target).Checksum {
		s.mu.Unlock()
		return NoteDetail{}, fmt.Errorf("noteservice: update %s: %w", id, apperr.ErrConflict)
	}
	n, err := workflow.MergeEdit(s.nb, target, candidate)
	if err == nil {
		if n.ID != id {
			s.dropIndexed(id)
		}
		s.indexNote(n)
	}
	s.mu.Unlock()
	if err != nil {
		return NoteDetail{}, err
	}

	s.afterWrite("updated", n)
	return Detail(n), nil
}

func (s *Service) indexNote(n models.Note) {
	if s.db == nil {
		return
	}
	if _, err := index.IndexNote(s.db, n); err != nil {
		s.logger.Warn("noteservice: index note failed", slog.String("id", n.ID), slog.String("error", err.Error()))
	}
}

func (s *Service) afterWrite(kind string, n models.Note) {
	s.logger.Info("noteservice: note "+kind, slog.String("id", n.ID))
	if s.pub != nil {
		s.pub.PublishNoteEvent(kind, n.ID)
	}
}

func (s *Service) dropIndexed(id string) {
	if s.db == nil {
		return
	}
	if err := s.db.DeleteNote(id); err != nil {
		s.logger.Warn("noteservice: unindex note failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// Search runs a full-text query. Without an index it scans titles, bodies
// and tags in memory.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if s.db != nil {
		return s.db.Search(query, limit)
	}
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ScanNotes(s.nb.Notes(), query, limit), nil
}

// ScanNotes is the in-memory search used when no index is configured.
func ScanNotes(notes []models.Note, query string, limit int) []index.SearchResult {
	q := strings.ToLower(query)
	var out []index.SearchResult
	for _, n := range notes {
		if len(out) >= limit {
			break
		}
		hit := strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Text), q) ||
			n.Tags.Has(query)
		if !hit {
			continue
		}
		out = append(out, index.SearchResult{ID: n.ID, Title: n.Title, Snippet: snippet(n.Text, 200)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reload reopens the notebook from disk and swaps it in. On failure the
// previous notebook stays in service. Writes wait for the reload to finish.
func (s *Service) Reload(_ context.Context) error {
	s.mu.Lock()
	nb, err := notebook.Open(s.store, s.logger)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("noteservice: reload failed", slog.String("error", err.Error()))
		return err
	}
	s.nb = nb
	s.syncIndex(nb.Notes())
	count := nb.Len()
	s.mu.Unlock()

	s.logger.Info("noteservice: reloaded", slog.Int("notes", count))
	if s.pub != nil {
		s.pub.PublishReload(count)
	}
	return nil
}

// snippet returns at most limit bytes of text, cut back to a rune boundary.
func snippet(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
