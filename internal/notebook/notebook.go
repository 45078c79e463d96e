// Package notebook holds every note of a notebook directory in memory,
// indexed by tag, and persists additions back to the directory.
//
// A Notebook has a single owner; it performs no locking of its own.
package notebook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/starford/tissue/internal/apperr"
	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/parser"
	"github.com/starford/tissue/internal/storage"
)

// Notebook is the in-memory index over a directory of note files.
type Notebook struct {
	store  storage.Provider
	logger *slog.Logger

	notes map[string]models.Note
	index *tagIndex
	// sources records which file backs each identifier.
	sources map[string]string
}

// FileName returns the file that stores the note with the given identifier.
// Path-like identifiers keep the notebook flat by escaping '/'.
func FileName(id string) string {
	return url.PathEscape(id) + storage.NoteExt
}

// idFromFileName is the inverse of FileName, used when a file carries no
// identifier in its title line.
func idFromFileName(name string) string {
	stem := strings.TrimSuffix(name, storage.NoteExt)
	if id, err := url.PathUnescape(stem); err == nil {
		return id
	}
	return stem
}

// Open scans the notebook directory and builds the index from scratch.
// A file that cannot be read or decoded aborts the whole load.
func Open(store storage.Provider, logger *slog.Logger) (*Notebook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nb := &Notebook{
		store:   store,
		logger:  logger,
		notes:   make(map[string]models.Note),
		index:   newTagIndex(),
		sources: make(map[string]string),
	}

	metas, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("notebook: open: %w: %w", apperr.ErrIO, err)
	}
	for _, m := range metas {
		data, err := store.Read(m.Name)
		if err != nil {
			return nil, fmt.Errorf("notebook: open %s: %w: %w", m.Name, apperr.ErrDecode, err)
		}
		n, err := parser.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("notebook: open %s: %w", m.Name, err)
		}
		if n.ID == "" {
			n.ID = idFromFileName(m.Name)
		}
		if prev, dup := nb.sources[n.ID]; dup {
			logger.Warn("notebook: duplicate identifier, later file wins",
				slog.String("id", n.ID),
				slog.String("file", m.Name),
				slog.String("previous", prev))
		}
		nb.put(n, m.Name)
	}

	logger.Debug("notebook: opened",
		slog.String("root", store.Root()),
		slog.Int("notes", len(nb.notes)),
		slog.Int("tags", len(nb.index.byTag)))
	return nb, nil
}

// put inserts or replaces n in memory only.
func (nb *Notebook) put(n models.Note, file string) {
	n = n.Clone()
	if n.Tags == nil {
		n.Tags = models.NewTagSet()
	}
	nb.index.reindex(n.ID, n.Tags)
	nb.notes[n.ID] = n
	nb.sources[n.ID] = file
}

// Root returns the backing directory.
func (nb *Notebook) Root() string {
	return nb.store.Root()
}

// Add writes n to <id>.md and then inserts or replaces it in the index.
func (nb *Notebook) Add(n models.Note) error {
	return nb.Replace(n.ID, n)
}

// Replace stores n as the new version of the note previously known as
// oldID. The note ends up backed by exactly one file named after n.ID: any
// differently named file that backed oldID or n.ID is removed. The index is
// only touched after every file operation has succeeded.
func (nb *Notebook) Replace(oldID string, n models.Note) error {
	if n.ID == "" {
		return fmt.Errorf("notebook: add: %w", apperr.ErrInvalidID)
	}
	name := FileName(n.ID)
	if err := nb.store.Write(name, parser.Format(n)); err != nil {
		return fmt.Errorf("notebook: add %s: %w: %w", n.ID, apperr.ErrIO, err)
	}

	for _, id := range []string{oldID, n.ID} {
		stale, ok := nb.sources[id]
		if !ok || stale == name {
			continue
		}
		if err := nb.store.Delete(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("notebook: add %s: remove %s: %w: %w", n.ID, stale, apperr.ErrIO, err)
		}
		nb.logger.Debug("notebook: removed superseded file",
			slog.String("id", n.ID),
			slog.String("file", stale))
	}

	if oldID != "" && oldID != n.ID {
		nb.index.purge(oldID)
		delete(nb.notes, oldID)
		delete(nb.sources, oldID)
	}
	nb.put(n, name)
	return nil
}

// Query returns the notes selected by the include and exclude tags, sorted
// by identifier. Every tag expands to the identifiers carrying it (an
// unknown tag expands to itself). With no include tags every note is a
// candidate; otherwise the candidates are the union of the include
// expansions. Each exclude expansion is then subtracted.
func (nb *Notebook) Query(include, exclude []string) []models.Note {
	ids := nb.selectIDs(include, exclude)
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids.sorted() {
		if n, ok := nb.notes[id]; ok {
			out = append(out, n.Clone())
		}
	}
	return out
}

func (nb *Notebook) selectIDs(include, exclude []string) idSet {
	ids := make(idSet)
	if len(include) == 0 {
		for id := range nb.notes {
			ids[id] = struct{}{}
		}
	} else {
		for _, tag := range include {
			for id := range nb.index.expand(tag) {
				ids[id] = struct{}{}
			}
		}
	}
	for _, tag := range exclude {
		for id := range nb.index.expand(tag) {
			delete(ids, id)
		}
	}
	return ids
}

// Get returns the note with the given identifier.
func (nb *Notebook) Get(id string) (models.Note, bool) {
	n, ok := nb.notes[id]
	if !ok {
		return models.Note{}, false
	}
	return n.Clone(), true
}

// Has reports whether a note with the identifier exists.
func (nb *Notebook) Has(id string) bool {
	_, ok := nb.notes[id]
	return ok
}

// Len returns the number of notes.
func (nb *Notebook) Len() int {
	return len(nb.notes)
}

// Notes returns every note sorted by identifier.
func (nb *Notebook) Notes() []models.Note {
	return nb.Query(nil, nil)
}

// Tags returns every known tag, sorted.
func (nb *Notebook) Tags() []string {
	return nb.index.tags()
}

// SearchTags returns the known tags containing substr, sorted.
func (nb *Notebook) SearchTags(substr string) []string {
	var out []string
	for _, t := range nb.index.tags() {
		if strings.Contains(t, substr) {
			out = append(out, t)
		}
	}
	return out
}

// Identifiers returns every note identifier, sorted.
func (nb *Notebook) Identifiers() []string {
	out := make([]string, 0, len(nb.notes))
	for id := range nb.notes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Entries returns id/title pairs for every note, sorted by identifier.
func (nb *Notebook) Entries() []models.Entry {
	ids := nb.Identifiers()
	out := make([]models.Entry, len(ids))
	for i, id := range ids {
		out[i] = models.Entry{ID: id, Title: nb.notes[id].Title}
	}
	return out
}
