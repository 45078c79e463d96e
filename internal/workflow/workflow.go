// Package workflow implements the create and edit protocol that round-trips
// a note through an external editor and merges the result into the notebook.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/tissue/internal/apperr"
	"github.com/starford/tissue/internal/checksum"
	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/parser"
)

// State is a step of an edit session.
type State int

const (
	Idle State = iota
	Drafting
	AwaitingEditor
	Merged
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drafting:
		return "drafting"
	case AwaitingEditor:
		return "awaiting_editor"
	case Merged:
		return "merged"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Notebook is the part of the notebook index the workflow needs.
type Notebook interface {
	Query(include, exclude []string) []models.Note
	Tags() []string
	Entries() []models.Entry
	Replace(oldID string, n models.Note) error
}

// Workflow drives create and edit sessions against one notebook.
type Workflow struct {
	nb      Notebook
	editor  Editor
	logger  *slog.Logger
	tempDir string
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = l
	}
}

// WithTempDir sets where scratch files are created. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(w *Workflow) {
		w.tempDir = dir
	}
}

// New creates a workflow that edits notes of nb with editor.
func New(nb Notebook, editor Editor, opts ...Option) *Workflow {
	w := &Workflow{
		nb:     nb,
		editor: editor,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) enter(s State, attrs ...slog.Attr) {
	w.logger.LogAttrs(context.Background(), slog.LevelDebug, "workflow: "+s.String(), attrs...)
}

// reject logs the failed session and passes err through.
func (w *Workflow) reject(err error) error {
	w.enter(Rejected, slog.String("error", err.Error()))
	return err
}

// Create lets the operator write a new note from a template and stores it.
func (w *Workflow) Create(ctx context.Context) (models.Note, error) {
	w.enter(Drafting, slog.String("mode", "create"))
	candidate, err := w.roundTrip(ctx, parser.Template())
	if err != nil {
		return models.Note{}, w.reject(err)
	}
	n, err := MergeNew(w.nb, candidate)
	if err != nil {
		return models.Note{}, w.reject(err)
	}
	w.enter(Merged, slog.String("id", n.ID))
	return n, nil
}

// Edit opens the single note selected by include/exclude in the editor and
// stores the result under the same identifier.
func (w *Workflow) Edit(ctx context.Context, include, exclude []string) (models.Note, error) {
	target, err := ResolveTarget(w.nb, include, exclude)
	if err != nil {
		return models.Note{}, w.reject(err)
	}
	w.enter(Drafting, slog.String("mode", "edit"), slog.String("id", target.ID))
	candidate, err := w.roundTrip(ctx, target)
	if err != nil {
		return models.Note{}, w.reject(err)
	}
	n, err := MergeEdit(w.nb, target, candidate)
	if err != nil {
		return models.Note{}, w.reject(err)
	}
	w.enter(Merged, slog.String("id", n.ID))
	return n, nil
}

// roundTrip writes draft plus the vocabulary listing to a scratch file, runs
// the editor on it and decodes what the operator left behind.
func (w *Workflow) roundTrip(ctx context.Context, draft models.Note) (models.Note, error) {
	f, err := os.CreateTemp(w.tempDir, "tissue-*.md")
	if err != nil {
		return models.Note{}, fmt.Errorf("workflow: create scratch file: %w: %w", apperr.ErrIO, err)
	}
	path := f.Name()
	defer os.Remove(path)

	err = parser.Encode(f, draft)
	if err == nil {
		err = parser.WriteListing(f, w.nb.Tags(), w.nb.Entries())
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("workflow: write scratch file: %w: %w", apperr.ErrIO, err)
	}

	w.enter(AwaitingEditor, slog.String("scratch", path))
	if err := w.editor.Edit(ctx, path); err != nil {
		if errors.Is(err, apperr.ErrEditor) {
			return models.Note{}, err
		}
		return models.Note{}, fmt.Errorf("workflow: %w: %w", apperr.ErrEditor, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Note{}, fmt.Errorf("workflow: read scratch file: %w: %w", apperr.ErrIO, err)
	}
	return parser.Parse(data)
}

// ResolveTarget returns the only note matched by the query. Zero or several
// matches are an ErrAmbiguousTarget.
func ResolveTarget(nb Notebook, include, exclude []string) (models.Note, error) {
	matches := nb.Query(include, exclude)
	if len(matches) != 1 {
		return models.Note{}, fmt.Errorf("workflow: query matched %d notes, expected exactly 1: %w",
			len(matches), apperr.ErrAmbiguousTarget)
	}
	return matches[0], nil
}

// MergeNew stores a freshly written note. A note without title and body is
// refused; a missing or malformed identifier is generated from the content.
func MergeNew(nb Notebook, candidate models.Note) (models.Note, error) {
	if strings.TrimSpace(candidate.Title) == "" && strings.TrimSpace(candidate.Text) == "" {
		return models.Note{}, fmt.Errorf("workflow: create: %w", apperr.ErrEmptyNote)
	}
	checksum.Repair(&candidate)
	if err := nb.Replace(candidate.ID, candidate); err != nil {
		return models.Note{}, err
	}
	return candidate, nil
}

// MergeEdit stores an edited version of target. The identifier is always
// the target's: an edit never forks a note into a second identifier.
func MergeEdit(nb Notebook, target, candidate models.Note) (models.Note, error) {
	if candidate.ID != target.ID {
		candidate.ID = target.ID
	}
	checksum.Repair(&candidate)
	if err := nb.Replace(target.ID, candidate); err != nil {
		return models.Note{}, err
	}
	return candidate, nil
}
