package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/tissue/internal/index"
	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/notebook"
	"github.com/starford/tissue/internal/workflow"
)

func (a *App) openNotebook() (*notebook.Notebook, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return notebook.Open(store, a.logger)
}

func (a *App) newWorkflow(nb *notebook.Notebook) *workflow.Workflow {
	return workflow.New(nb, a.editor, workflow.WithLogger(a.logger))
}

// Add lets the operator write a new note in the editor.
func (a *App) Add(ctx context.Context) (models.Note, error) {
	nb, err := a.openNotebook()
	if err != nil {
		return models.Note{}, err
	}
	n, err := a.newWorkflow(nb).Create(ctx)
	if err != nil {
		return models.Note{}, err
	}
	a.logger.Info("note created", slog.String("id", n.ID))
	fmt.Fprintf(a.out, "created #%s %s\n", n.ID, n.Title)
	return n, nil
}

// Edit opens the single note matched by the query in the editor.
func (a *App) Edit(ctx context.Context, include, exclude []string) (models.Note, error) {
	nb, err := a.openNotebook()
	if err != nil {
		return models.Note{}, err
	}
	n, err := a.newWorkflow(nb).Edit(ctx, include, exclude)
	if err != nil {
		return models.Note{}, err
	}
	a.logger.Info("note updated", slog.String("id", n.ID))
	fmt.Fprintf(a.out, "updated #%s %s\n", n.ID, n.Title)
	return n, nil
}

// List prints one line per matching note.
func (a *App) List(_ context.Context, include, exclude []string) error {
	nb, err := a.openNotebook()
	if err != nil {
		return err
	}
	for _, n := range nb.Query(include, exclude) {
		fmt.Fprintln(a.out, Headline(n))
	}
	return nil
}

// Show prints every matching note with its body.
func (a *App) Show(_ context.Context, include, exclude []string) error {
	nb, err := a.openNotebook()
	if err != nil {
		return err
	}
	for _, n := range nb.Query(include, exclude) {
		writeNote(a.out, n)
	}
	return nil
}

// Tags prints the known tags, or only those containing substr.
func (a *App) Tags(_ context.Context, substr string) error {
	nb, err := a.openNotebook()
	if err != nil {
		return err
	}
	tags := nb.Tags()
	if substr != "" {
		tags = nb.SearchTags(substr)
	}
	for _, t := range tags {
		fmt.Fprintf(a.out, "#%s\n", t)
	}
	return nil
}

// Search refreshes the search mirror and prints the notes matching query.
func (a *App) Search(_ context.Context, query string, limit int) error {
	nb, err := a.openNotebook()
	if err != nil {
		return err
	}
	db, err := index.Open(a.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if _, err := index.Sync(db, nb.Notes(), a.logger); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	results, err := db.Search(query, limit)
	if err != nil {
		return err
	}
	for _, r := range results {
		if n, ok := nb.Get(r.ID); ok {
			fmt.Fprintln(a.out, Headline(n))
		}
	}
	return nil
}

// Headline renders a note as "#id title #tag...", tags sorted.
func Headline(n models.Note) string {
	var b strings.Builder
	b.WriteString("#")
	b.WriteString(n.ID)
	if n.Title != "" {
		b.WriteString(" ")
		b.WriteString(n.Title)
	}
	for _, t := range n.Tags.Sorted() {
		b.WriteString(" #")
		b.WriteString(t)
	}
	return b.String()
}

func writeNote(w io.Writer, n models.Note) {
	fmt.Fprintln(w, Headline(n))
	fmt.Fprint(w, n.Text)
	if n.Text != "" && !strings.HasSuffix(n.Text, "\n") {
		fmt.Fprintln(w)
	}
}
