package parser

import (
	"bufio"
	"fmt"
	"io"

	"github.com/starford/tissue/internal/models"
)

const templateHelp = commentPrefix + "# (Write the title after `# ` on the first line; a `#word` there becomes the note id)\n" +
	commentPrefix + "# (Use `#` to claim next word as a tag, e.g. \"This is hi pri #task\"; write `##` for a literal hash)\n"

// Template returns the draft shown to an operator creating a new note.
func Template() models.Note {
	return models.Note{
		Text: templateHelp,
		Tags: models.NewTagSet(),
	}
}

// WriteListing appends the comment block listing the known vocabulary: every
// tag, then every note as "#id - title". Decode discards these lines.
func WriteListing(w io.Writer, tags []string, entries []models.Entry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s# (List of existing tags:)\n", commentPrefix)
	for _, t := range tags {
		fmt.Fprintf(bw, "%s# (#%s)\n", commentPrefix, t)
	}
	fmt.Fprintf(bw, "%s# (List of existing notes:)\n", commentPrefix)
	for _, e := range entries {
		fmt.Fprintf(bw, "%s# (#%s - %s)\n", commentPrefix, e.ID, e.Title)
	}
	return bw.Flush()
}
