//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the notes table is searched directly and these are no-ops.
func initFTS(*sql.DB) error                                     { return nil }
func ftsUpsert(*sql.Tx, string, string, string, []string) error { return nil }
func ftsDelete(*sql.Tx, string) error                           { return nil }

// likeEscaper makes LIKE wildcards in a search word match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns notes whose title, body or tags contain every word of
// query, ordered by identifier. The snippet is the head of the body.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	for _, w := range words {
		like := "%" + likeEscaper.Replace(w) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`SELECT id, title, substr(body, 1, 200) FROM notes WHERE `+
		strings.Join(where, " AND ")+` ORDER BY id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
