package index

// NoteIndex is the search mirror as seen by its consumers.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string) error
	DeleteNote(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
