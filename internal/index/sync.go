package index

import (
	"fmt"
	"log/slog"

	"github.com/starford/tissue/internal/checksum"
	"github.com/starford/tissue/internal/models"
	"github.com/starford/tissue/internal/parser"
)

// SyncStats counts what a Sync changed.
type SyncStats struct {
	Upserted int
	Deleted  int
}

// Sync brings the mirror in line with notes:
//   - new or changed notes (by checksum of their encoding) are upserted
//   - indexed ids missing from notes are deleted
//
// Individual row failures are logged and skipped.
func Sync(db NoteIndex, notes []models.Note, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	live := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		live[n.ID] = struct{}{}
		row := rowFor(n)
		if checksums[n.ID] == row.Checksum {
			continue
		}
		if err := db.UpsertNote(row, n.Text); err != nil {
			logger.Warn("sync: index failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
		stats.Upserted++
		logger.Debug("sync: indexed", slog.String("id", n.ID))
	}

	for id := range checksums {
		if _, ok := live[id]; ok {
			continue
		}
		if err := db.DeleteNote(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		stats.Deleted++
		logger.Debug("sync: removed stale", slog.String("id", id))
	}
	return stats, nil
}

// IndexNote mirrors a single note. It reports false when the mirror already
// held the same encoding and nothing was written.
func IndexNote(db NoteIndex, n models.Note) (bool, error) {
	row := rowFor(n)
	cur, err := db.GetChecksum(n.ID)
	if err != nil {
		return false, fmt.Errorf("index: note %s: %w", n.ID, err)
	}
	if cur == row.Checksum {
		return false, nil
	}
	if err := db.UpsertNote(row, n.Text); err != nil {
		return false, fmt.Errorf("index: note %s: %w", n.ID, err)
	}
	return true, nil
}

func rowFor(n models.Note) NoteRow {
	return NoteRow{
		ID:       n.ID,
		Title:    n.Title,
		Checksum: checksum.Sum(parser.Format(n)),
		Tags:     n.Tags.Sorted(),
	}
}
