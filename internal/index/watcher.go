package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tissue/internal/storage"
)

// DefaultDebounce is how long Watch waits for the notebook to settle.
const DefaultDebounce = 200 * time.Millisecond

// ChangeCallback is called once per settled burst of note file changes with
// the names of the files that changed.
type ChangeCallback func(names []string)

// Watch starts an fsnotify watcher on the notebook root and reports changes
// to note files until ctx is cancelled. The notebook is flat, so only the
// root itself is watched. Hidden files and files without the note extension
// are ignored, which also skips the temporary files of atomic writes.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watcher: started", slog.String("root", root))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		pending = make(map[string]struct{})
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			timer, timerCh = nil, nil
			names := make([]string, 0, len(pending))
			for n := range pending {
				names = append(names, n)
			}
			clear(pending)
			logger.Debug("watcher: settled", slog.Int("files", len(names)))
			if cb != nil {
				cb(names)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !isNoteFile(name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: event", slog.String("file", name), slog.String("op", ev.Op.String()))
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isNoteFile(name string) bool {
	return strings.HasSuffix(name, storage.NoteExt) && !strings.HasPrefix(name, ".")
}
