package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/starford/tissue/internal/apperr"
)

// Editor opens a file for interactive editing and blocks until the operator
// is done. A non-nil error means the edit must be discarded.
type Editor interface {
	Edit(ctx context.Context, path string) error
}

// EditorFunc adapts a function to the Editor interface.
type EditorFunc func(ctx context.Context, path string) error

// Edit calls f.
func (f EditorFunc) Edit(ctx context.Context, path string) error {
	return f(ctx, path)
}

// EditorError reports an editor that exited with a non-zero status.
type EditorError struct {
	Command string
	Code    int
}

func (e *EditorError) Error() string {
	return fmt.Sprintf("editor %q exited with status %d", e.Command, e.Code)
}

// Unwrap lets errors.Is match apperr.ErrEditor.
func (e *EditorError) Unwrap() error {
	return apperr.ErrEditor
}

// CommandEditor runs an external program with the file path as its last
// argument. Command may carry its own arguments, e.g. "code --wait".
type CommandEditor struct {
	Command string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewCommandEditor returns an editor attached to the process terminal.
func NewCommandEditor(command string) *CommandEditor {
	return &CommandEditor{
		Command: command,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Edit launches the program and waits for it to exit.
func (e *CommandEditor) Edit(ctx context.Context, path string) error {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return fmt.Errorf("workflow: no editor configured: %w", apperr.ErrEditor)
	}
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &EditorError{Command: e.Command, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("workflow: launch editor %q: %w: %w", e.Command, apperr.ErrEditor, err)
	}
	return nil
}
