package internal

import (
	"io"

	"github.com/starford/tissue/internal/workflow"
)

// Option is a functional option for configuring the application.
type Option func(*App)

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithEditor overrides the editor built from the configured command.
func WithEditor(e workflow.Editor) Option {
	return func(a *App) {
		a.editor = e
	}
}

// WithOutput sets where command results are printed.
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.out = w
	}
}

// WithLogOutput sets where logs go when no log file is configured.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) {
		a.logOut = w
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *App) {
		a.version = v
	}
}
