package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tissue/internal"
	pkgconfig "github.com/starford/tissue/pkg/config"
)

var version = "dev"

// loadApp reads the config file, applies flag overrides and builds the app.
// Logs go to stderr unless the command serves HTTP.
func loadApp(cmd *cli.Command, logToStdout bool) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Flags and their environment variables win over the file.
	if cmd.IsSet("root") {
		cfg.Notebook.Path = cmd.String("root")
	}
	if cmd.IsSet("editor") {
		cfg.Editor.Command = cmd.String("editor")
	}

	logOut := os.Stderr
	if logToStdout {
		logOut = os.Stdout
	}
	return internal.New(
		internal.WithConfig(cfg),
		internal.WithLogOutput(logOut),
		internal.WithVersion(version),
	)
}

// withApp adapts an application method to a cli action.
func withApp(logToStdout bool, fn func(ctx context.Context, app *internal.App, cmd *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := loadApp(cmd, logToStdout)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, app, cmd)
	}
}

func tagArgs(cmd *cli.Command) []string {
	var out []string
	for _, a := range cmd.Args().Slice() {
		out = append(out, strings.TrimPrefix(a, "#"))
	}
	return out
}

func excludeTags(cmd *cli.Command) []string {
	var out []string
	for _, a := range cmd.StringSlice("not") {
		out = append(out, strings.TrimPrefix(a, "#"))
	}
	return out
}

func main() {
	notFlag := &cli.StringSliceFlag{
		Name:    "not",
		Aliases: []string{"n"},
		Usage:   "Exclude notes carrying this tag (repeatable)",
	}

	cmd := &cli.Command{
		Name:    "tissue",
		Usage:   "Personal note store: plain-text notes selected by #tags, edited in your $EDITOR",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("TISSUE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Notebook directory",
				Sources: cli.EnvVars("TISSUE_ROOT"),
			},
			&cli.StringFlag{
				Name:    "editor",
				Usage:   "Editor command used by add and edit",
				Sources: cli.EnvVars("EDITOR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Write a new note in the editor",
				Action: withApp(false, func(ctx context.Context, app *internal.App, _ *cli.Command) error {
					_, err := app.Add(ctx)
					return err
				}),
			},
			{
				Name:      "edit",
				Usage:     "Edit the single note selected by tags",
				ArgsUsage: "[--not tag]... tag...",
				Flags:     []cli.Flag{notFlag},
				Action: withApp(false, func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					_, err := app.Edit(ctx, tagArgs(cmd), excludeTags(cmd))
					return err
				}),
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List notes selected by tags (all notes without tags)",
				ArgsUsage: "[--not tag]... [tag...]",
				Flags:     []cli.Flag{notFlag},
				Action: withApp(false, func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					return app.List(ctx, tagArgs(cmd), excludeTags(cmd))
				}),
			},
			{
				Name:      "show",
				Usage:     "Print notes selected by tags with their text",
				ArgsUsage: "[--not tag]... [tag...]",
				Flags:     []cli.Flag{notFlag},
				Action: withApp(false, func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					return app.Show(ctx, tagArgs(cmd), excludeTags(cmd))
				}),
			},
			{
				Name:      "tags",
				Usage:     "List known tags, optionally only those containing a substring",
				ArgsUsage: "[substring]",
				Action: withApp(false, func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					return app.Tags(ctx, strings.TrimPrefix(cmd.Args().First(), "#"))
				}),
			},
			{
				Name:      "search",
				Usage:     "Full-text search through notes",
				ArgsUsage: "text...",
				Action: withApp(false, func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					q := strings.Join(cmd.Args().Slice(), " ")
					if q == "" {
						return fmt.Errorf("search: query is required")
					}
					return app.Search(ctx, q, 50)
				}),
			},
			{
				Name:  "serve",
				Usage: "Serve the HTTP API with live updates",
				Action: withApp(true, func(ctx context.Context, app *internal.App, _ *cli.Command) error {
					if err := app.Serve(ctx); err != nil {
						return fmt.Errorf("app run error: %w", err)
					}
					return nil
				}),
			},
			{
				Name:  "mcp",
				Usage: "Serve the notebook to an MCP client over stdio",
				Action: withApp(false, func(ctx context.Context, app *internal.App, _ *cli.Command) error {
					return app.ServeMCP(ctx)
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
