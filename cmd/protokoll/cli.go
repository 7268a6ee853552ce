package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/mail"
	"github.com/wby/protokoll/internal/media"
	"github.com/wby/protokoll/internal/ops"
	"github.com/wby/protokoll/internal/protocol"
	"github.com/wby/protokoll/internal/recognition"
	"github.com/wby/protokoll/internal/session"
	"github.com/wby/protokoll/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(database *sql.DB, cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "protokoll",
		Usage:   "Meeting transcription and protocol generation",
		Version: Version,
		Commands: []*cli.Command{
			recordCmd(database, cfg, baseDir),
			listCmd(database),
			showCmd(database),
			deleteCmd(database),
			foldersCmd(database),
			folderAddCmd(database),
			folderRemoveCmd(database),
			protocolCmd(database, cfg, baseDir),
			pruneCmd(database),
			serveCmd(database, cfg, baseDir),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// recordCmd creates the record command. Dictation arrives as lines on
// stdin: every line is first emitted as an interim hypothesis and then
// finalized, mirroring live recognition. EOF ends the session.
func recordCmd(database *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record a meeting session (reads dictated lines from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Meeting name"},
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Folder to file the meeting under"},
			&cli.StringFlag{Name: "resume", Aliases: []string{"r"}, Usage: "Resume an existing session by id"},
			&cli.BoolFlag{Name: "force", Usage: "Skip the short-transcript confirmation"},
			&cli.BoolFlag{Name: "no-protocol", Usage: "Stop without generating a protocol"},
			&cli.StringFlag{Name: "email", Usage: "Comma-separated recipients for the protocol document"},
			&cli.StringFlag{Name: "message", Usage: "Email body accompanying the document"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("dictation must be piped via stdin"))
			}

			if folder := c.String("folder"); folder != "" {
				if _, err := ops.FolderAdd(database, ops.FolderAddInput{Name: folder}); err != nil {
					return outputError(err)
				}
			}

			opts := session.OptionsFromConfig(cfg)
			opts.Name = c.String("name")
			opts.Folder = c.String("folder")
			opts.ResumeID = c.String("resume")

			// EOF on stdin ends the engine for good; that is the stop signal.
			ended := make(chan struct{})
			var endOnce sync.Once
			factory := func(_ recognition.Config, h recognition.Handlers) (recognition.Engine, error) {
				wrapped := h
				wrapped.OnEnd = func() {
					h.OnEnd()
					endOnce.Do(func() { close(ended) })
				}
				return recognition.NewReaderEngine(os.Stdin, wrapped), nil
			}

			rec := session.New(session.NewSQLStore(database), media.NullCapture{}, factory, opts)
			if err := rec.Start(context.Background()); err != nil {
				return outputError(err)
			}

			<-ended

			result, err := rec.Stop(session.StopOptions{Force: c.Bool("force")})
			if err != nil {
				return outputError(err)
			}

			for _, n := range rec.Notices().Since(0) {
				fmt.Fprintf(os.Stderr, "notice [%s]: %s\n", n.Kind, n.Message)
			}

			switch result.Outcome {
			case session.OutcomeDiscarded:
				return outputJSON(map[string]any{"outcome": result.Outcome})
			case session.OutcomeShortTranscript:
				// Park the session in the library instead of dropping it.
				rec.TogglePause()
				if err := rec.SaveToLibrary(); err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{
					"outcome":    result.Outcome,
					"word_count": result.WordCount,
					"id":         rec.Snapshot().ID,
					"hint":       "fewer words than the confirmation threshold; saved to library, rerun with --force --resume to finish",
				})
			}

			out := map[string]any{
				"outcome":    result.Outcome,
				"id":         result.SessionID,
				"name":       result.Name,
				"word_count": result.WordCount,
			}

			if c.Bool("no-protocol") {
				return outputJSON(out)
			}

			gen, err := ops.GenerateProtocol(context.Background(), generateDeps(database, cfg, baseDir), ops.GenerateInput{
				ID:         result.SessionID,
				Recipients: parseRecipients(c.String("email")),
				Message:    c.String("message"),
			})
			if err != nil {
				return outputError(err)
			}
			out["protocol"] = gen
			return outputJSON(out)
		},
	}
}

// listCmd creates the list command.
func listCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recorded meetings, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Filter by folder"},
			&cli.IntFlag{Name: "limit", Usage: "Page size (default 20, max 100)"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(database, ops.ListInput{
				Folder: c.String("folder"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one meeting, including its transcript",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-transcript", Usage: "Exclude transcript text from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{ID: c.Args().First()}
			if c.Bool("no-transcript") {
				includeTranscript := false
				input.IncludeTranscript = &includeTranscript
			}

			output, err := ops.Fetch(database, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a meeting permanently",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(database, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// foldersCmd creates the folders command.
func foldersCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "folders",
		Usage: "List folders",
		Action: func(c *cli.Context) error {
			output, err := ops.FolderList(database)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// folderAddCmd creates the folder-add command.
func folderAddCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "folder-add",
		Usage:     "Create a folder",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			output, err := ops.FolderAdd(database, ops.FolderAddInput{Name: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// folderRemoveCmd creates the folder-remove command.
func folderRemoveCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "folder-remove",
		Usage:     "Delete a folder; its meetings move to the default folder",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			output, err := ops.FolderRemove(database, ops.FolderRemoveInput{Name: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// protocolCmd creates the protocol command.
func protocolCmd(database *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "protocol",
		Usage:     "Generate a protocol document from a stored meeting",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Comma-separated recipients for the document"},
			&cli.StringFlag{Name: "message", Usage: "Email body accompanying the document"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.GenerateProtocol(context.Background(), generateDeps(database, cfg, baseDir), ops.GenerateInput{
				ID:         c.Args().First(),
				Recipients: parseRecipients(c.String("email")),
				Message:    c.String("message"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// pruneCmd creates the prune command.
func pruneCmd(database *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Remove duplicate empty sessions created within the same minute",
		Action: func(c *cli.Context) error {
			output, err := ops.Prune(database)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(database *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 4280, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(database, cfg, baseDir, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

func generateDeps(database *sql.DB, cfg *config.Config, baseDir string) ops.GenerateDeps {
	return ops.GenerateDeps{
		DB:         database,
		Generator:  protocol.NewGenerator(cfg),
		Mailer:     mail.NewHTTPMailer(cfg),
		ExportsDir: db.ExportsDir(baseDir),
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if pErr, ok := err.(*errors.ProtokollError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// parseRecipients splits a comma-separated recipient list.
func parseRecipients(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
