package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/bitext/internal/config"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	app := &cli.App{
		Name:    "bitext",
		Usage:   "Bilingual segment alignment",
		Version: Version,
		Commands: []*cli.Command{
			projectCmd(db),
			ruleCmd(db, cfg),
			importCmd(db, cfg, logger),
			pairsCmd(db),
			segmentsCmd(db),
			exportCmd(db, cfg),
			alignCmd(db, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// projectCmd creates the project command group.
func projectCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Manage projects",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a project",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Source language code"},
					&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Required: true, Usage: "Target language code"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.CreateProject(c.Context, db, ops.CreateProjectInput{
						Name:       c.Args().First(),
						SourceLang: c.String("source"),
						TargetLang: c.String("target"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "list",
				Usage: "List projects",
				Action: func(c *cli.Context) error {
					output, err := ops.ListProjects(c.Context, db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a project with its file pairs and rules",
				ArgsUsage: "<project>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteProject(c.Context, db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
		},
	}
}

// ruleCmd creates the rule command group.
func ruleCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "rule",
		Usage: "Manage segmentation rules",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Append a rule",
				Flags: []cli.Flag{
					projectFlag(),
					langFlag(),
					&cli.StringFlag{Name: "before", Aliases: []string{"b"}, Usage: "Pattern before the boundary"},
					&cli.StringFlag{Name: "after", Aliases: []string{"a"}, Usage: "Pattern after the boundary"},
					&cli.BoolFlag{Name: "no-break", Usage: "Cancel boundaries instead of creating them"},
				},
				Action: func(c *cli.Context) error {
					breaking := !c.Bool("no-break")
					output, err := ops.AddRule(c.Context, db, ops.AddRuleInput{
						Project:  c.String("project"),
						Language: c.String("lang"),
						Before:   c.String("before"),
						After:    c.String("after"),
						Breaking: &breaking,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "list",
				Usage: "List rules",
				Flags: []cli.Flag{
					projectFlag(),
					langFlag(),
					&cli.BoolFlag{Name: "effective", Aliases: []string{"e"}, Usage: "Resolve project → default → built-in"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListRules(c.Context, db, ops.ListRulesInput{
						Project:   c.String("project"),
						Language:  c.String("lang"),
						Effective: c.Bool("effective"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a rule",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if err := ops.DeleteRule(c.Context, db, id); err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, map[string]any{"deleted": true, "id": id})
				},
			},
			{
				Name:      "import",
				Usage:     "Import rules from a YAML rule file",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					projectFlag(),
					&cli.BoolFlag{Name: "replace", Usage: "Replace existing rules for the file's language"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ImportRules(c.Context, db, cfg, ops.ImportRulesInput{
						Path:    c.Args().First(),
						Project: c.String("project"),
						Replace: c.Bool("replace"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, output)
				},
			},
			{
				Name:  "export",
				Usage: "Print the effective rules as a YAML rule file",
				Flags: []cli.Flag{projectFlag(), langFlag()},
				Action: func(c *cli.Context) error {
					data, err := ops.ExportRules(c.Context, db, ops.ListRulesInput{
						Project:  c.String("project"),
						Language: c.String("lang"),
					})
					if err != nil {
						return outputError(err)
					}
					_, err = c.App.Writer.Write(data)
					return err
				},
			},
		},
	}
}

func projectFlag() cli.Flag {
	return &cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project ID or name (default: the default scope)"}
}

func langFlag() cli.Flag {
	return &cli.StringFlag{Name: "lang", Aliases: []string{"l"}, Required: true, Usage: "Language code"}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a source and a target document as a file pair",
		ArgsUsage: "<source> <target>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Required: true, Usage: "Project ID or name"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("import takes a source and a target path"))
			}
			output, err := ops.ImportFilePair(c.Context, db, cfg, logger, ops.ImportFilePairInput{
				Project:    c.String("project"),
				SourcePath: c.Args().Get(0),
				TargetPath: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// pairsCmd creates the pairs command.
func pairsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "pairs",
		Usage:     "List a project's file pairs",
		ArgsUsage: "<project>",
		Action: func(c *cli.Context) error {
			output, err := ops.ListFilePairs(c.Context, db, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// segmentsCmd creates the segments command.
func segmentsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "segments",
		Usage:     "List stored segments of a file pair",
		ArgsUsage: "<file-pair-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: ops.DefaultListLimit, Usage: "Rows per page"},
			&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListSegments(c.Context, db, ops.ListSegmentsInput{
				FilePairID: c.Args().First(),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a file pair as TMX",
		ArgsUsage: "<file-pair-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output .tmx path (default: ~/.bitext/files/<project>-<timestamp>.tmx)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ExportTMX(c.Context, db, cfg, ops.ExportInput{
				FilePairID: c.Args().First(),
				Path:       c.String("out"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// alignCmd creates the align command.
func alignCmd(db *sql.DB, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "align",
		Usage:     "Apply alignment commands read from stdin to a file pair",
		ArgsUsage: "<file-pair-id>",
		Description: "Commands, one per line (# starts a comment):\n" +
			"   select source|target <id|index>   toggle   edit <text>   cursor <n>\n" +
			"   split [n]   up   down   merge prev|next   create before|after\n" +
			"   delete   save",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "keep-going", Aliases: []string{"k"}, Usage: "Report failed commands and continue"},
			&cli.BoolFlag{Name: "no-save", Usage: "Do not save pending changes at the end"},
		},
		Action: func(c *cli.Context) error {
			s, err := ops.OpenSession(c.Context, db, c.Args().First(), logger)
			if err != nil {
				return outputError(err)
			}
			defer s.Close()

			r := &scriptRunner{
				session:   s,
				errOut:    c.App.ErrWriter,
				keepGoing: c.Bool("keep-going"),
			}
			if err := r.run(c.Context, c.App.Reader); err != nil {
				return outputError(err)
			}
			if !c.Bool("no-save") {
				if err := r.finish(c.Context); err != nil {
					return outputError(err)
				}
			}
			return outputJSON(c.App.Writer, r.result())
		},
	}
}

// Helper functions

// outputJSON marshals result to w as JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if e, ok := errors.As(err); ok {
		prefix := strings.TrimSuffix(err.Error(), e.Error())
		return cli.Exit(fmt.Sprintf("[%s] %s%s", e.Code, prefix, e.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
