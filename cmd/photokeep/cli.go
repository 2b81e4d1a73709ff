package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(engine *ops.Engine) *cli.App {
	app := &cli.App{
		Name:    "photokeep",
		Usage:   "Per-user photo folders with consistent counters",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, EnvVars: []string{"PHOTOKEEP_USER"}, Usage: "User id (registered on first use)"},
			&cli.StringFlag{Name: "display-name", Usage: "Display name stored when the user is first registered"},
		},
		Commands: []*cli.Command{
			folderCmd(engine),
			photoCmd(engine),
			statsCmd(engine),
			exportCmd(engine),
			importCmd(engine),
			checkCmd(engine),
			repairCmd(engine),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// currentUser registers the --user identity and returns its id.
func currentUser(c *cli.Context, engine *ops.Engine) (string, error) {
	userID := strings.TrimSpace(c.String("user"))
	if userID == "" {
		return "", errors.NewInvalidRequest("--user is required")
	}
	_, err := engine.Register(c.Context, ops.RegisterInput{
		UserID:      userID,
		DisplayName: c.String("display-name"),
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// positional returns exactly n positional arguments or a usage error.
func positional(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("usage: %s %s", c.Command.FullName(), c.Command.ArgsUsage))
	}
	return c.Args().Slice(), nil
}

// folderCmd creates the folder command group.
func folderCmd(engine *ops.Engine) *cli.Command {
	return &cli.Command{
		Name:  "folder",
		Usage: "Create, delete and list folders",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an empty folder",
				ArgsUsage: "<folder>",
				Action: func(c *cli.Context) error {
					a, err := positional(c, 1)
					if err != nil {
						return outputError(err)
					}
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.CreateFolder(c.Context, ops.CreateFolderInput{UserID: userID, Folder: a[0]})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a folder and all its photos",
				ArgsUsage: "<folder>",
				Action: func(c *cli.Context) error {
					a, err := positional(c, 1)
					if err != nil {
						return outputError(err)
					}
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.DeleteFolder(c.Context, ops.DeleteFolderInput{UserID: userID, Folder: a[0]})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List folders in creation order",
				Action: func(c *cli.Context) error {
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.ListFolders(c.Context, ops.ListFoldersInput{UserID: userID})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// photoCmd creates the photo command group.
func photoCmd(engine *ops.Engine) *cli.Command {
	return &cli.Command{
		Name:  "photo",
		Usage: "Upload, fetch and delete photos",
		Subcommands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Store a photo reference (reads the reference from stdin when omitted)",
				ArgsUsage: "<folder> <photo> [reference]",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 || c.NArg() > 3 {
						return outputError(errors.NewInvalidRequest("usage: photo upload <folder> <photo> [reference]"))
					}
					reference := c.Args().Get(2)
					if reference == "" && stdinHasData() {
						text, err := readStdin()
						if err != nil {
							return outputError(errors.NewInternal(err))
						}
						reference = text
					}
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.UploadPhoto(c.Context, ops.UploadPhotoInput{
						UserID:    userID,
						Folder:    c.Args().Get(0),
						Photo:     c.Args().Get(1),
						Reference: reference,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove a photo from a folder",
				ArgsUsage: "<folder> <photo>",
				Action: func(c *cli.Context) error {
					a, err := positional(c, 2)
					if err != nil {
						return outputError(err)
					}
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.DeletePhoto(c.Context, ops.DeletePhotoInput{UserID: userID, Folder: a[0], Photo: a[1]})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "get",
				Usage:     "Print the reference stored under a photo name",
				ArgsUsage: "<folder> <photo>",
				Action: func(c *cli.Context) error {
					a, err := positional(c, 2)
					if err != nil {
						return outputError(err)
					}
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.GetPhoto(c.Context, ops.GetPhotoInput{UserID: userID, Folder: a[0], Photo: a[1]})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "list",
				Usage:     "List a folder's photos",
				ArgsUsage: "<folder>",
				Action: func(c *cli.Context) error {
					a, err := positional(c, 1)
					if err != nil {
						return outputError(err)
					}
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.ListPhotos(c.Context, ops.ListPhotosInput{UserID: userID, Folder: a[0]})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "random",
				Usage:     "Pick a random photo, from one folder or from all of them",
				ArgsUsage: "[folder]",
				Action: func(c *cli.Context) error {
					if c.NArg() > 1 {
						return outputError(errors.NewInvalidRequest("usage: photo random [folder]"))
					}
					userID, err := currentUser(c, engine)
					if err != nil {
						return outputError(err)
					}
					output, err := engine.PickRandomPhoto(c.Context, ops.RandomPhotoInput{UserID: userID, Folder: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(engine *ops.Engine) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show user, folder and photo totals",
		Action: func(c *cli.Context) error {
			output, err := engine.Stats(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(engine *ops.Engine) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the user's library to JSONL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: ~/.photokeep/exports/<user>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			userID, err := currentUser(c, engine)
			if err != nil {
				return outputError(err)
			}
			output, err := engine.Export(c.Context, ops.ExportInput{UserID: userID, Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(engine *ops.Engine) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a JSONL export into the user's library",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Input path"},
		},
		Action: func(c *cli.Context) error {
			userID, err := currentUser(c, engine)
			if err != nil {
				return outputError(err)
			}
			output, err := engine.Import(c.Context, ops.ImportInput{UserID: userID, Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// checkCmd creates the check command.
func checkCmd(engine *ops.Engine) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Audit the user's cached record against stored folders",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "Check every cached user"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("all") {
				users := engine.Directory().Snapshot()
				outputs := make([]*ops.CheckOutput, 0, len(users))
				for _, u := range users {
					output, err := engine.Check(c.Context, ops.CheckInput{UserID: u.ID})
					if err != nil {
						return outputError(err)
					}
					outputs = append(outputs, output)
				}
				return outputJSON(outputs)
			}

			userID, err := currentUser(c, engine)
			if err != nil {
				return outputError(err)
			}
			output, err := engine.Check(c.Context, ops.CheckInput{UserID: userID})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// repairCmd creates the repair command.
func repairCmd(engine *ops.Engine) *cli.Command {
	return &cli.Command{
		Name:  "repair",
		Usage: "Reconcile the user's cached record with stored folders",
		Action: func(c *cli.Context) error {
			userID, err := currentUser(c, engine)
			if err != nil {
				return outputError(err)
			}
			output, err := engine.Repair(c.Context, ops.RepairInput{UserID: userID})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// outputJSON writes JSON output to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if kErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", kErr.Code, kErr.Message), 1)
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

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
