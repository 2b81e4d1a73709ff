package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/photokeep/photokeep/internal/cache"
	"github.com/photokeep/photokeep/internal/config"
	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/logger"
	"github.com/photokeep/photokeep/internal/mcp"
	"github.com/photokeep/photokeep/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"folder": true, "photo": true, "stats": true,
	"export": true, "import": true, "check": true, "repair": true,
	"help": true,
}

// valueFlags are the global flags that consume the next argument.
var valueFlags = map[string]bool{
	"--user": true, "-user": true, "-u": true,
	"--display-name": true, "-display-name": true,
}

// firstCommand returns the first argument that is neither a flag nor a flag's
// value, e.g. "folder" in: photokeep --user U1 folder list
func firstCommand(args []string) string {
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
		if valueFlags[arg] {
			i++
		}
	}
	return ""
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	if cliCommands[firstCommand(args)] {
		return true
	}
	return isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  PhotoKeep

  Per-user photo folders with consistent counters

  Usage: photokeep [--user ID] <command> [options]
         photokeep --help

  MCP server mode requires piped input.`)
}

// openEngine opens the configured store, warms the user cache and builds the engine.
func openEngine(ctx context.Context, baseDir string, cfg *config.Config, log *slog.Logger) (*ops.Engine, func(), error) {
	store, err := db.Open(baseDir, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	dir := cache.NewDirectory(store, log)
	n, err := dir.LoadAll(ctx)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to load users: %w", err)
	}
	log.Debug("user cache loaded", "users", n, "backend", cfg.Backend)

	engine := ops.NewEngine(store, dir, cfg,
		ops.WithLogger(log),
		ops.WithBaseDir(baseDir),
	)
	return engine, func() { store.Close() }, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before store init (no store needed)
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown disabled_tools: %v\n", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown disabled_types: %v\n", unknown)
	}

	log := logger.New(logger.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})

	// Unknown argument + terminal → show error (don't start MCP server)
	cliMode := isCLIMode(os.Args)
	if !cliMode && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'photokeep --help' for usage.\n")
		os.Exit(1)
	}

	engine, closeStore, err := openEngine(context.Background(), baseDir, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cliMode {
		app := newCLIApp(engine)
		err = app.Run(os.Args)
	} else {
		// MCP server mode (default)
		err = mcp.Run(engine, cfg, Version)
	}
	closeStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
