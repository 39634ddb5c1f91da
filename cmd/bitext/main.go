package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/bitext/internal/config"
	"github.com/hpungsan/bitext/internal/db"
	"github.com/hpungsan/bitext/internal/logging"
	"github.com/hpungsan/bitext/internal/mcp"
	"github.com/hpungsan/bitext/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"project": true, "rule": true,
	"import": true, "pairs": true, "segments": true, "export": true,
	"align": true,
	"help":  true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
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
   _     _ _            _
  | |__ (_) |_ _____  _| |_
  | '_ \| | __/ _ \ \/ / __|
  | |_) | | ||  __/>  <| |_
  |_.__/|_|\__\___/_/\_\\__|

  Bilingual segment alignment

  Usage: bitext <command> [options]
         bitext --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	ops.Version = Version

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && !isCLIMode() && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'bitext --help' for usage.\n")
		os.Exit(1)
	}

	baseDir, err := ops.BaseDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Dir:        filepath.Join(baseDir, "logs"),
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Stderr:     os.Stderr,
	})
	if err != nil {
		fatal("failed to initialize logging: %v", err)
	}
	defer closeLog()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "types", unknown)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		closeLog()
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if isCLIMode() {
		app := newCLIApp(database, cfg, logger)
		if err := app.Run(os.Args); err != nil {
			database.Close()
			closeLog()
			fatal("%v", err)
		}
		return
	}

	// MCP server mode (default)
	logger.Info("mcp server starting", "version", Version)
	if err := mcp.Run(database, cfg, Version, logger); err != nil {
		logger.Error("mcp server stopped", "error", err)
		database.Close()
		closeLog()
		fatal("%v", err)
	}
}
