package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/hpungsan/dirdump/internal/config"
	"github.com/hpungsan/dirdump/internal/db"
	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/logging"
	"github.com/hpungsan/dirdump/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"persist": true, "key": true, "ingest": true, "capture": true,
	"list": true, "fetch": true, "stats": true, "purge": true,
	"serve": true, "mcp": true,
	"help": true,
}

// env is the wiring shared by every command.
type env struct {
	db     *sql.DB
	cfg    *config.Config
	dumper *dump.Dumper
	logger zerolog.Logger
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
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  dirdump - mirror captured HTTP payloads into a directory tree

  Usage: dirdump <command> [options]
         dirdump --help

  MCP server mode requires piped input.`)
}

// setup loads config (global ~/.dirdump plus the nearest .dirdump/ above the
// working directory), then opens the logger, the index and the dumper.
func setup(globalDir, workDir string, stderr io.Writer) (*env, func(), error) {
	cfg, err := config.LoadWithRepo(globalDir, workDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}, stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}

	database, err := db.Init(globalDir)
	if err != nil {
		logCloser.Close()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	dumper := dump.New(dump.Options{
		Root:      cfg.DumpDir,
		Serialize: !cfg.UnsafeConcurrentWrites,
	})
	dumper.SetLogger(logger.With().Str("component", "dump").Logger())

	cleanup := func() {
		database.Close()
		logCloser.Close()
	}

	return &env{db: database, cfg: cfg, dumper: dumper, logger: logger}, cleanup, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'dirdump --help' for usage.\n")
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(1)
	}

	e, cleanup, err := setup(filepath.Join(homeDir, config.RepoDirName), workDir, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	code := 0
	if isCLIMode() {
		if err := newCLIApp(e).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			code = 1
		}
	} else if err := mcp.Run(e.db, e.dumper, e.cfg, Version); err != nil {
		// MCP server mode (default)
		e.logger.Error().Err(err).Msg("mcp server stopped")
		code = 1
	}

	cleanup()
	os.Exit(code)
}
