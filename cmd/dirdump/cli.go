package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/dirdump/internal/capture"
	"github.com/hpungsan/dirdump/internal/capture/cdp"
	"github.com/hpungsan/dirdump/internal/errors"
	"github.com/hpungsan/dirdump/internal/mcp"
	"github.com/hpungsan/dirdump/internal/ops"
	"github.com/hpungsan/dirdump/internal/web"
)

// maxPayloadBytes bounds a payload read from stdin by `persist`.
const maxPayloadBytes = 64 * 1024 * 1024

// Default bind address for `serve`.
const (
	defaultBind = "127.0.0.1"
	defaultPort = 8417
)

// newCLIApp creates the CLI application with all commands.
// e may be nil when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "dirdump",
		Usage:   "Mirror captured HTTP payloads into a directory tree",
		Version: Version,
		Commands: []*cli.Command{
			persistCmd(e),
			keyCmd(),
			ingestCmd(e),
			captureCmd(e),
			listCmd(e),
			fetchCmd(e),
			statsCmd(e),
			purgeCmd(e),
			serveCmd(e),
			mcpCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// filter returns the capture filter configured for e.
func (e *env) filter() capture.Filter {
	return capture.Filter{DumpRequestContent: e.cfg.DumpRequestContent}
}

// targetFlags address a capture by URL or by host, port and path.
func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Absolute URL of the capture"},
		&cli.StringFlag{Name: "host", Usage: "Host (instead of --url)"},
		&cli.IntFlag{Name: "port", Value: 80, Usage: "Port (with --host)"},
		&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Value: "/", Usage: "Raw URL path (with --host)"},
		&cli.BoolFlag{Name: "request", Aliases: []string{"r"}, Usage: "Payload is a request body"},
	}
}

// targetFrom reads targetFlags, accepting the URL as the first positional argument too.
func targetFrom(c *cli.Context) ops.Target {
	t := ops.Target{
		URL:  c.String("url"),
		Host: c.String("host"),
		Port: c.Int("port"),
		Path: c.String("path"),
	}
	if t.URL == "" && t.Host == "" && c.NArg() > 0 {
		t.URL = c.Args().First()
	}
	return t
}

// persistCmd creates the persist command.
func persistCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "persist",
		Usage:     "Persist one payload read from stdin",
		ArgsUsage: "[url]",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			content, err := readInput(c, maxPayloadBytes)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Persist(c.Context, e.db, e.dumper, e.filter(), ops.PersistInput{
				Target:    targetFrom(c),
				IsRequest: c.Bool("request"),
				Content:   content,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// keyCmd creates the key command. It needs neither the index nor the dump root.
func keyCmd() *cli.Command {
	return &cli.Command{
		Name:      "key",
		Usage:     "Show where a capture would be stored, without writing",
		ArgsUsage: "[url]",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.Key(ops.KeyInput{
				Target:    targetFrom(c),
				IsRequest: c.Bool("request"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// ingestCmd creates the ingest command.
func ingestCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Replay captures from a JSONL file (or stdin)",
		ArgsUsage: "[file]",
		Action: func(c *cli.Context) error {
			var r io.Reader
			if c.NArg() > 0 && c.Args().First() != "-" {
				f, err := os.Open(c.Args().First())
				if err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("cannot open %s: %v", c.Args().First(), err)))
				}
				defer f.Close()
				r = f
			} else {
				if isCharDevice(c.App.Reader) {
					return outputError(errors.NewInvalidRequest("pipe JSONL via stdin or pass a file"))
				}
				r = c.App.Reader
			}

			output, err := ops.Ingest(c.Context, e.db, e.dumper, e.filter(), r)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// captureCmd creates the capture command.
func captureCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Attach to Chrome via the DevTools protocol and dump every payload",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "devtools-url", Usage: "Remote debugging endpoint (default from config)"},
			&cli.StringFlag{Name: "target", Usage: "Page target ID (default: first page)"},
		},
		Action: func(c *cli.Context) error {
			url := c.String("devtools-url")
			if url == "" {
				url = e.cfg.DevToolsURL
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := e.logger.With().Str("component", "capture").Logger()
			src := cdp.New(url, c.String("target"))
			src.SetLogger(logger)

			filter := e.filter()
			handler := func(ctx context.Context, ev capture.Event) error {
				out, err := ops.PersistEvent(ctx, e.db, e.dumper, filter, ev)
				if err != nil {
					return err
				}
				logger.Info().
					Str("key", out.Key).
					Str("outcome", string(out.Outcome)).
					Int("size", out.Size).
					Msg("captured")
				return nil
			}

			logger.Info().Str("devtools_url", url).Str("dump_dir", e.dumper.Root()).Msg("capture started")
			if err := src.Run(ctx, handler); err != nil {
				return outputError(err)
			}
			logger.Info().Msg("capture stopped")
			return nil
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List indexed artifacts, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Filter by host"},
			&cli.StringFlag{Name: "key-prefix", Aliases: []string{"k"}, Usage: "Filter by key prefix, e.g. example.com/api"},
			&cli.StringFlag{Name: "outcome", Usage: "Filter by outcome: written|duplicate"},
			&cli.StringFlag{Name: "kind", Usage: "Filter by kind: request|response"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Host:      c.String("host"),
				KeyPrefix: c.String("key-prefix"),
				Outcome:   c.String("outcome"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			}

			switch c.String("kind") {
			case "":
			case "request":
				v := true
				input.Request = &v
			case "response":
				v := false
				input.Request = &v
			default:
				return outputError(errors.NewInvalidRequest("kind must be one of: request, response"))
			}

			output, err := ops.List(c.Context, e.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch an indexed artifact and its payload",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-content", Usage: "Exclude the payload from output"},
			&cli.BoolFlag{Name: "raw", Usage: "Write only the payload bytes"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{ID: c.Args().First()}
			if c.Bool("no-content") {
				includeContent := false
				input.IncludeContent = &includeContent
			}

			output, err := ops.Fetch(c.Context, e.db, e.dumper.Root(), input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("raw") {
				return writeRaw(c, output)
			}
			return outputJSON(c, output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize the index per host",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, e.db)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete index records (payload files are kept)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Filter by host"},
			&cli.StringFlag{Name: "older-than", Usage: "Only purge records older than N days (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}

			if host := c.String("host"); host != "" {
				input.Host = &host
			}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = days
			}

			output, err := ops.Purge(c.Context, e.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Browse the dump and its index in a web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: defaultBind, Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: defaultPort, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			logger := e.logger.With().Str("component", "web").Logger()
			srv, err := web.NewServer(e.db, e.dumper.Root(), logger, web.Options{
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				Version: Version,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(c.Context, srv, logger)
		},
	}
}

// mcpCmd creates the mcp command, the explicit form of the default stdio mode.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(e.db, e.dumper, e.cfg, Version)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's stdout as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRaw writes a fetched payload as it is stored on disk.
func writeRaw(c *cli.Context, out *ops.FetchOutput) error {
	data := []byte(out.Content)
	if out.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(out.ContentBase64)
		if err != nil {
			return outputError(errors.NewInternal(err))
		}
		data = decoded
	}
	_, err := c.App.Writer.Write(data)
	return err
}

// outputError formats error for CLI.
func outputError(err error) error {
	var dErr *errors.DumpError
	if stderrors.As(err, &dErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// isCharDevice reports whether r is an interactive terminal.
func isCharDevice(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// readInput reads the payload piped into the app, up to limit bytes.
// Unlike text input, payload bytes are kept exactly as read.
func readInput(c *cli.Context, limit int64) ([]byte, error) {
	if isCharDevice(c.App.Reader) {
		return nil, errors.NewInvalidRequest("payload must be piped via stdin")
	}
	return readLimited(c.App.Reader, limit)
}

// readLimited reads all of r, failing when it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("payload exceeds %d bytes", limit))
	}
	return data, nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
