package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jojje/PageCollect/internal/app"
	"github.com/jojje/PageCollect/internal/extract"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage")

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and maps the outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	log.Error().Err(err).Msg("run failed")
	return exitCode(err)
}

// exitCode is 2 for bad invocations, configuration or selectors, and 1 for
// anything that went wrong during the traversal.
func exitCode(err error) int {
	var se *extract.SelectorError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, app.ErrInvalidConfig), errors.As(err, &se):
		return exitUsage
	}
	return exitFailure
}

type flags struct {
	next         string
	content      string
	skipCurrent  bool
	onCycle      string
	maxPages     int
	startFile    string
	output       string
	format       string
	userAgent    string
	headers      []string
	timeout      time.Duration
	maxRedirects int
	configPath   string
	envFiles     []string
	progress     bool
	verbose      bool
	otlpEndpoint string
}

func newRootCmd() *cobra.Command {
	var f flags
	defaults := app.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "pagecollect [flags] <start-url>",
		Short: "Collect items from every page of a paginated site",
		Long: `pagecollect starts at one page, extracts content with a selector, follows
the "next page" link found by a second selector and repeats until no next link
is left. The content of all pages is written as one flat list.

Selectors have the form "css filter|mode" where mode is text, html or an
attribute name. Without a mode the matched elements are written as HTML.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return fmt.Errorf("%w: %w", errUsage, err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, &f, args)
			if err != nil {
				return err
			}
			if cfg.Verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	fs := cmd.Flags()
	fs.StringVar(&f.next, "next", defaults.NextSelector, "Selector for the next page link")
	fs.StringVar(&f.content, "content", defaults.ContentSelector, "Selector for the content collected from each page")
	fs.BoolVar(&f.skipCurrent, "skip-current", false, "Do not collect content from the start page")
	fs.StringVar(&f.onCycle, "on-cycle", defaults.OnCycle, "What to do when a next link points to a visited page: fail or stop")
	fs.IntVar(&f.maxPages, "max-pages", 0, "Stop after following this many links (0 = unlimited)")
	fs.StringVar(&f.startFile, "start-file", "", "Parse this local HTML file as the start page, located at <start-url>")
	fs.StringVarP(&f.output, "output", "o", defaults.OutputPath, "Output path, - for stdout")
	fs.StringVar(&f.format, "format", defaults.Format, "Output format: json, jsonl, text, yaml, table or pdf")
	fs.StringVar(&f.userAgent, "user-agent", defaults.UserAgent, "User-Agent header for page requests")
	fs.StringArrayVar(&f.headers, "header", nil, "Extra request header as Key=Value (repeatable)")
	fs.DurationVar(&f.timeout, "timeout", defaults.Timeout, "Per-request timeout (0 = none)")
	fs.IntVar(&f.maxRedirects, "max-redirects", defaults.MaxRedirects, "Maximum redirects followed per request (0 = do not follow)")
	fs.StringVar(&f.configPath, "config", "", "Config file (YAML, JSON or JSON5)")
	fs.StringArrayVar(&f.envFiles, "env-file", []string{".env"}, "Dotenv file loaded before reading PAGECOLLECT_* variables (repeatable)")
	fs.BoolVar(&f.progress, "progress", false, "Show a progress spinner on stderr")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Verbose logging")
	fs.StringVar(&f.otlpEndpoint, "otlp.endpoint", "", "OTLP/HTTP trace endpoint, e.g. http://localhost:4318/v1/traces")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.VersionString())
		},
	}
}

// buildConfig layers config file and environment, fills the gaps from
// defaults, then applies explicitly set flags. Flags come last so an explicit
// zero (--timeout 0, --max-redirects 0) is kept.
func buildConfig(cmd *cobra.Command, f *flags, args []string) (app.Config, error) {
	var cfg app.Config
	if f.configPath != "" {
		fc, err := app.LoadConfigFile(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("%w: config file: %w", app.ErrInvalidConfig, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.LoadEnvFiles(f.envFiles...); err != nil {
		return cfg, fmt.Errorf("%w: %w", app.ErrInvalidConfig, err)
	}
	app.ApplyEnvOverrides(&cfg)
	cfg, err := app.WithDefaults(cfg)
	if err != nil {
		return cfg, err
	}

	fs := cmd.Flags()
	if fs.Changed("next") {
		cfg.NextSelector = f.next
	}
	if fs.Changed("content") {
		cfg.ContentSelector = f.content
	}
	if fs.Changed("skip-current") {
		cfg.SkipCurrent = f.skipCurrent
	}
	if fs.Changed("on-cycle") {
		cfg.OnCycle = f.onCycle
	}
	if fs.Changed("max-pages") {
		cfg.MaxPages = f.maxPages
	}
	if fs.Changed("start-file") {
		cfg.StartFile = f.startFile
	}
	if fs.Changed("output") {
		cfg.OutputPath = f.output
	}
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("user-agent") {
		cfg.UserAgent = f.userAgent
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fs.Changed("max-redirects") {
		cfg.MaxRedirects = f.maxRedirects
	}
	if fs.Changed("progress") {
		cfg.Progress = f.progress
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if fs.Changed("otlp.endpoint") {
		cfg.OTLPEndpoint = f.otlpEndpoint
	}
	if fs.Changed("header") {
		h, err := app.ParseHeaders(f.headers)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", errUsage, err)
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(h))
		}
		for k, v := range h {
			cfg.Headers[k] = v
		}
	}
	if len(args) == 1 {
		cfg.StartURL = args[0]
	}
	return cfg, nil
}

func run(ctx context.Context, cfg app.Config, stdout, stderr io.Writer) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	a.Stdout = stdout
	a.Stderr = stderr

	return a.Run(ctx)
}
