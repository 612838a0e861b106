package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jojje/PageCollect/internal/collect"
	"github.com/jojje/PageCollect/internal/extract"
	"github.com/jojje/PageCollect/internal/fetch"
	"github.com/jojje/PageCollect/internal/telemetry"
)

type App struct {
	cfg    Config
	client *fetch.Client
	tel    telemetry.Telemetry

	// Stdout receives the output when OutputPath is "-"; Stderr the progress
	// spinner. Both default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// New validates cfg and prepares the HTTP client and telemetry. cfg should
// already carry defaults (see WithDefaults).
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	tel, err := telemetry.Setup(ctx, "pagecollect", telemetry.Config{Endpoint: cfg.OTLPEndpoint, Headers: cfg.OTLPHeaders})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	hops := cfg.MaxRedirects
	if hops == 0 {
		hops = -1
	}
	a := &App{
		cfg: cfg,
		tel: tel,
		client: &fetch.Client{
			HTTPClient:        newPageHTTPClient(),
			UserAgent:         cfg.UserAgent,
			Headers:           cfg.Headers,
			PerRequestTimeout: cfg.Timeout,
			RedirectMaxHops:   hops,
		},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	return a, nil
}

// Close flushes telemetry.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown failed")
	}
}

// Run performs one traversal and writes the collected items.
func (a *App) Run(ctx context.Context) error {
	policy, err := collect.ParseCyclePolicy(a.cfg.OnCycle)
	if err != nil {
		return err
	}
	format, err := ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}

	var bar *progress
	if a.cfg.Progress {
		bar = newProgress(a.Stderr)
		bar.start()
	}
	followed := 0
	opts := collect.Options{
		SkipCurrent: a.cfg.SkipCurrent,
		OnCycle:     policy,
		MaxPages:    a.cfg.MaxPages,
		Progress: func(page int) {
			followed = page
			bar.update(page)
		},
	}

	start := time.Now()
	items, err := a.collect(ctx, opts)
	bar.stop()
	if err != nil {
		return err
	}
	log.Info().
		Int("items", len(items)).
		Int("pages", followed+1).
		Dur("took", time.Since(start)).
		Msg("traversal finished")

	return a.write(items, format, OutputMeta{StartURL: a.cfg.StartURL, Pages: followed + 1})
}

func (a *App) collect(ctx context.Context, opts collect.Options) ([]any, error) {
	if a.cfg.StartFile == "" {
		return collect.FromURL(ctx, a.client, a.cfg.StartURL, a.cfg.NextSelector, a.cfg.ContentSelector, opts)
	}
	body, err := os.ReadFile(a.cfg.StartFile)
	if err != nil {
		return nil, fmt.Errorf("read start file: %w", err)
	}
	doc, err := extract.Parse(body, "", a.cfg.StartURL)
	if err != nil {
		return nil, fmt.Errorf("parse start file: %w", err)
	}
	log.Debug().Str("file", a.cfg.StartFile).Str("url", a.cfg.StartURL).Msg("using local start page")
	return collect.Run(ctx, a.client, doc, a.cfg.NextSelector, a.cfg.ContentSelector, opts)
}

func (a *App) write(items []any, format Format, meta OutputMeta) error {
	if a.cfg.OutputPath == "-" {
		return WriteItems(a.Stdout, format, items, meta)
	}
	f, err := os.Create(a.cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := WriteItems(f, format, items, meta); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", a.cfg.OutputPath).Str("format", string(format)).Msg("wrote output")
	return nil
}
