package app

import (
	"time"

	"dario.cat/mergo"
)

// Config holds runtime configuration for the application.
type Config struct {
	// StartURL is page zero. With StartFile set it is only the location the
	// file is parsed at and is never fetched.
	StartURL  string
	StartFile string

	// Selectors
	NextSelector    string
	ContentSelector string

	// Traversal
	SkipCurrent bool
	OnCycle     string
	MaxPages    int

	// Output
	OutputPath string
	Format     string

	// HTTP
	UserAgent    string
	Headers      map[string]string
	Timeout      time.Duration
	MaxRedirects int

	// Telemetry
	OTLPEndpoint string
	OTLPHeaders  map[string]string

	// Behavior
	Progress bool
	Verbose  bool
}

const (
	defaultNextSelector    = "a[rel=next]|href"
	defaultContentSelector = ".content|text"
)

// DefaultConfig returns the settings used for anything left unset by the
// config file, the environment and flags.
func DefaultConfig() Config {
	return Config{
		NextSelector:    defaultNextSelector,
		ContentSelector: defaultContentSelector,
		OnCycle:         "fail",
		OutputPath:      "-",
		Format:          string(FormatJSON),
		UserAgent:       "pagecollect/" + BuildVersion + " (+https://github.com/jojje/PageCollect)",
		Timeout:         30 * time.Second,
		MaxRedirects:    5,
	}
}

// WithDefaults fills every zero field of cfg from DefaultConfig. Fields that
// are already set win.
func WithDefaults(cfg Config) (Config, error) {
	if err := mergo.Merge(&cfg, DefaultConfig()); err != nil {
		return cfg, err
	}
	return cfg, nil
}
