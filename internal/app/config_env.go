package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envPrefix namespaces every environment variable the CLI reads.
const envPrefix = "PAGECOLLECT_"

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding variables are set. Env takes precedence over values from a
// config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.StartURL, "START_URL")
	setString(&cfg.StartFile, "START_FILE")
	setString(&cfg.NextSelector, "NEXT")
	setString(&cfg.ContentSelector, "CONTENT")
	setString(&cfg.OnCycle, "ON_CYCLE")
	setString(&cfg.OutputPath, "OUTPUT")
	setString(&cfg.Format, "FORMAT")
	setString(&cfg.UserAgent, "USER_AGENT")
	setString(&cfg.OTLPEndpoint, "OTLP_ENDPOINT")
	// The standard OpenTelemetry variable is honoured as a fallback.
	if cfg.OTLPEndpoint == "" {
		if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")); v != "" {
			cfg.OTLPEndpoint = v
		}
	}

	setInt := func(dst *int, key string) {
		if s := strings.TrimSpace(os.Getenv(envPrefix + key)); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n >= 0 {
				*dst = n
			}
		}
	}
	setInt(&cfg.MaxPages, "MAX_PAGES")
	setInt(&cfg.MaxRedirects, "MAX_REDIRECTS")

	if s := os.Getenv(envPrefix + "TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.Timeout = d
		}
	}

	// HEADERS is a comma separated list of Key=Value pairs.
	if s := strings.TrimSpace(os.Getenv(envPrefix + "HEADERS")); s != "" {
		if h, err := ParseHeaders(strings.Split(s, ",")); err == nil {
			cfg.Headers = mergeHeaders(cfg.Headers, h)
		}
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envPrefix + key))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.SkipCurrent, "SKIP_CURRENT")
	setBool(&cfg.Progress, "PROGRESS")
	setBool(&cfg.Verbose, "VERBOSE")
}

// ParseHeaders turns Key=Value pairs into a header map. Keys keep their case;
// the HTTP layer canonicalizes them.
func ParseHeaders(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, &HeaderError{Pair: p}
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// HeaderError reports a header that is not in Key=Value form.
type HeaderError struct {
	Pair string
}

func (e *HeaderError) Error() string {
	return "header " + strconv.Quote(e.Pair) + " is not in Key=Value form"
}

func mergeHeaders(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
