package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"
	yaml "gopkg.in/yaml.v3"

	"github.com/jojje/PageCollect/internal/collect"
	"github.com/jojje/PageCollect/internal/extract"
)

// ErrInvalidConfig is matched by every error from ValidateConfig.
var ErrInvalidConfig = errors.New("invalid configuration")

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Start struct {
		URL  string `yaml:"url" json:"url"`
		File string `yaml:"file" json:"file"`
	} `yaml:"start" json:"start"`

	Selectors struct {
		Next    string `yaml:"next" json:"next"`
		Content string `yaml:"content" json:"content"`
	} `yaml:"selectors" json:"selectors"`

	SkipCurrent bool   `yaml:"skipCurrent" json:"skipCurrent"`
	OnCycle     string `yaml:"onCycle" json:"onCycle"`
	MaxPages    int    `yaml:"maxPages" json:"maxPages"`

	Output struct {
		Path   string `yaml:"path" json:"path"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"output" json:"output"`

	HTTP struct {
		UserAgent    string            `yaml:"userAgent" json:"userAgent"`
		Headers      map[string]string `yaml:"headers" json:"headers"`
		Timeout      Duration          `yaml:"timeout" json:"timeout"`
		MaxRedirects int               `yaml:"maxRedirects" json:"maxRedirects"`
	} `yaml:"http" json:"http"`

	OTLP struct {
		Endpoint string            `yaml:"endpoint" json:"endpoint"`
		Headers  map[string]string `yaml:"headers" json:"headers"`
	} `yaml:"otlp" json:"otlp"`

	Progress bool `yaml:"progress" json:"progress"`
	Verbose  bool `yaml:"verbose" json:"verbose"`
}

// Duration accepts "30s" style strings in every config format, and plain
// numbers as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch x := v.(type) {
	case nil:
		*d = 0
	case string:
		p, err := time.ParseDuration(strings.TrimSpace(x))
		if err != nil {
			return err
		}
		*d = Duration(p)
	case float64:
		*d = Duration(time.Duration(x * float64(time.Second)))
	case int:
		*d = Duration(time.Duration(x) * time.Second)
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// LoadConfigFile reads YAML, JSON or JSON5 into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".json5":
		if err := unmarshalJSON5(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json5: %w", err)
		}
	default:
		// Try YAML then JSON5, which also accepts plain JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			fc = FileConfig{}
			if jerr := unmarshalJSON5(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json5)", err, jerr)
			}
		}
	}
	return fc, nil
}

// unmarshalJSON5 decodes JSON5 into a generic tree and re-encodes it as JSON
// so that field decoding, including Duration, follows encoding/json rules.
func unmarshalJSON5(b []byte, v any) error {
	var tree any
	if err := json5.Unmarshal(b, &tree); err != nil {
		return err
	}
	plain, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(plain, v)
}

// ApplyFileConfig copies every value set in fc into cfg. It runs first, so
// later layers (env, flags) override what the file provides.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	setString(&cfg.StartURL, fc.Start.URL)
	setString(&cfg.StartFile, fc.Start.File)
	setString(&cfg.NextSelector, fc.Selectors.Next)
	setString(&cfg.ContentSelector, fc.Selectors.Content)
	setString(&cfg.OnCycle, fc.OnCycle)
	setString(&cfg.OutputPath, fc.Output.Path)
	setString(&cfg.Format, fc.Output.Format)
	setString(&cfg.UserAgent, fc.HTTP.UserAgent)
	setString(&cfg.OTLPEndpoint, fc.OTLP.Endpoint)

	if fc.SkipCurrent {
		cfg.SkipCurrent = true
	}
	if fc.Progress {
		cfg.Progress = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	if fc.MaxPages > 0 {
		cfg.MaxPages = fc.MaxPages
	}
	if fc.HTTP.MaxRedirects > 0 {
		cfg.MaxRedirects = fc.HTTP.MaxRedirects
	}
	if fc.HTTP.Timeout > 0 {
		cfg.Timeout = time.Duration(fc.HTTP.Timeout)
	}
	if len(fc.HTTP.Headers) > 0 {
		cfg.Headers = mergeHeaders(cfg.Headers, fc.HTTP.Headers)
	}
	if len(fc.OTLP.Headers) > 0 {
		cfg.OTLPHeaders = mergeHeaders(cfg.OTLPHeaders, fc.OTLP.Headers)
	}
}

// ValidateConfig checks required settings and compiles both selectors so
// that mistakes surface before any request is made.
func ValidateConfig(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateConfig(cfg Config) error {
	start := strings.TrimSpace(cfg.StartURL)
	if start == "" {
		return errors.New("start url is required")
	}
	u, err := url.Parse(start)
	if err != nil || !u.IsAbs() || (!strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https")) {
		return fmt.Errorf("start url %q must be an absolute http(s) url", start)
	}
	if _, err := extract.Normalize(collect.LabelNext, cfg.NextSelector); err != nil {
		return err
	}
	if _, err := extract.Normalize(collect.LabelContent, cfg.ContentSelector); err != nil {
		return err
	}
	if _, err := collect.ParseCyclePolicy(cfg.OnCycle); err != nil {
		return err
	}
	if _, err := ParseFormat(cfg.Format); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return errors.New("output path is required")
	}
	if cfg.MaxPages < 0 || cfg.MaxRedirects < 0 || cfg.Timeout < 0 {
		return errors.New("negative limits are not allowed")
	}
	return nil
}
