package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	yaml "gopkg.in/yaml.v3"

	"github.com/jojje/PageCollect/internal/extract"
)

// Format selects how collected items are written.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatText  Format = "text"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
	FormatPDF   Format = "pdf"
)

var formats = []Format{FormatJSON, FormatJSONL, FormatText, FormatYAML, FormatTable, FormatPDF}

// ParseFormat accepts one of the supported format names, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(formats))
	for i, known := range formats {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(names, ", "))
}

// WriteItems renders items in the given format. Matched elements are written
// as their outer HTML.
func WriteItems(w io.Writer, f Format, items []any, meta OutputMeta) error {
	plain := plainItems(items)
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(plain)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, it := range plain {
			if err := enc.Encode(it); err != nil {
				return err
			}
		}
		return nil
	case FormatText:
		bw := bufio.NewWriter(w)
		for _, it := range plain {
			if _, err := fmt.Fprintln(bw, textOf(it)); err != nil {
				return err
			}
		}
		return bw.Flush()
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plain); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"#", "Item"})
		for i, it := range plain {
			t.AppendRow(table.Row{i + 1, textOf(it)})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d items from %d pages", len(plain), meta.Pages)})
		t.Render()
		return nil
	case FormatPDF:
		return writeItemsPDF(w, plain, meta)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// OutputMeta describes the traversal an output was produced from.
type OutputMeta struct {
	StartURL string
	Pages    int
}

// plainItems replaces element handles by their outer HTML so every encoder
// sees plain values.
func plainItems(items []any) []any {
	out := make([]any, len(items))
	for i, it := range items {
		switch v := it.(type) {
		case extract.Element:
			s, err := v.OuterHTML()
			if err != nil {
				s = v.Text()
			}
			out[i] = s
		case *extract.Element:
			if v == nil {
				out[i] = nil
				continue
			}
			s, err := v.OuterHTML()
			if err != nil {
				s = v.Text()
			}
			out[i] = s
		case []byte:
			out[i] = string(v)
		default:
			out[i] = it
		}
	}
	return out
}

// textOf renders one plain item on a single logical line. Strings are
// written as-is; structured values fall back to compact JSON.
func textOf(it any) string {
	switch v := it.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Sprint(it)
	}
	return string(b)
}
