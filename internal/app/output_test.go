package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jojje/PageCollect/internal/extract"
)

func sampleItems(t *testing.T) []any {
	t.Helper()
	doc, err := extract.Parse([]byte(`<ul><li class="x">One &amp; <b>two</b></li></ul>`), "text/html", "http://example.com/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	els, err := doc.Find("li.x")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	return []any{"plain", els[0], 42, map[string]string{"k": "v"}}
}

func TestWriteItems_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteItems(&buf, FormatText, sampleItems(t), OutputMeta{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "plain\n<li class=\"x\">One &amp; <b>two</b></li>\n42\n{\"k\":\"v\"}\n"
	if buf.String() != want {
		t.Fatalf("text output:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteItems_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteItems(&buf, FormatYAML, []any{"a", "b"}, OutputMeta{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "- a\n- b\n" {
		t.Fatalf("yaml output %q", buf.String())
	}
}

func TestWriteItems_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteItems(&buf, FormatTable, []any{"first", "second"}, OutputMeta{Pages: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// go-pretty upper-cases header and footer by default.
	out := strings.ToLower(buf.String())
	for _, want := range []string{"item", "first", "second", "2 items from 2 pages"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteItems_PDF(t *testing.T) {
	var buf bytes.Buffer
	meta := OutputMeta{StartURL: "http://example.com/", Pages: 1}
	if err := WriteItems(&buf, FormatPDF, []any{"see https://example.com/a", "plain"}, meta); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected a PDF document, got %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestWriteItems_EmptyJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteItems(&buf, FormatJSON, nil, OutputMeta{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" JSONL "); err != nil || f != FormatJSONL {
		t.Fatalf("ParseFormat = %q, %v", f, err)
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
