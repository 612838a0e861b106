package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Document is a parsed page that selectors are evaluated against. It lives for
// one step of a traversal and is not retained afterwards.
type Document struct {
	// URL is the location the document was loaded from.
	URL string

	doc *goquery.Document
}

// Parse decodes body using the charset declared by contentType or sniffed from
// the markup, and parses it into a Document located at pageURL.
func Parse(body []byte, contentType string, pageURL string) (*Document, error) {
	var r io.Reader = bytes.NewReader(body)
	if enc, name, _ := charset.DetermineEncoding(body, contentType); enc != nil && name != "utf-8" {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewDocument(root, pageURL), nil
}

// NewDocument wraps an already parsed node tree.
func NewDocument(root *html.Node, pageURL string) *Document {
	d := goquery.NewDocumentFromNode(root)
	if u, err := url.Parse(pageURL); err == nil {
		d.Url = u
	}
	return &Document{URL: pageURL, doc: d}
}

// Selection exposes the underlying goquery selection for callers writing
// their own extractor functions.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Select returns every element matching m in document order.
func (d *Document) Select(m goquery.Matcher) []Element {
	found := d.doc.FindMatcher(m)
	out := make([]Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, Element{sel: s})
	})
	return out
}

// Find compiles selector and returns the matching elements.
func (d *Document) Find(selector string) ([]Element, error) {
	m, err := compileFilter(selector)
	if err != nil {
		return nil, err
	}
	return d.Select(m), nil
}

// Location returns the URL that relative references on this page resolve
// against: the first <base href> when present, otherwise URL.
func (d *Document) Location() string {
	href, ok := d.doc.Find("base[href]").First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return d.URL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return d.URL
	}
	if d.doc.Url != nil {
		return d.doc.Url.ResolveReference(ref).String()
	}
	return ref.String()
}

// Element is a handle to one matched element.
type Element struct {
	sel *goquery.Selection
}

// Node returns the underlying html node.
func (e Element) Node() *html.Node {
	if e.sel == nil || len(e.sel.Nodes) == 0 {
		return nil
	}
	return e.sel.Nodes[0]
}

// Text returns the trimmed text content of the element and its descendants.
func (e Element) Text() string {
	if e.sel == nil {
		return ""
	}
	return strings.TrimSpace(e.sel.Text())
}

// HTML returns the trimmed inner markup of the element.
func (e Element) HTML() (string, error) {
	if e.sel == nil {
		return "", nil
	}
	s, err := e.sel.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// OuterHTML renders the element itself, including its own tag.
func (e Element) OuterHTML() (string, error) {
	if e.sel == nil {
		return "", nil
	}
	return goquery.OuterHtml(e.sel)
}

// Attr returns the named attribute and whether it was set.
func (e Element) Attr(name string) (string, bool) {
	if e.sel == nil {
		return "", false
	}
	return e.sel.Attr(name)
}

func (e Element) String() string {
	s, _ := e.OuterHTML()
	return s
}

// MarshalJSON encodes the element as its outer markup.
func (e Element) MarshalJSON() ([]byte, error) {
	s, err := e.OuterHTML()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}
