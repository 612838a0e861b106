// Package pagecollect collects items from a chain of paginated HTML pages.
//
// Starting from one loaded page, it repeatedly extracts content and the link
// to the next page, fetches that page, and returns the content of every page
// as one flat list in visit order:
//
//	doc, _ := pagecollect.ParseDocument(body, "text/html", "https://example.com/list")
//	items, err := pagecollect.Collect(ctx, nil, doc, "a[rel=next]|href", ".item|text", pagecollect.Options{})
//
// Selectors are either expressions of the form "css filter|mode", where mode
// is text, html or an attribute name, or an ExtractFunc.
package pagecollect

import (
	"context"

	"github.com/jojje/PageCollect/internal/collect"
	"github.com/jojje/PageCollect/internal/extract"
	"github.com/jojje/PageCollect/internal/fetch"
)

type (
	Document        = extract.Document
	Element         = extract.Element
	ExtractFunc     = extract.Func
	SelectorError   = extract.SelectorError
	Options         = collect.Options
	CyclePolicy     = collect.CyclePolicy
	ExtractionError = collect.ExtractionError
	Client          = fetch.Client
	Getter          = fetch.Getter
	FetchError      = fetch.Error
)

const (
	CycleFail = collect.CycleFail
	CycleStop = collect.CycleStop
)

var (
	ErrInvalidSelectorKind   = extract.ErrInvalidSelectorKind
	ErrInvalidSelectorSyntax = extract.ErrInvalidSelectorSyntax
	ErrFetchFailed           = fetch.ErrFetchFailed
	ErrDuplicateURL          = fetch.ErrDuplicateURL
)

// ParseDocument parses an HTML body located at pageURL.
func ParseDocument(body []byte, contentType, pageURL string) (*Document, error) {
	return extract.Parse(body, contentType, pageURL)
}

// Collect follows next links starting from the already loaded start page.
// A nil client uses a default Client.
func Collect(ctx context.Context, client Getter, start *Document, next, content any, opts Options) ([]any, error) {
	return collect.Run(ctx, orDefault(client), start, next, content, opts)
}

// CollectURL fetches startURL first and then behaves like Collect.
func CollectURL(ctx context.Context, client Getter, startURL string, next, content any, opts Options) ([]any, error) {
	return collect.FromURL(ctx, orDefault(client), startURL, next, content, opts)
}

func orDefault(client Getter) Getter {
	if client == nil {
		return &fetch.Client{}
	}
	return client
}
