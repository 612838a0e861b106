// Package collect follows a chain of "next page" links and gathers the items
// extracted from every page into one flat, ordered result.
//
// Pages are processed strictly one after another: the link to page n+1 is
// only known once page n has been parsed, so the single fetch in flight is the
// only point where a traversal waits.
package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jojje/PageCollect/internal/aggregate"
	"github.com/jojje/PageCollect/internal/extract"
	"github.com/jojje/PageCollect/internal/fetch"
)

var tracer = otel.Tracer("pagecollect/collect")

// Labels identify the two selector arguments in errors.
const (
	LabelNext    = "nextUrlSelector"
	LabelContent = "contentSelector"
)

// CyclePolicy decides what happens when a next link points at a page that was
// already visited in the same traversal.
type CyclePolicy string

const (
	// CycleFail aborts the traversal with fetch.ErrDuplicateURL.
	CycleFail CyclePolicy = "fail"
	// CycleStop ends the traversal normally with the items gathered so far.
	CycleStop CyclePolicy = "stop"
)

// ParseCyclePolicy accepts "fail" or "stop"; empty selects CycleFail.
func ParseCyclePolicy(s string) (CyclePolicy, error) {
	switch CyclePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CycleFail:
		return CycleFail, nil
	case CycleStop:
		return CycleStop, nil
	}
	return "", fmt.Errorf("unknown cycle policy %q (want %q or %q)", s, CycleFail, CycleStop)
}

// Options tunes a traversal. The zero value is ready to use.
type Options struct {
	// SkipCurrent drops the items of the start page. Pages reached by
	// following links are always kept.
	SkipCurrent bool
	// Progress is called after every followed page has been fetched and
	// extracted, with 1 for the first followed link, 2 for the next, and so on.
	// The start page does not trigger it.
	Progress func(page int)
	// OnCycle defaults to CycleFail.
	OnCycle CyclePolicy
	// MaxPages stops the traversal after that many followed pages. Zero means
	// no limit.
	MaxPages int
}

// ExtractionError reports an extractor that failed (or panicked) on a page.
type ExtractionError struct {
	Label string
	URL   string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s failed on %s: %v", e.Label, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Run traverses the chain starting at start, which is treated as already
// loaded: it is not fetched and its URL is the first visited one. next and
// content are selector expressions or extract.Func values; both are checked
// before any request is made.
func Run(ctx context.Context, client fetch.Getter, start *extract.Document, next, content any, opts Options) ([]any, error) {
	nextFn, contentFn, err := normalize(next, content)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, errors.New("collect: nil start document")
	}
	sess := fetch.NewSession(client, start.URL)
	if start.URL != "" {
		sess.Visit(start.URL)
	}
	return run(ctx, sess, start, nextFn, contentFn, opts)
}

// FromURL fetches startURL as the start page and then behaves like Run.
func FromURL(ctx context.Context, client fetch.Getter, startURL string, next, content any, opts Options) ([]any, error) {
	nextFn, contentFn, err := normalize(next, content)
	if err != nil {
		return nil, err
	}
	sess := fetch.NewSession(client, startURL)
	page, err := sess.Fetch(ctx, startURL)
	if err != nil {
		return nil, err
	}
	doc, err := extract.Parse(page.Body, page.ContentType, page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	return run(ctx, sess, doc, nextFn, contentFn, opts)
}

func normalize(next, content any) (extract.Func, extract.Func, error) {
	nextFn, err := extract.Normalize(LabelNext, next)
	if err != nil {
		return nil, nil, err
	}
	contentFn, err := extract.Normalize(LabelContent, content)
	if err != nil {
		return nil, nil, err
	}
	return nextFn, contentFn, nil
}

func run(ctx context.Context, sess *fetch.Session, doc *extract.Document, next, content extract.Func, opts Options) ([]any, error) {
	ctx, span := tracer.Start(ctx, "collect.Run", trace.WithAttributes(attribute.String("start_url", doc.URL)))
	defer span.End()

	var acc aggregate.Accumulator
	for page := 0; ; page++ {
		sess.SetLocation(doc.Location())

		result, err := call(content, LabelContent, doc)
		if err != nil {
			return nil, fail(span, err)
		}
		if page > 0 || !opts.SkipCurrent {
			acc.Add(result)
		}

		raw, err := call(next, LabelNext, doc)
		if err != nil {
			return nil, fail(span, err)
		}
		link, err := nextLink(raw, doc)
		if err != nil {
			return nil, fail(span, err)
		}

		log.Debug().
			Int("page", page).
			Str("url", doc.URL).
			Int("items", len(aggregate.Items(result))).
			Str("next", link.URL).
			Msg("extracted page")
		span.AddEvent("page", trace.WithAttributes(attribute.Int("page", page), attribute.String("url", doc.URL)))

		if page > 0 && opts.Progress != nil {
			opts.Progress(page)
		}

		if !link.OK {
			break
		}
		if opts.MaxPages > 0 && page >= opts.MaxPages {
			log.Info().Int("max_pages", opts.MaxPages).Str("next", link.URL).Msg("page limit reached")
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fail(span, err)
		}

		fetched, err := sess.Fetch(ctx, link.URL)
		if err != nil {
			if errors.Is(err, fetch.ErrDuplicateURL) && opts.OnCycle == CycleStop {
				log.Info().Str("url", link.URL).Msg("next page already visited; stopping")
				break
			}
			return nil, fail(span, err)
		}
		doc, err = extract.Parse(fetched.Body, fetched.ContentType, fetched.URL)
		if err != nil {
			return nil, fail(span, fmt.Errorf("parse %s: %w", fetched.URL, err))
		}
	}

	items := acc.Items()
	span.SetAttributes(attribute.Int("pages", acc.Pages()), attribute.Int("items", len(items)))
	log.Info().Int("pages", sess.Len()).Int("items", len(items)).Msg("collection complete")
	return items, nil
}

// call runs a user extractor, turning both returned errors and panics into
// an *ExtractionError.
func call(fn extract.Func, label string, doc *extract.Document) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &ExtractionError{Label: label, URL: doc.URL, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	result, err = fn(doc, doc.URL)
	if err != nil {
		return nil, &ExtractionError{Label: label, URL: doc.URL, Err: err}
	}
	return result, nil
}

// nextLink applies NextURL to an extractor result. The result may carry user
// methods (String), so it runs under the same recover as the extractor.
func nextLink(raw any, doc *extract.Document) (next Next, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = Next{}
			err = &ExtractionError{Label: LabelNext, URL: doc.URL, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	next, err = NextURL(raw)
	if err != nil {
		return Next{}, &ExtractionError{Label: LabelNext, URL: doc.URL, Err: err}
	}
	return next, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
