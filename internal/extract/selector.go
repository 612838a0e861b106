package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Func extracts a value from one page. pageURL is the location of doc and is
// passed so extractors can build absolute links or tag their items.
// Implementations should be deterministic and avoid side effects.
type Func func(doc *Document, pageURL string) (any, error)

// Extraction modes recognized after the '|' of a selector expression. Any
// other mode names an attribute.
const (
	ModeText = "text"
	ModeHTML = "html"
)

var (
	// ErrInvalidSelectorKind reports a selector that is neither a function nor
	// a non-empty string.
	ErrInvalidSelectorKind = errors.New("selector is neither a function nor a css selector string")
	// ErrInvalidSelectorSyntax reports a string selector whose filter or mode
	// could not be parsed.
	ErrInvalidSelectorSyntax = errors.New("invalid css selector extraction expression")
)

// SelectorError identifies which selector argument was rejected.
type SelectorError struct {
	Label    string
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("%s: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Label, e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// Expression is a parsed "<css-filter>|<mode>" selector string.
type Expression struct {
	Filter string
	// Mode is empty when the expression selects raw elements.
	Mode string
}

// The mode may not contain ']' so that attribute operators such as
// a[lang|=en] stay part of the filter.
var expressionRe = regexp.MustCompile(`(?s)^(.+?)(\s*\|\s*[^|\]]+)?$`)

// ParseExpression splits s into its CSS filter and optional extraction mode.
func ParseExpression(s string) (Expression, error) {
	m := expressionRe.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, ErrInvalidSelectorSyntax
	}
	expr := Expression{Filter: strings.TrimSpace(m[1])}
	if m[2] != "" {
		expr.Mode = strings.TrimSpace(strings.Replace(m[2], "|", "", 1))
		if expr.Mode == "" {
			return Expression{}, fmt.Errorf("%w: empty extraction mode", ErrInvalidSelectorSyntax)
		}
		if strings.ContainsFunc(expr.Mode, unicode.IsSpace) {
			return Expression{}, fmt.Errorf("%w: extraction mode %q contains whitespace", ErrInvalidSelectorSyntax, expr.Mode)
		}
	}
	if expr.Filter == "" {
		return Expression{}, fmt.Errorf("%w: empty filter", ErrInvalidSelectorSyntax)
	}
	return expr, nil
}

func (e Expression) String() string {
	if e.Mode == "" {
		return e.Filter
	}
	return e.Filter + "|" + e.Mode
}

// Compile turns a selector expression into an extractor. The CSS filter is
// compiled once and reused for every document the extractor is applied to.
func Compile(s string) (Func, error) {
	expr, err := ParseExpression(s)
	if err != nil {
		return nil, err
	}
	m, err := compileFilter(expr.Filter)
	if err != nil {
		return nil, err
	}
	return expr.extractor(m), nil
}

func compileFilter(filter string) (goquery.Matcher, error) {
	sel, err := cascadia.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelectorSyntax, err)
	}
	return sel, nil
}

func (e Expression) extractor(m goquery.Matcher) Func {
	switch e.Mode {
	case "":
		return func(doc *Document, _ string) (any, error) {
			return doc.Select(m), nil
		}
	case ModeText:
		return func(doc *Document, _ string) (any, error) {
			els := doc.Select(m)
			out := make([]string, 0, len(els))
			for _, el := range els {
				out = append(out, el.Text())
			}
			return out, nil
		}
	case ModeHTML:
		return func(doc *Document, _ string) (any, error) {
			els := doc.Select(m)
			out := make([]string, 0, len(els))
			for _, el := range els {
				h, err := el.HTML()
				if err != nil {
					return nil, fmt.Errorf("render %s: %w", e.Filter, err)
				}
				out = append(out, h)
			}
			return out, nil
		}
	default:
		attr := e.Mode
		return func(doc *Document, _ string) (any, error) {
			els := doc.Select(m)
			out := make([]string, 0, len(els))
			for _, el := range els {
				// Missing attributes keep their slot as "".
				v, _ := el.Attr(attr)
				out = append(out, v)
			}
			return out, nil
		}
	}
}

// Normalize converts a user supplied selector into an extractor. Functions
// are passed through untouched; non-empty strings are compiled as selector
// expressions. label names the argument in returned errors.
func Normalize(label string, selector any) (Func, error) {
	switch s := selector.(type) {
	case Func:
		if s != nil {
			return s, nil
		}
	case func(*Document, string) (any, error):
		if s != nil {
			return s, nil
		}
	case string:
		if s != "" {
			fn, err := Compile(s)
			if err != nil {
				return nil, &SelectorError{Label: label, Selector: s, Err: err}
			}
			return fn, nil
		}
	}
	return nil, &SelectorError{Label: label, Err: ErrInvalidSelectorKind}
}
