package collect

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jojje/PageCollect/internal/extract"
)

// Next is the outcome of reading the next link of a page.
type Next struct {
	URL string
	// OK is false when the page has no next link and the traversal ends.
	OK bool
}

// NextURL interprets the value returned by the next-link extractor. A
// sequence contributes its first element only. Nil, false, empty sequences
// and blank strings mean there is no next page. Elements yield their href
// attribute.
func NextURL(raw any) (Next, error) {
	switch v := raw.(type) {
	case []string:
		if len(v) == 0 {
			return Next{}, nil
		}
		return link(v[0]), nil
	case []extract.Element:
		if len(v) == 0 {
			return Next{}, nil
		}
		return single(v[0])
	case []any:
		if len(v) == 0 {
			return Next{}, nil
		}
		return single(v[0])
	case []byte:
		return link(string(v)), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return Next{}, nil
		}
		return single(rv.Index(0).Interface())
	}
	return single(raw)
}

func single(v any) (Next, error) {
	switch s := v.(type) {
	case nil:
		return Next{}, nil
	case string:
		return link(s), nil
	case bool:
		if !s {
			return Next{}, nil
		}
	case extract.Element:
		href, _ := s.Attr("href")
		return link(href), nil
	case *extract.Element:
		if s == nil {
			return Next{}, nil
		}
		href, _ := s.Attr("href")
		return link(href), nil
	case fmt.Stringer:
		if isNilPointer(s) {
			return Next{}, nil
		}
		return link(s.String()), nil
	}
	return Next{}, fmt.Errorf("next link has unsupported type %T", v)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func link(s string) Next {
	s = strings.TrimSpace(s)
	if s == "" {
		return Next{}
	}
	return Next{URL: s, OK: true}
}
