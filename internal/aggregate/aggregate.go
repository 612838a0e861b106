package aggregate

import (
	"net/url"
	"reflect"
	"strings"
)

// Accumulator keeps the raw extraction result of every page of a traversal
// in the order the pages were visited.
type Accumulator struct {
	pages []any
}

// Add appends the result extracted from the next page.
func (a *Accumulator) Add(result any) {
	a.pages = append(a.pages, result)
}

// Pages returns how many page results were added.
func (a *Accumulator) Pages() int { return len(a.pages) }

// Items returns every accumulated item, pages in visit order and items in
// extraction order. Items are never de-duplicated.
func (a *Accumulator) Items() []any {
	return Flatten(a.pages)
}

// Flatten concatenates page results one level deep. A slice or array result
// contributes its elements, nil contributes nothing and any other value
// contributes itself.
func Flatten(pages []any) []any {
	out := make([]any, 0, len(pages))
	for _, p := range pages {
		out = append(out, Items(p)...)
	}
	return out
}

// Items returns the items of a single page result.
func Items(result any) []any {
	switch r := result.(type) {
	case nil:
		return nil
	case []any:
		return r
	case []byte:
		return []any{r}
	case string:
		return []any{r}
	}
	v := reflect.ValueOf(result)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = v.Index(i).Interface()
		}
		return out
	}
	return []any{result}
}

// URLKey returns the identity used to decide whether two URLs name the same
// page: the fragment is dropped and the host lower-cased. Unparseable input
// is returned unchanged.
func URLKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	normalizeURL(u)
	return u.String()
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
}
