package collect

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jojje/PageCollect/internal/extract"
)

func TestNextURL(t *testing.T) {
	doc, err := extract.Parse([]byte(`<a id="a" href="/two">2</a><a id="b">none</a>`), "text/html", "http://example.com/")
	require.NoError(t, err)
	withHref, err := doc.Find("#a")
	require.NoError(t, err)
	withoutHref, err := doc.Find("#b")
	require.NoError(t, err)
	u, _ := url.Parse("http://example.com/three")

	cases := []struct {
		name string
		in   any
		want Next
	}{
		{"nil", nil, Next{}},
		{"empty string", "  ", Next{}},
		{"string", " /p/2 ", Next{URL: "/p/2", OK: true}},
		{"string slice takes first", []string{"/a", "/b"}, Next{URL: "/a", OK: true}},
		{"empty slice", []string{}, Next{}},
		{"first of slice blank", []string{"", "/b"}, Next{}},
		{"any slice", []any{"/x"}, Next{URL: "/x", OK: true}},
		{"false", false, Next{}},
		{"element href", withHref[0], Next{URL: "/two", OK: true}},
		{"element slice", withHref, Next{URL: "/two", OK: true}},
		{"element without href", withoutHref, Next{}},
		{"stringer", u, Next{URL: "http://example.com/three", OK: true}},
		{"nil stringer pointer", (*url.URL)(nil), Next{}},
		{"nil stringer in slice", []*url.URL{nil}, Next{}},
		{"array", [1]string{"/arr"}, Next{URL: "/arr", OK: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextURL(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNextURL_Unsupported(t *testing.T) {
	for _, in := range []any{42, true, map[string]string{"href": "/x"}, []any{3.5}} {
		_, err := NextURL(in)
		require.Error(t, err, "%T", in)
	}
}
