package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jojje/PageCollect/internal/aggregate"
)

// ErrDuplicateURL is returned by Session.Fetch for a URL that was already
// visited during the same traversal.
var ErrDuplicateURL = errors.New("url already visited")

// Session resolves and fetches the pages of one traversal. It tracks the
// current document location and the set of visited URLs; neither is shared
// between sessions. A Session is not safe for concurrent use.
type Session struct {
	client   Getter
	location string
	visited  map[string]struct{}
}

// NewSession starts a session whose relative references resolve against
// location.
func NewSession(client Getter, location string) *Session {
	return &Session{client: client, location: location, visited: map[string]struct{}{}}
}

// Location is the URL relative references currently resolve against.
func (s *Session) Location() string { return s.location }

// SetLocation changes the resolution base, e.g. to honour a <base href>.
func (s *Session) SetLocation(location string) { s.location = location }

// Visit records rawURL as fetched without fetching it.
func (s *Session) Visit(rawURL string) {
	s.visited[aggregate.URLKey(rawURL)] = struct{}{}
}

// Visited reports whether rawURL was recorded in this session.
func (s *Session) Visited(rawURL string) bool {
	_, ok := s.visited[aggregate.URLKey(rawURL)]
	return ok
}

// Len returns the number of distinct URLs visited.
func (s *Session) Len() int { return len(s.visited) }

// Resolve returns ref in absolute form. References already starting with
// http:// or https:// are returned unchanged; anything else is resolved
// against the current location.
func (s *Session) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref, nil
	}
	base, err := url.Parse(s.location)
	if err != nil || !base.IsAbs() {
		return "", &Error{URL: ref, Reason: fmt.Sprintf("cannot resolve relative url against %q", s.location), Err: err}
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", &Error{URL: ref, Reason: "invalid url", Err: err}
	}
	return base.ResolveReference(rel).String(), nil
}

// Fetch resolves ref, refuses URLs already visited, and GETs the page. A
// redirect into a visited page is refused as a duplicate too, before the
// target is requested when the client honours WithRedirectCheck. Only
// successful fetches are recorded as visited; the location then moves to the
// page's final URL.
func (s *Session) Fetch(ctx context.Context, ref string) (Page, error) {
	abs, err := s.Resolve(ref)
	if err != nil {
		return Page{}, err
	}
	if s.Visited(abs) {
		return Page{}, fmt.Errorf("%w: %s", ErrDuplicateURL, abs)
	}
	log.Debug().Str("url", abs).Msg("fetching page")
	ctx = WithRedirectCheck(ctx, func(target string) error {
		if s.Visited(target) {
			return fmt.Errorf("%w: %s", ErrDuplicateURL, target)
		}
		return nil
	})
	page, err := s.client.Get(ctx, abs)
	if errors.Is(err, ErrDuplicateURL) {
		s.Visit(abs)
		return Page{}, fmt.Errorf("%w: %s redirects to a visited page", ErrDuplicateURL, abs)
	}
	if err != nil {
		return Page{}, err
	}
	s.Visit(abs)
	if page.URL == "" {
		page.URL = abs
	}
	if aggregate.URLKey(page.URL) != aggregate.URLKey(abs) && s.Visited(page.URL) {
		return Page{}, fmt.Errorf("%w: %s (redirected from %s)", ErrDuplicateURL, page.URL, abs)
	}
	s.Visit(page.URL)
	s.location = page.URL
	return page, nil
}
