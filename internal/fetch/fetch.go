package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pagecollect/fetch")

// requestedWithHeader is never sent: some origin servers answer differently
// when they believe the request came from a script.
const requestedWithHeader = "X-Requested-With"

// ErrFetchFailed is matched by every error returned from Client.Get.
var ErrFetchFailed = errors.New("fetch failed")

// Error describes a GET that did not complete with a 2xx status.
type Error struct {
	URL string
	// StatusCode is zero for transport level failures.
	StatusCode int
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFetchFailed, e.Err}
	}
	return []error{ErrFetchFailed}
}

// Page is a successfully fetched response body.
type Page struct {
	// URL is the final location after redirects.
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Getter performs a single GET.
type Getter interface {
	Get(ctx context.Context, url string) (Page, error)
}

// Client issues single, non-retried GET requests for pages. It is safe for
// concurrent use; per-traversal state lives in Session.
type Client struct {
	// HTTPClient is copied, never mutated. Nil uses a default client.
	HTTPClient *http.Client
	UserAgent  string
	// Headers are added to every request. X-Requested-With is dropped even
	// when listed here.
	Headers map[string]string
	// PerRequestTimeout bounds each request. Zero means no timeout.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means
	// default (5); negative means redirects are not followed.
	RedirectMaxHops int

	restyOnce sync.Once
	rc        *resty.Client
}

func (c *Client) restyClient() *resty.Client {
	c.restyOnce.Do(func() {
		var rc *resty.Client
		if c.HTTPClient != nil {
			base := *c.HTTPClient
			rc = resty.NewWithClient(&base)
		} else {
			rc = resty.New()
		}
		max := c.RedirectMaxHops
		switch {
		case max == 0:
			max = 5
		case max < 0:
			max = 0
		}
		rc.SetRedirectPolicy(resty.FlexibleRedirectPolicy(max), resty.RedirectPolicyFunc(httpOnlyRedirects))
		if c.PerRequestTimeout > 0 {
			rc.SetTimeout(c.PerRequestTimeout)
		}
		if c.UserAgent != "" {
			rc.SetHeader("User-Agent", c.UserAgent)
		}
		for k, v := range c.Headers {
			rc.SetHeader(k, v)
		}
		rc.SetLogger(restyLogger{})
		rc.SetPreRequestHook(stripRequestedWith)
		c.rc = rc
	})
	return c.rc
}

// stripRequestedWith runs on the raw request right before it is sent, after
// every header source has been applied.
func stripRequestedWith(_ *resty.Client, req *http.Request) error {
	req.Header.Del(requestedWithHeader)
	return nil
}

// restyLogger routes resty's own messages through zerolog. Request errors
// are returned to the caller as well, so they are only logged at debug level.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) { log.Debug().Msgf(format, v...) }
func (restyLogger) Warnf(format string, v ...interface{})  { log.Warn().Msgf(format, v...) }
func (restyLogger) Debugf(format string, v ...interface{}) { log.Debug().Msgf(format, v...) }

type redirectCheckKey struct{}

// WithRedirectCheck returns a context under which Client.Get consults check
// before following each redirect. A non-nil error aborts the request.
func WithRedirectCheck(ctx context.Context, check func(target string) error) context.Context {
	return context.WithValue(ctx, redirectCheckKey{}, check)
}

func httpOnlyRedirects(req *http.Request, _ []*http.Request) error {
	if !isHTTPScheme(req.URL) {
		return errors.New("redirect to unsupported scheme")
	}
	if check, ok := req.Context().Value(redirectCheckKey{}).(func(string) error); ok && check != nil {
		return check(req.URL.String())
	}
	return nil
}

// Get fetches rawURL once. Any non-2xx status or transport failure is
// returned as an *Error.
func (c *Client) Get(ctx context.Context, rawURL string) (Page, error) {
	ctx, span := tracer.Start(ctx, "fetch.Get", trace.WithAttributes(attribute.String("url", rawURL)))
	defer span.End()

	u, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, failed(span, &Error{URL: rawURL, Reason: "invalid url", Err: err})
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(u) {
		return Page{}, failed(span, &Error{URL: rawURL, Reason: fmt.Sprintf("unsupported URL scheme: %q", u.Scheme)})
	}

	start := time.Now()
	res, err := c.restyClient().R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return Page{}, failed(span, &Error{URL: rawURL, Reason: err.Error(), Err: err})
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))
	log.Debug().Str("url", rawURL).Int("status", res.StatusCode()).Dur("took", time.Since(start)).Msg("fetched page")

	if !res.IsSuccess() {
		return Page{}, failed(span, &Error{URL: rawURL, StatusCode: res.StatusCode(), Reason: res.Status()})
	}

	final := rawURL
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}
	return Page{
		URL:         final,
		Body:        res.Body(),
		ContentType: res.Header().Get("Content-Type"),
		StatusCode:  res.StatusCode(),
	}, nil
}

func failed(span trace.Span, err *Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Reason)
	return err
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
