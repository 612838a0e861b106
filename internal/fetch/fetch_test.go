package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := &Client{UserAgent: "pagecollect-test", PerRequestTimeout: 2 * time.Second}
	page, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.ContentType == "" || string(page.Body) != "<html><body>ok</body></html>" {
		t.Fatalf("expected content type and body, got %q %q", page.ContentType, string(page.Body))
	}
	if page.URL != srv.URL {
		t.Fatalf("page url = %q, want %q", page.URL, srv.URL)
	}
}

func TestGet_StripsRequestedWithHeader(t *testing.T) {
	var gotUA, gotXRW, gotCustom string
	var sawXRW bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")
		_, sawXRW = r.Header["X-Requested-With"]
		gotXRW = r.Header.Get("X-Requested-With")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := &Client{
		UserAgent: "pagecollect-test",
		Headers: map[string]string{
			"X-Requested-With": "XMLHttpRequest",
			"X-Custom":         "yes",
		},
	}
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawXRW || gotXRW != "" {
		t.Fatalf("X-Requested-With must not be sent, got %q", gotXRW)
	}
	if gotUA != "pagecollect-test" {
		t.Fatalf("user agent = %q", gotUA)
	}
	if gotCustom != "yes" {
		t.Fatalf("custom header = %q", gotCustom)
	}
}

func TestGet_NonSuccessStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 2 * time.Second}
	_, err := c.Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if fe.StatusCode != http.StatusBadGateway || fe.Reason != "502 Bad Gateway" {
		t.Fatalf("unexpected error detail: %+v", fe)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt without retry, got %d", calls)
	}
}

func TestGet_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := &Client{PerRequestTimeout: time.Second}
	_, err := c.Get(context.Background(), addr)
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.StatusCode != 0 || fe.Reason == "" {
		t.Fatalf("unexpected error detail: %+v", fe)
	}
}

func TestGet_RejectsNonHTTP(t *testing.T) {
	c := &Client{PerRequestTimeout: 1 * time.Second}
	_, err := c.Get(context.Background(), "file:///etc/hosts")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected error for non-http scheme, got %v", err)
	}
}

func TestGet_RedirectLimit(t *testing.T) {
	// Two chained redirects; with RedirectMaxHops=1 the chain is cut
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/next", http.StatusFound)
		case "/next":
			http.Redirect(w, r, "/last", http.StatusFound)
		default:
			_, _ = w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 2 * time.Second, RedirectMaxHops: 1}
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected redirect limit error")
	}
}

func TestGet_ReportsFinalURLAfterRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		_, _ = w.Write([]byte("<html>new</html>"))
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 2 * time.Second}
	page, err := c.Get(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.URL != srv.URL+"/new" {
		t.Fatalf("final url = %q", page.URL)
	}
}

func TestGet_RedirectCheckAbortsBeforeTarget(t *testing.T) {
	var newHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		newHits++
		_, _ = w.Write([]byte("<html>new</html>"))
	}))
	defer srv.Close()

	stop := errors.New("seen")
	var checked string
	ctx := WithRedirectCheck(context.Background(), func(target string) error {
		checked = target
		return stop
	})
	c := &Client{PerRequestTimeout: 2 * time.Second}
	if _, err := c.Get(ctx, srv.URL+"/old"); !errors.Is(err, stop) {
		t.Fatalf("expected redirect check error, got %v", err)
	}
	if checked != srv.URL+"/new" || newHits != 0 {
		t.Fatalf("checked=%q newHits=%d", checked, newHits)
	}
}

func TestGet_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{}
	_, err := c.Get(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected canceled fetch failure, got %v", err)
	}
}
