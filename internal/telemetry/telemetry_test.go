package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), "pagecollect-test", Config{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if tel.Enabled() {
		t.Fatalf("expected telemetry disabled without endpoint")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetup_ExportsSpansOnShutdown(t *testing.T) {
	var posts atomic.Int64
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			posts.Add(1)
			auth.Store(r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	tel, err := Setup(context.Background(), "pagecollect-test", Config{
		Endpoint: srv.URL + "/v1/traces",
		Headers:  map[string]string{"Authorization": "Bearer t"},
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !tel.Enabled() {
		t.Fatalf("expected telemetry enabled")
	}
	_, span := otel.Tracer("test").Start(context.Background(), "unit")
	span.End()

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if posts.Load() == 0 {
		t.Fatalf("expected spans to be exported")
	}
	if got, _ := auth.Load().(string); got != "Bearer t" {
		t.Fatalf("authorization header = %q", got)
	}
}
