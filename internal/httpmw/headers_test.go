package httpmw

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, kv := range securityHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("%s = %q", kv[0], got)
		}
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("X-Frame-Options missing")
	}
}

type fixedRevision string

func (f fixedRevision) ContentRevision() string { return string(f) }

func TestContentRevision(t *testing.T) {
	rec := httptest.NewRecorder()
	ContentRevision(fixedRevision("0123456789abcdef0123"))(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("X-Content-Revision"); got != "0123456789ab" {
		t.Fatalf("header = %q", got)
	}

	rec = httptest.NewRecorder()
	ContentRevision(fixedRevision(""))(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := rec.Header()["X-Content-Revision"]; ok {
		t.Fatal("empty revision should not set header")
	}

	rec = httptest.NewRecorder()
	ContentRevision(nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatal("nil source should pass through")
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this is far too long")))

	var mbe *http.MaxBytesError
	if !errors.As(readErr, &mbe) {
		t.Fatalf("err = %v, want *http.MaxBytesError", readErr)
	}
}

func TestTraceResponseHeaders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	ctx, span := tp.Tracer("test").Start(t.Context(), "req")
	defer span.End()

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	TraceResponseHeaders("", "")(okHandler).ServeHTTP(rec, r)

	if rec.Header().Get("X-Trace-Id") != span.SpanContext().TraceID().String() {
		t.Fatalf("trace header = %q", rec.Header().Get("X-Trace-Id"))
	}
	if rec.Header().Get("X-Span-Id") == "" {
		t.Fatal("span header missing")
	}

	rec = httptest.NewRecorder()
	TraceResponseHeaders("", "")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("no header expected without a span")
	}
}
