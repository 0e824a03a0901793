package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithlinneman/folio/internal/httpmw"
)

func newTestLimiter(t *testing.T, opts ...Option) *IPLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	all := append([]Option{WithRate(10, 5), WithTTL(100 * time.Millisecond)}, opts...)
	return New(ctx, all...)
}

func TestDefaults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := New(ctx)
	if l.perSecond != 10 || l.burst != 30 || l.ttl != 5*time.Minute || l.maxVisitors != 100000 {
		t.Fatalf("defaults = %v/%d/%s/%d", l.perSecond, l.burst, l.ttl, l.maxVisitors)
	}
}

func TestAllow_BurstThenReject(t *testing.T) {
	l := newTestLimiter(t, WithRate(1, 5))
	for i := 0; i < 5; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.allow("1.2.3.4") {
		t.Fatal("request past burst should be denied")
	}
	if !l.allow("5.6.7.8") {
		t.Fatal("other IP has its own bucket")
	}
}

func TestAllow_Refills(t *testing.T) {
	l := newTestLimiter(t, WithRate(50, 1))
	l.allow("ip")
	if l.allow("ip") {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(40 * time.Millisecond)
	if !l.allow("ip") {
		t.Fatal("bucket should have refilled")
	}
}

func TestDenialHooks(t *testing.T) {
	var first, every int
	l := newTestLimiter(t, WithRate(0.001, 1),
		WithOnFirstDenied(func(string) { first++ }),
		WithOnDenied(func(string) { every++ }),
	)
	for i := 0; i < 4; i++ {
		l.allow("9.9.9.9")
	}
	if first != 1 || every != 3 {
		t.Fatalf("first=%d every=%d", first, every)
	}
}

func TestCleanup_EvictsIdleAndResetsLogged(t *testing.T) {
	var first int
	l := newTestLimiter(t, WithRate(0.001, 1), WithOnFirstDenied(func(string) { first++ }))
	l.allow("a")
	l.allow("a")

	deadline := time.Now().Add(2 * time.Second)
	for l.size() != 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if l.size() != 0 {
		t.Fatal("idle visitor was not evicted")
	}
	l.allow("a")
	l.allow("a")
	if first != 2 {
		t.Fatalf("first-denial hook should fire again after eviction, got %d", first)
	}
}

func TestMaxVisitors(t *testing.T) {
	var capacity, denied int
	l := newTestLimiter(t, WithRate(100, 100), WithMaxVisitors(3),
		WithOnCapacity(func() { capacity++ }),
		WithOnDenied(func(string) { denied++ }),
	)
	for i := 1; i <= 3; i++ {
		if !l.allow(fmt.Sprintf("10.0.0.%d", i)) {
			t.Fatalf("ip %d should fit", i)
		}
	}
	if l.allow("10.0.0.99") || l.allow("10.0.0.98") {
		t.Fatal("new IPs should be denied at capacity")
	}
	if !l.allow("10.0.0.1") {
		t.Fatal("known IP should still be served at capacity")
	}
	if capacity != 1 || denied != 2 {
		t.Fatalf("capacity=%d denied=%d", capacity, denied)
	}
}

func TestMaxVisitors_ZeroDisablesBound(t *testing.T) {
	l := newTestLimiter(t, WithRate(100, 100), WithMaxVisitors(0))
	for i := 0; i < 500; i++ {
		if !l.allow(fmt.Sprintf("ip-%d", i)) {
			t.Fatalf("ip %d denied with no bound", i)
		}
	}
}

func serve(h http.Handler, ip, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r = r.WithContext(httpmw.WithClientIP(r.Context(), ip))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestMiddleware(t *testing.T) {
	var reached atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached.Add(1) })
	l := newTestLimiter(t, WithRate(0.001, 2), WithExempt(func(r *http.Request) bool { return r.URL.Path == "/-/ready" }))
	h := l.Middleware(next)

	serve(h, "1.1.1.1", "/")
	serve(h, "1.1.1.1", "/")
	rec := serve(h, "1.1.1.1", "/")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "30" {
		t.Fatalf("status=%d retry=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if rec.Body.String() != `{"error":"too many requests"}` {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if reached.Load() != 2 {
		t.Fatalf("handler reached %d times", reached.Load())
	}
	if rec := serve(h, "1.1.1.1", "/-/ready"); rec.Code != http.StatusOK {
		t.Fatalf("exempt path limited: %d", rec.Code)
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := newTestLimiter(t, WithRate(1000, 1000), WithMaxVisitors(50))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				l.allow(fmt.Sprintf("10.%d.0.%d", g, i%20))
			}
		}(g)
	}
	wg.Wait()
	if n := l.size(); n > 50 {
		t.Fatalf("visitor map exceeded bound: %d", n)
	}
}
