package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		hops       int
		want       string
		keepHeader bool
	}{
		{"public peer ignores xff", "203.0.113.9:1234", "1.1.1.1", 1, "203.0.113.9", false},
		{"private peer without hops", "10.0.0.5:1234", "1.1.1.1", 0, "10.0.0.5", false},
		{"single alb takes rightmost", "10.0.0.5:1234", "9.9.9.9, 1.1.1.1", 1, "1.1.1.1", true},
		{"cdn plus alb", "10.0.0.5:1234", "9.9.9.9, 1.1.1.1, 10.0.0.2", 2, "1.1.1.1", true},
		{"too few entries fails closed", "10.0.0.5:1234", "1.1.1.1", 3, "10.0.0.5", false},
		{"garbage entry falls back", "10.0.0.5:1234", "not-an-ip", 1, "10.0.0.5", true},
		{"no xff keeps peer", "192.168.1.4:80", "", 1, "192.168.1.4", false},
		{"malformed remote", "nonsense", "", 0, "nonsense", false},
		{"unparseable host", "host.example:80", "", 0, "0.0.0.0", false},
		{"empty remote", "", "", 0, "0.0.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := resolveClientIP(r, tt.hops); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
			if kept := r.Header.Get("X-Forwarded-For") != ""; kept != tt.keepHeader {
				t.Fatalf("X-Forwarded-For kept = %v, want %v", kept, tt.keepHeader)
			}
		})
	}
}

func TestClientIPWithOptions_StoresInContext(t *testing.T) {
	var got string
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got != "198.51.100.7" {
		t.Fatalf("client ip = %q", got)
	}
}

func TestWithClientIP_EmptyIsNoop(t *testing.T) {
	ctx := WithClientIP(t.Context(), "")
	if ClientIPFromContext(ctx) != "" {
		t.Fatal("empty ip should not be stored")
	}
}
