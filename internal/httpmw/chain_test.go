package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func tag(name string, order *[]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChain_FirstIsOutermost(t *testing.T) {
	var order []string
	h := Chain(okHandler, tag("a", &order), nil, tag("b", &order), tag("c", &order))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,c" {
		t.Fatalf("order = %s", got)
	}
}

func TestChain_Empty(t *testing.T) {
	rec := httptest.NewRecorder()
	Chain(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
