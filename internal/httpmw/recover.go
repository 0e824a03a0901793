package httpmw

import (
	"fmt"
	"net/http"

	"github.com/keithlinneman/folio/internal/log"
)

// Recover turns a handler panic into a logged 500. onPanic, when set,
// runs after logging (the metrics package counts panics through it).
// http.ErrAbortHandler is re-panicked so net/http can abort the response.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				logger.Error(ctx, fmt.Errorf("panic: %v", rec), "httpserver panic recovered",
					"request_id", RequestIDFromContext(ctx),
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				)
				if onPanic != nil {
					onPanic()
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
