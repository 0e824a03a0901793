package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RevisionSource reports the current content revision digest.
type RevisionSource interface {
	ContentRevision() string
}

// ContentRevision sets X-Content-Revision (first 12 hex chars) on every
// response and tags the span with the full digest.
func ContentRevision(src RevisionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if src == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rev := src.ContentRevision(); rev != "" {
				short := rev
				if len(short) > 12 {
					short = short[:12]
				}
				w.Header().Set("X-Content-Revision", short)
				if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
					span.SetAttributes(attribute.String("content.revision", rev))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
