package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/folio/internal/health"
	"github.com/keithlinneman/folio/internal/httpmw"
	"github.com/keithlinneman/folio/internal/log"
)

const (
	DefaultPort         = 8080
	DefaultMaxBodyBytes = 1 << 20
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler

	Health    health.Probe
	Readiness health.Probe

	// APIRoutes mounts the JSON APIs; SiteHandler answers everything
	// the router does not match.
	APIRoutes   func(chi.Router)
	SiteHandler http.Handler

	// Revision feeds the X-Content-Revision header when set.
	Revision     httpmw.RevisionSource
	ClientIPOpts httpmw.ClientIPOptions
	MaxBodyBytes int64
}

func (o *Options) logger() log.Logger {
	if o.Logger == nil {
		return log.Nop()
	}
	return o.Logger
}
