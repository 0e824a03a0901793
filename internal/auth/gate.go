package auth

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/folio/internal/apiresp"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/xerrors"
)

// Decision outcomes reported to GateMetrics.
const (
	OutcomeAccepted     = "accepted"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
)

// GateMetrics is implemented by the metrics package.
type GateMetrics interface {
	IncAuthDecision(outcome string)
}

type GateOptions struct {
	Verifier  Verifier
	Metrics   GateMetrics
	Responder apiresp.Responder
}

type Gate struct {
	verifier Verifier
	metrics  GateMetrics
	resp     apiresp.Responder
}

func NewGate(opts GateOptions) (*Gate, error) {
	if opts.Verifier == nil {
		return nil, xerrors.New("auth gate: Verifier is required")
	}
	return &Gate{verifier: opts.Verifier, metrics: opts.Metrics, resp: opts.Responder}, nil
}

// Authenticate requires a valid bearer token. The wrapped handler runs
// only with a User in the context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := bearerToken(r)
		if !ok {
			g.reject(w, r, xerrors.E(xerrors.KindUnauthorized, "missing bearer token"))
			return
		}
		u, err := g.verifier.Verify(ctx, token)
		if err != nil {
			if xerrors.KindOf(err) == xerrors.KindInternal {
				// key material unavailable; not the caller's fault
				g.resp.Error(ctx, w, err)
				return
			}
			log.FromContext(ctx).Info(ctx, "admin token rejected", "reason", err.Error())
			g.reject(w, r, err)
			return
		}
		g.record(OutcomeAccepted)

		ctx = WithUser(ctx, u)
		ctx = log.WithContext(ctx, log.FromContext(ctx).With("user_id", u.ID, "user_role", u.Role))
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(attribute.String("enduser.id", u.ID), attribute.String("enduser.role", u.Role))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole answers 403 unless the authenticated user holds one of roles.
// It must be mounted inside Authenticate; without a user it answers 401.
func (g *Gate) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				g.reject(w, r, xerrors.E(xerrors.KindUnauthorized, "authentication required"))
				return
			}
			if !HasRole(u, roles...) {
				g.record(OutcomeForbidden)
				g.resp.Error(r.Context(), w, xerrors.E(xerrors.KindForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	g.record(OutcomeUnauthorized)
	w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
	g.resp.Error(r.Context(), w, err)
}

func (g *Gate) record(outcome string) {
	if g.metrics != nil {
		g.metrics.IncAuthDecision(outcome)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
