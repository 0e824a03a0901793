package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/keithlinneman/folio/internal/xerrors"
)

type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// OK always passes.
var OK CheckFunc = func(context.Context) error { return nil }

// All passes when every non-nil probe passes and returns the first failure.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Named prefixes failures with name and bounds the check by timeout
// (no bound when timeout <= 0).
func Named(name string, timeout time.Duration, fn func(context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			return xerrors.Wrap(err, name)
		}
		return nil
	}
}

// ShutdownGate fails readiness once Close is called so load balancers
// drain the instance before the listeners stop.
type ShutdownGate struct {
	closed atomic.Bool
}

func (g *ShutdownGate) Close()         { g.closed.Store(true) }
func (g *ShutdownGate) Draining() bool { return g.closed.Load() }

func (g *ShutdownGate) Check(context.Context) error {
	if g.closed.Load() {
		return xerrors.New("shutting down")
	}
	return nil
}

// Handler answers 200 with okBody when p passes and 503 with the failure
// otherwise. A nil probe always passes.
func Handler(okBody string, p Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error() + "\n"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(okBody + "\n"))
	}
}
