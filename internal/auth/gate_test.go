package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keithlinneman/folio/internal/apiresp"
	"github.com/keithlinneman/folio/internal/xerrors"
)

type stubVerifier struct {
	user  *User
	err   error
	calls int
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

type countingMetrics map[string]int

func (c countingMetrics) IncAuthDecision(outcome string) { c[outcome]++ }

type reachedHandler struct {
	reached bool
	user    *User
}

func (h *reachedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.reached = true
	h.user, _ = UserFromContext(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func newTestGate(t *testing.T, v Verifier, m GateMetrics) *Gate {
	t.Helper()
	g, err := NewGate(GateOptions{Verifier: v, Metrics: m})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func serveWithAuth(h http.Handler, authz string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/admin/content", nil)
	if authz != "" {
		r.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) apiresp.Envelope {
	t.Helper()
	var env apiresp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v (%q)", err, rec.Body.String())
	}
	return env
}

func TestNewGate_RequiresVerifier(t *testing.T) {
	if _, err := NewGate(GateOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestAuthenticate_AcceptsValidToken(t *testing.T) {
	v := &stubVerifier{user: &User{ID: "u1", Role: RoleAdmin}}
	m := countingMetrics{}
	next := &reachedHandler{}

	rec := serveWithAuth(newTestGate(t, v, m).Authenticate(next), "Bearer good")

	if rec.Code != http.StatusNoContent || !next.reached || next.user.ID != "u1" {
		t.Fatalf("status=%d reached=%v user=%+v", rec.Code, next.reached, next.user)
	}
	if m[OutcomeAccepted] != 1 {
		t.Fatalf("metrics = %v", m)
	}
}

func TestAuthenticate_RejectsWithoutReachingHandler(t *testing.T) {
	tests := map[string]struct {
		header    string
		verifyErr error
		verified  bool
	}{
		"no header":     {header: ""},
		"wrong scheme":  {header: "Basic dXNlcjpwYXNz"},
		"empty token":   {header: "Bearer   "},
		"invalid token": {header: "bearer expired", verifyErr: xerrors.E(xerrors.KindUnauthorized, "invalid or expired token"), verified: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v := &stubVerifier{err: tt.verifyErr}
			m := countingMetrics{}
			next := &reachedHandler{}

			rec := serveWithAuth(newTestGate(t, v, m).Authenticate(next), tt.header)

			if next.reached {
				t.Fatal("handler reached on rejected request")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d", rec.Code)
			}
			env := envelope(t, rec)
			if env.Success || env.Code != apiresp.CodeUnauthorized {
				t.Fatalf("env = %+v", env)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("missing WWW-Authenticate")
			}
			if (v.calls > 0) != tt.verified {
				t.Fatalf("verifier calls = %d", v.calls)
			}
			if m[OutcomeUnauthorized] != 1 {
				t.Fatalf("metrics = %v", m)
			}
		})
	}
}

func TestAuthenticate_KeyFailureIs500(t *testing.T) {
	v := &stubVerifier{err: xerrors.WrapKind(errors.New("kms down"), xerrors.KindInternal, "load token key")}
	next := &reachedHandler{}
	rec := serveWithAuth(newTestGate(t, v, nil).Authenticate(next), "Bearer t")
	if rec.Code != http.StatusInternalServerError || next.reached {
		t.Fatalf("status=%d reached=%v", rec.Code, next.reached)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		role   string
		status int
	}{
		{RoleAdmin, http.StatusNoContent},
		{RoleEditor, http.StatusNoContent},
		{RoleAuthenticated, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			m := countingMetrics{}
			g := newTestGate(t, &stubVerifier{user: &User{ID: "u", Role: tt.role}}, m)
			next := &reachedHandler{}
			h := g.Authenticate(g.RequireRole(RoleAdmin, RoleEditor)(next))

			rec := serveWithAuth(h, "Bearer t")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusForbidden {
				if next.reached || envelope(t, rec).Code != apiresp.CodeForbidden || m[OutcomeForbidden] != 1 {
					t.Fatalf("forbidden path: reached=%v metrics=%v", next.reached, m)
				}
			}
		})
	}
}

func TestRequireRole_WithoutAuthenticate(t *testing.T) {
	g := newTestGate(t, &stubVerifier{}, nil)
	next := &reachedHandler{}
	rec := serveWithAuth(g.RequireRole(RoleAdmin)(next), "")
	if rec.Code != http.StatusUnauthorized || next.reached {
		t.Fatalf("status=%d reached=%v", rec.Code, next.reached)
	}
}

func TestHasRole(t *testing.T) {
	if HasRole(nil, RoleAdmin) {
		t.Fatal("nil user has no role")
	}
	if !HasRole(&User{Role: RoleEditor}, RoleAdmin, RoleEditor) {
		t.Fatal("editor should match")
	}
}
