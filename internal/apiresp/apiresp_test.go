package apiresp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keithlinneman/folio/internal/frontmatter"
	"github.com/keithlinneman/folio/internal/xerrors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind   xerrors.Kind
		status int
		code   string
	}{
		{xerrors.KindValidation, 400, CodeValidation},
		{xerrors.KindNotFound, 404, CodeNotFound},
		{xerrors.KindUnauthorized, 401, CodeUnauthorized},
		{xerrors.KindForbidden, 403, CodeForbidden},
		{xerrors.KindDuplicate, 409, CodeDuplicate},
		{xerrors.KindInternal, 500, CodeInternal},
		{"", 500, CodeInternal},
	}
	for _, tt := range tests {
		status, code := StatusFor(tt.kind)
		if status != tt.status || code != tt.code {
			t.Errorf("StatusFor(%q) = %d %s", tt.kind, status, code)
		}
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	Responder{}.OK(context.Background(), rec, http.StatusCreated, map[string]string{"slug": "x"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
	env := decode(t, rec)
	if !env.Success || env.Error != "" || env.Code != "" {
		t.Fatalf("env = %+v", env)
	}
}

func TestError_ClassifiedMessageShown(t *testing.T) {
	rec := httptest.NewRecorder()
	err := xerrors.WrapKind(errors.New("sql: no rows"), xerrors.KindNotFound, "content not found")
	Responder{}.Error(context.Background(), rec, err)

	env := decode(t, rec)
	if rec.Code != 404 || env.Success || env.Code != CodeNotFound || env.Error != "content not found" {
		t.Fatalf("status=%d env=%+v", rec.Code, env)
	}
}

func TestError_InternalHidden(t *testing.T) {
	err := errors.New("pq: connection refused")

	rec := httptest.NewRecorder()
	Responder{}.Error(context.Background(), rec, err)
	if env := decode(t, rec); env.Error != InternalMessage || rec.Code != 500 {
		t.Fatalf("hidden: status=%d env=%+v", rec.Code, env)
	}

	rec = httptest.NewRecorder()
	Responder{ExposeInternal: true}.Error(context.Background(), rec, err)
	if env := decode(t, rec); env.Error != err.Error() {
		t.Fatalf("exposed: env=%+v", env)
	}
}

func TestError_ValidationDetails(t *testing.T) {
	ve := &frontmatter.ValidationError{}
	ve.Add("title", frontmatter.ProblemMissing)
	ve.Add("tags", frontmatter.ProblemWrongType)

	rec := httptest.NewRecorder()
	Responder{}.Error(context.Background(), rec, xerrors.Wrap(ve, "create"))

	env := decode(t, rec)
	if rec.Code != 400 || env.Code != CodeValidation || len(env.Details) != 2 {
		t.Fatalf("status=%d env=%+v", rec.Code, env)
	}
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(context.Background(), rec, http.StatusNotFound, "Post not found")
	if rec.Code != 404 || rec.Body.String() != "{\"error\":\"Post not found\"}\n" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
