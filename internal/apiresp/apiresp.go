// Package apiresp writes JSON responses: the admin envelope
// {success, data, error, code, details} and the bare {error} body used by
// the public endpoints.
package apiresp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/keithlinneman/folio/internal/frontmatter"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/xerrors"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeDuplicate    = "DUPLICATE_ENTRY"
	CodeInternal     = "INTERNAL_ERROR"
)

// InternalMessage replaces internal error text unless exposure is enabled.
const InternalMessage = "internal server error"

type Envelope struct {
	Success bool                     `json:"success"`
	Data    any                      `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Code    string                   `json:"code,omitempty"`
	Details []frontmatter.FieldError `json:"details,omitempty"`
}

// ErrorBody is the public endpoints' failure shape.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusFor maps an error kind to its HTTP status and envelope code.
func StatusFor(k xerrors.Kind) (int, string) {
	switch k {
	case xerrors.KindValidation:
		return http.StatusBadRequest, CodeValidation
	case xerrors.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case xerrors.KindUnauthorized:
		return http.StatusUnauthorized, CodeUnauthorized
	case xerrors.KindForbidden:
		return http.StatusForbidden, CodeForbidden
	case xerrors.KindDuplicate:
		return http.StatusConflict, CodeDuplicate
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// Responder writes envelopes. The zero value hides internal messages.
type Responder struct {
	ExposeInternal bool
}

func (Responder) OK(ctx context.Context, w http.ResponseWriter, status int, data any) {
	JSON(ctx, w, status, Envelope{Success: true, Data: data})
}

// Error classifies err and writes the matching envelope. Internal errors
// are logged with the request logger.
func (r Responder) Error(ctx context.Context, w http.ResponseWriter, err error) {
	kind := xerrors.KindOf(err)
	status, code := StatusFor(kind)
	env := Envelope{Success: false, Code: code, Error: r.message(kind, err)}

	var ve *frontmatter.ValidationError
	if errors.As(err, &ve) {
		env.Details = ve.Fields
	}
	if kind == xerrors.KindInternal {
		log.FromContext(ctx).Error(ctx, err, "admin request failed", "code", code)
	}
	JSON(ctx, w, status, env)
}

func (r Responder) message(kind xerrors.Kind, err error) string {
	if kind == xerrors.KindInternal {
		if r.ExposeInternal {
			return err.Error()
		}
		return InternalMessage
	}
	if msg := xerrors.PublicMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

// Fail writes {"error": msg} with status.
func Fail(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	JSON(ctx, w, status, ErrorBody{Error: msg})
}

// JSON encodes v with no-cache headers; API responses are always dynamic.
func JSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
