package xerrors

import "errors"

// Kind classifies a failure for the HTTP layer. The zero value is KindInternal.
type Kind string

const (
	KindInternal     Kind = "internal"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindDuplicate    Kind = "duplicate"
)

// Error is a classified error. Msg is safe to show to API callers.
type Error struct {
	kind Kind
	Msg  string
	err  error
	pc   uintptr
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Msg + ": " + e.err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error     { return e.err }
func (e *Error) Kind() Kind        { return e.kind }
func (e *Error) PC() uintptr       { return e.pc }
func (e *Error) IsXerrorsWrapper() {}

// E builds a classified error with a caller-facing message.
func E(kind Kind, msg string) error {
	return &Error{kind: kind, Msg: msg, pc: callerPC(1)}
}

// WrapKind classifies err while keeping it in the chain for logs.
func WrapKind(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, Msg: msg, err: err, pc: callerPC(1)}
}

type kinded interface{ Kind() Kind }

// KindOf returns the first kind found in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		if kind := k.Kind(); kind != "" {
			return kind
		}
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// PublicMessage returns the caller-facing message of the first classified
// error in the chain, or "" if there is none.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
