package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// stacked carries the program counters captured where the error entered our code.
type stacked struct {
	err error
	pcs []uintptr
}

func (s *stacked) Error() string       { return s.err.Error() }
func (s *stacked) Unwrap() error       { return s.err }
func (s *stacked) StackPCs() []uintptr { return s.pcs }
func (s *stacked) IsXerrorsWrapper()   {}

// wrapped adds a message and the single caller frame that added it.
type wrapped struct {
	err error
	msg string
	pc  uintptr
}

func (w *wrapped) Error() string     { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error     { return w.err }
func (w *wrapped) PC() uintptr       { return w.pc }
func (w *wrapped) IsXerrorsWrapper() {}

func capture(skip int) []uintptr {
	const depth = 64
	pcs := make([]uintptr, depth)
	// skip runtime.Callers and capture itself
	n := runtime.Callers(2+skip, pcs)
	return pcs[:n]
}

func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(2+skip, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

func stackAt(err error, skip int) error {
	if err == nil {
		return nil
	}
	return &stacked{err: err, pcs: capture(skip)}
}

// WithStack records the current call stack on err.
func WithStack(err error) error { return stackAt(err, 2) }

// EnsureTrace adds a stack unless something in the chain already has one.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var hs interface{ StackPCs() []uintptr }
	if errors.As(err, &hs) && hs != nil && len(hs.StackPCs()) > 0 {
		return err
	}
	return stackAt(err, 2)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, msg: msg, pc: callerPC(1)}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, msg: fmt.Sprintf(format, args...), pc: callerPC(1)}
}

func New(msg string) error { return stackAt(errors.New(msg), 2) }

func Newf(format string, args ...any) error { return stackAt(fmt.Errorf(format, args...), 2) }
