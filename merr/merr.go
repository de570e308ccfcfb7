// Package merr extends the builtin errors package with contextual
// annotations and embedded stacktraces, in the style used throughout this
// module for both framework and user-level errors.
package merr

import (
	"context"
	"errors"
	"strings"

	"github.com/mediocregopher/atom/mctx"
)

// Error wraps another error, attaching a Context (for annotations) and a
// Stacktrace captured at the point of wrapping.
type Error struct {
	Err        error
	Ctx        context.Context
	Stacktrace Stacktrace
}

// Error implements the error interface. The returned string includes the
// wrapped error's message followed by any annotations present on Ctx.
func (e Error) Error() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(e.Err.Error()))

	annotations := mctx.EvaluateAnnotations(e.Ctx, nil)
	for _, kv := range annotations.StringSlice() {
		sb.WriteString("\n\t* ")
		sb.WriteString(kv[0])
		sb.WriteString(": ")
		sb.WriteString(kv[1])
	}

	return sb.String()
}

// Unwrap implements the implicit interface used by errors.Is/errors.As.
func (e Error) Unwrap() error {
	return e.Err
}

// Context returns a Context suitable for passing to mlog, carrying whatever
// annotations were attached to err if it (or something it wraps) is a merr
// Error, or context.Background() otherwise.
func Context(err error) context.Context {
	var e Error
	if errors.As(err, &e) {
		return e.Ctx
	}
	return context.Background()
}

// WrapSkip is like Wrap, but allows skipping extra stack frames when
// capturing the stacktrace -- useful for helper functions which themselves
// call WrapSkip on behalf of their caller.
func WrapSkip(err error, ctx context.Context, skip int) error {
	if err == nil {
		return nil
	}

	var e Error
	if errors.As(err, &e) {
		e.Ctx = mctx.MergeAnnotations(e.Ctx, ctx)
		return e
	}

	return Error{
		Err:        err,
		Ctx:        ctx,
		Stacktrace: newStacktrace(skip + 1),
	}
}

// Wrap returns err wrapped in an Error carrying ctx's annotations and a
// stacktrace. If err is already wrapped, ctx's annotations are merged into
// the existing wrapper instead of creating a new one. Wrapping nil returns
// nil.
func Wrap(err error, ctx context.Context) error {
	return WrapSkip(err, ctx, 1)
}

// New is a shortcut for WrapSkip(errors.New(str), ctx, 1).
func New(str string, ctx context.Context) error {
	return WrapSkip(errors.New(str), ctx, 1)
}
