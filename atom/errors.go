package atom

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediocregopher/atom/merr"
)

// Kind tags an Error with one of the seven protocol-level error categories
// spec.md section 7 defines, plus the handler-driven CallbackFailed and
// UserError kinds.
type Kind int

const (
	// KindNone indicates success. Error values of this kind are never
	// actually returned; it exists so Kind's zero value is meaningful.
	KindNone Kind = iota
	KindInternal
	KindRedis
	KindNoAck
	KindNoResponse
	KindInvalidCommand
	KindUnsupportedCommand
	KindCallbackFailed
	KindUserError

	// KindInvalidName is a Naming-layer validation failure (section 4.1);
	// it is not one of spec.md's seven wire error kinds since it never
	// crosses the wire, but it's surfaced through the same Error type for
	// uniform handling by callers.
	KindInvalidName
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "NoError"
	case KindInternal:
		return "InternalError"
	case KindRedis:
		return "RedisError"
	case KindNoAck:
		return "NoAck"
	case KindNoResponse:
		return "NoResponse"
	case KindInvalidCommand:
		return "InvalidCommand"
	case KindUnsupportedCommand:
		return "UnsupportedCommand"
	case KindCallbackFailed:
		return "CallbackFailed"
	case KindUserError:
		return "UserError"
	case KindInvalidName:
		return "InvalidName"
	default:
		return "UnknownKind"
	}
}

// UserErrorsBegin is the offset added to a handler's non-zero return code
// before it's placed on the wire as err_code, so user codes never collide
// with the framework's own Kind values.
const UserErrorsBegin = 1000

// Error is the error type every atom operation returns. It always wraps an
// merr.Error so it carries a stacktrace and mctx annotations, and adds a
// Kind plus optional raw Redis message and user error code.
type Error struct {
	Kind    Kind
	Detail  string
	RedisMsg string
	UserCode int // valid only when Kind == KindUserError

	wrapped error
}

func (e *Error) Error() string {
	if e.RedisMsg != "" {
		return fmt.Sprintf("%s: %s (redis: %s)", e.Kind, e.Detail, e.RedisMsg)
	}
	if e.Kind == KindUserError {
		return fmt.Sprintf("%s: code %d: %s", e.Kind, e.UserCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.wrapped }

// WireCode returns the integer code this Error would be encoded as on the
// response stream's err_code field.
func (e *Error) WireCode() int {
	if e.Kind == KindUserError {
		return UserErrorsBegin + e.UserCode
	}
	return int(e.Kind)
}

func newKindError(kind Kind, detail string) *Error {
	e := &Error{Kind: kind, Detail: detail}
	e.wrapped = merr.New(detail, context.Background())
	return e
}

// WrapRedis builds a *KindRedis Error from an underlying Redis client
// error (connection failure or a -ERR reply), attaching the raw message
// with no further classification, per section 4.2.
func WrapRedis(err error) *Error {
	if err == nil {
		return nil
	}
	e := &Error{Kind: KindRedis, Detail: "redis operation failed", RedisMsg: err.Error()}
	e.wrapped = merr.Wrap(err, context.Background())
	return e
}

// NewUserError builds a *KindUserError Error from a handler's non-zero
// return code and message, to be encoded on the wire as
// UserErrorsBegin+code.
func NewUserError(code int, detail string) *Error {
	e := &Error{Kind: KindUserError, UserCode: code, Detail: detail}
	e.wrapped = merr.New(detail, context.Background())
	return e
}

// NewCallbackFailed wraps a handler/read-loop callback's returned error as
// a *KindCallbackFailed Error.
func NewCallbackFailed(err error) *Error {
	if err == nil {
		return nil
	}
	e := &Error{Kind: KindCallbackFailed, Detail: "callback failed"}
	e.wrapped = merr.Wrap(err, context.Background())
	return e
}

// ErrorFromWireCode reconstructs a *Error on the client side from a
// response entry's err_code/err_str fields (section 4.7 step 3).
func ErrorFromWireCode(code int, str string) *Error {
	if code == 0 {
		return nil
	}
	if code >= UserErrorsBegin {
		return NewUserError(code-UserErrorsBegin, str)
	}
	return newKindError(Kind(code), str)
}

// As allows errors.As(err, &atomErr) to pull an *Error out of any error
// this package returns, including ones wrapped further up the call stack.
func (e *Error) As(target interface{}) bool {
	out, ok := target.(**Error)
	if !ok {
		return false
	}
	*out = e
	return true
}

// Is supports errors.Is comparisons against a bare Kind sentinel wrapped
// in an *Error (e.g. errors.Is(err, KindNoAck) is not valid Go, but
// errors.Is(err, SentinelFor(KindNoAck)) is).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// SentinelFor returns a bare Error of the given Kind suitable for use with
// errors.Is.
func SentinelFor(kind Kind) *Error {
	return &Error{Kind: kind}
}
