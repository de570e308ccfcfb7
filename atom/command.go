package atom

import (
	"github.com/vmihailenco/msgpack/v5"
)

// HandlerResult is what a Command's Handler returns: exactly one of a
// success (optionally with response bytes and a Cleanup token) or a
// non-zero UserErrorCode with an explanatory UserErrorStr, never both
// (section 4.7.3 and 4.7.1).
type HandlerResult struct {
	Response []byte

	// ResponseMethod records which Method Response is encoded with, so the
	// server can declare it in the response entry's ser field (section
	// 4.7 step 3). Defaults to MethodNone for variants with no response
	// body.
	ResponseMethod Method

	UserErrorCode int // 0 means success
	UserErrorStr  string

	// Cleanup, if non-nil, is invoked by the server after the reply has
	// been serialized onto the wire. When Cleanup is set the handler owns
	// all buffers it returned; when it's nil the framework takes
	// ownership of Response and frees it after use (section 4.7.3) -- in
	// Go terms, simply stops referencing it, letting the GC reclaim it.
	Cleanup func()
}

func (r HandlerResult) ok() bool { return r.UserErrorCode == 0 }

// Handler is the byte-level contract every command ultimately reduces to:
// given the raw request payload, produce a HandlerResult.
type Handler func(data []byte) HandlerResult

// Command is a command descriptor (section 3): registered once before an
// element's command loop starts, immutable thereafter.
type Command struct {
	Name        string
	Description string
	Handler     Handler

	// TimeoutMS is the deadline advertised in the ACK (section 4.7 step 2)
	// for how long the caller should wait for a response. Defaults to
	// 1000ms if zero.
	TimeoutMS int64

	// Validate, if non-nil, runs before Handler; a non-nil return maps to
	// *InvalidCommand and Handler is never invoked (section 4.7.4).
	Validate func(data []byte) error
}

const defaultCommandTimeoutMS = 1000

// effectiveTimeoutMS returns c.TimeoutMS, defaulting to 1000ms.
func (c Command) effectiveTimeoutMS() int64 {
	if c.TimeoutMS <= 0 {
		return defaultCommandTimeoutMS
	}
	return c.TimeoutMS
}

// dispatch runs Validate (if present) then Handler, mapping a Validate
// failure to *InvalidCommand.
func (c Command) dispatch(data []byte) (HandlerResult, *Error) {
	if c.Validate != nil {
		if err := c.Validate(data); err != nil {
			return HandlerResult{}, newKindError(KindInvalidCommand, err.Error())
		}
	}
	return c.Handler(data), nil
}

// NewBothCommand builds a Command whose request and response are both
// msgpack-serialized values of the given types (section 4.7.4's "request +
// response, both serialized" variant).
func NewBothCommand[Req any, Resp any](name, description string, timeoutMS int64, fn func(req Req) (Resp, *Error)) Command {
	return Command{
		Name:        name,
		Description: description,
		TimeoutMS:   timeoutMS,
		Handler: func(data []byte) HandlerResult {
			var req Req
			if len(data) > 0 {
				if err := msgpack.Unmarshal(data, &req); err != nil {
					return HandlerResult{UserErrorCode: 1, UserErrorStr: "failed to decode request: " + err.Error()}
				}
			}
			resp, uerr := fn(req)
			if uerr != nil {
				return HandlerResult{UserErrorCode: userErrCode(uerr), UserErrorStr: uerr.Error()}
			}
			b, err := msgpack.Marshal(resp)
			if err != nil {
				return HandlerResult{UserErrorCode: 1, UserErrorStr: "failed to encode response: " + err.Error()}
			}
			return HandlerResult{Response: b, ResponseMethod: MethodMsgpack}
		},
	}
}

// NewRequestOnlyCommand builds a Command whose request is msgpack-
// serialized and which produces no response body (section 4.7.4's
// "request only" variant).
func NewRequestOnlyCommand[Req any](name, description string, timeoutMS int64, fn func(req Req) *Error) Command {
	return Command{
		Name:        name,
		Description: description,
		TimeoutMS:   timeoutMS,
		Handler: func(data []byte) HandlerResult {
			var req Req
			if len(data) > 0 {
				if err := msgpack.Unmarshal(data, &req); err != nil {
					return HandlerResult{UserErrorCode: 1, UserErrorStr: "failed to decode request: " + err.Error()}
				}
			}
			if uerr := fn(req); uerr != nil {
				return HandlerResult{UserErrorCode: userErrCode(uerr), UserErrorStr: uerr.Error()}
			}
			return HandlerResult{}
		},
	}
}

// NewResponseOnlyCommand builds a Command which ignores its request body
// and produces a msgpack-serialized response (section 4.7.4's "response
// only" variant).
func NewResponseOnlyCommand[Resp any](name, description string, timeoutMS int64, fn func() (Resp, *Error)) Command {
	return Command{
		Name:        name,
		Description: description,
		TimeoutMS:   timeoutMS,
		Handler: func(data []byte) HandlerResult {
			resp, uerr := fn()
			if uerr != nil {
				return HandlerResult{UserErrorCode: userErrCode(uerr), UserErrorStr: uerr.Error()}
			}
			b, err := msgpack.Marshal(resp)
			if err != nil {
				return HandlerResult{UserErrorCode: 1, UserErrorStr: "failed to encode response: " + err.Error()}
			}
			return HandlerResult{Response: b, ResponseMethod: MethodMsgpack}
		},
	}
}

// NewTriggerCommand builds a Command with neither a meaningful request nor
// a response body -- purely a trigger, or an error-returning action
// (section 4.7.4's "neither" variant).
func NewTriggerCommand(name, description string, timeoutMS int64, fn func() *Error) Command {
	return Command{
		Name:        name,
		Description: description,
		TimeoutMS:   timeoutMS,
		Handler: func(data []byte) HandlerResult {
			if uerr := fn(); uerr != nil {
				return HandlerResult{UserErrorCode: userErrCode(uerr), UserErrorStr: uerr.Error()}
			}
			return HandlerResult{}
		},
	}
}

// userErrCode extracts a handler's intended non-zero user code from a
// *Error, defaulting to 1 for any *Error not already tagged KindUserError
// (e.g. a handler returning a generic failure via newKindError).
func userErrCode(err *Error) int {
	if err.Kind == KindUserError && err.UserCode != 0 {
		return err.UserCode
	}
	return 1
}
