package atom

import (
	"os"
	"strconv"
	"sync"

	"github.com/mediocregopher/atom/mdb/mredis"
	"github.com/mediocregopher/atom/mlog"
)

// cachedHostname is read once per process (section 9's "global mutable
// state" note: hostname and the default log level are the only
// process-wide state this package keeps).
var cachedHostname = sync.OnceValue(func() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
})

// RedisHandler is an mlog.Handler that mirrors every logged Message onto
// the shared log stream (key LogStreamKey) with the fields section 4.8
// names: {level, host, element, msg}. Handle refuses a level outside [0,7]
// (see ValidateLogLevel) before writing anything to the stream.
type RedisHandler struct {
	wire    *mredis.Wire
	element string
}

// NewRedisHandler builds a RedisHandler that mirrors log messages for
// element onto the shared log stream via wire.
func NewRedisHandler(wire *mredis.Wire, element string) *RedisHandler {
	return &RedisHandler{wire: wire, element: element}
}

// Handle implements mlog.Handler.
func (h *RedisHandler) Handle(msg mlog.FullMessage) error {
	if err := ValidateLogLevel(msg.Level); err != nil {
		return err
	}

	kv := []mredis.KV{
		{Key: []byte("level"), Value: []byte(strconv.Itoa(int(msg.Level)))},
		{Key: []byte("host"), Value: []byte(cachedHostname())},
		{Key: []byte("element"), Value: []byte(h.element)},
		{Key: []byte("msg"), Value: []byte(msg.Description)},
	}
	_, err := h.wire.XAdd(LogStreamKey, MaxLenDefault, "*", kv)
	return err
}

// ValidateLogLevel reports *InvalidCommand if level falls outside the
// syslog-numbered [EMERG=0 .. DEBUG=7] range section 4.8 requires.
func ValidateLogLevel(level mlog.Level) *Error {
	if !level.Valid() {
		return newKindError(KindInvalidCommand, "log level out of range [0,7]: "+strconv.Itoa(int(level)))
	}
	return nil
}

// fanoutHandler runs a message through every one of its handlers,
// continuing past individual failures so that one element's broken Redis
// connection doesn't silence its local (stderr) logging.
type fanoutHandler []mlog.Handler

// FanoutHandler returns an mlog.Handler that forwards every message to all
// of handlers, letting an Element log to both its local default handler
// and the shared log stream (RedisHandler) at once.
func FanoutHandler(handlers ...mlog.Handler) mlog.Handler {
	return fanoutHandler(handlers)
}

func (f fanoutHandler) Handle(msg mlog.FullMessage) error {
	var firstErr error
	for _, h := range f {
		if err := h.Handle(msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
