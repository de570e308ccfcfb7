package atom

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mediocregopher/atom/mcmp"
	"github.com/mediocregopher/atom/mdb/mredis"
	"github.com/mediocregopher/atom/mlog"
)

// Timeouts and defaults fixed by section 6.
const (
	AckTimeoutMS           = 1000
	CommandDefaultTimeoutMS = 1000
	NoCommandTimeoutMS     = 1000
	MaxLenDefault          = 1024
	BufferCapDefault       = 20
)

// Config is an element's creation-time configuration surface, section 6.
// Transport, Endpoint, and the pool-shaping fields below describe how the
// Wires passed to NewElement were (or should be) built; initElement itself
// only consumes Name/LanguageTag/VersionTag/MaxLen; InstElement is
// responsible for actually building the ConnPool/BufferPool from the rest
// before an Element is usable.
type Config struct {
	Name      string
	Transport mredis.Network
	Endpoint  string

	MaxConnections    int
	ConnWaitTimeout   time.Duration
	MaxBuffers        int
	BufferWaitTimeout time.Duration

	// NumUnix and NumTCP request the ConnPool be pre-warmed with that many
	// already-dialed idle connections of each transport at startup (see
	// ConnPool.Init), rather than growing lazily on first use.
	NumUnix int
	NumTCP  int

	LanguageTag string
	VersionTag  string

	// MaxLen bounds the command and response streams this element owns.
	// 0 uses MaxLenDefault.
	MaxLen int
}

func (c *Config) fillDefaults() {
	if c.LanguageTag == "" {
		c.LanguageTag = "go"
	}
	if c.MaxLen <= 0 {
		c.MaxLen = MaxLenDefault
	}
}

// Element is an identity with a unique name that owns a command stream, a
// response stream, a command table, and a set of published write-streams
// (section 3).
type Element struct {
	Name        string
	LanguageTag string
	VersionTag  string
	maxLen      int

	wire     *mredis.Wire // general-purpose pooled connection
	loopWire *mredis.Wire // dedicated connection held for the command loop's ACK/response writes (section 4.7.1)
	logger   *mlog.Logger

	// bufferPool and bufferWaitTimeout are only set when the Element was
	// built via InstElement; they bound how many concurrent outstanding
	// reads a caller may issue through AcquireReadSlot (section 4.3's
	// buffer-pool ceiling, reinterpreted as a concurrency throttle rather
	// than literal zero-copy reply spans -- see the design ledger).
	bufferPool        *mredis.BufferPool
	bufferWaitTimeout time.Duration

	mu           sync.Mutex
	commands     map[string]Command
	streams      map[string]bool
	loopStarted  bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewElement validates name and cfg, performs the one-shot {language,
// version} write to both the command and response streams, and returns a
// ready-to-configure Element (section 3's creation lifecycle). The caller
// supplies two Wires: one for general traffic and one dedicated connection
// to be held for the life of the command loop, matching section 4.7.1's
// decoupled ACK/response write path.
func NewElement(wire, loopWire *mredis.Wire, cmp *mcmp.Component, cfg Config) (*Element, *Error) {
	e := &Element{}
	if err := initElement(e, wire, loopWire, cmp, cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// initElement fills the fields of a pre-allocated Element in place, rather
// than returning a freshly built one, so callers that must hand out an
// *Element before it's ready (InstElement's mcfg/mrun wiring, which
// returns the pointer before Init has dialed anything) can populate it
// later without copying a struct that embeds a sync.Mutex and sync.Once.
func initElement(e *Element, wire, loopWire *mredis.Wire, cmp *mcmp.Component, cfg Config) *Error {
	if err := ValidateName(cfg.Name); err != nil {
		return err.(*Error)
	}
	cfg.fillDefaults()

	e.Name = cfg.Name
	e.LanguageTag = cfg.LanguageTag
	e.VersionTag = cfg.VersionTag
	e.maxLen = cfg.MaxLen
	e.wire = wire
	e.loopWire = loopWire
	e.logger = mlog.From(cmp)
	e.commands = map[string]Command{}
	e.streams = map[string]bool{}
	e.stopCh = make(chan struct{})

	e.registerBuiltins()

	handshake := []WriteKV{
		{Key: "language", Value: e.LanguageTag},
		{Key: "version", Value: e.VersionTag},
	}
	if _, err := EntryWrite(wire, CommandStreamKey(e.Name), MethodMsgpack, handshake, e.maxLen); err != nil {
		return err
	}
	if _, err := EntryWrite(wire, ResponseStreamKey(e.Name), MethodMsgpack, handshake, e.maxLen); err != nil {
		return err
	}

	return nil
}

// RegisterCommand adds cmd to the element's command table. Must be called
// before RunCommandLoop; the table is immutable once the loop starts
// (section 3).
func (e *Element) RegisterCommand(cmd Command) *Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loopStarted {
		return newKindError(KindInternal, "cannot register a command after the command loop has started")
	}
	e.commands[cmd.Name] = cmd
	return nil
}

func (e *Element) lookupCommand(name string) (Command, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.commands[name]
	return c, ok
}

// Destroy removes the element's command and response streams (section 3's
// destruction lifecycle). Published user streams are left in place; only
// the element's own inbox streams are owned by it.
func (e *Element) Destroy() *Error {
	e.stopOnce.Do(func() { close(e.stopCh) })
	if _, err := e.wire.Del(CommandStreamKey(e.Name), ResponseStreamKey(e.Name)); err != nil {
		return WrapRedis(err)
	}
	return nil
}

// registerStream records that stream has been published by this element,
// so PublishedStreams can report it.
func (e *Element) registerStream(stream string) {
	e.mu.Lock()
	e.streams[stream] = true
	e.mu.Unlock()
}

// PublishedStreams returns the names (not full keys) of every stream this
// element has written to via WriteStream.
func (e *Element) PublishedStreams() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.streams))
	for s := range e.streams {
		out = append(out, s)
	}
	return out
}

// WriteStream implements entry_write against one of this element's own
// user streams, registering it in the published set on first use.
func (e *Element) WriteStream(name string, method Method, kv []WriteKV, maxlen int) (string, *Error) {
	e.registerStream(name)
	return EntryWrite(e.wire, UserStreamKey(e.Name, name), method, kv, maxlen)
}

// ReadStreamN implements entry_read_n against one of this element's own
// or a remote element's user streams.
func (e *Element) ReadStreamN(ownerElement, name string, n int) ([]Entry, *Error) {
	return EntryReadN(e.wire, UserStreamKey(ownerElement, name), n)
}

// ReadStreamSince implements entry_read_since against a user stream.
func (e *Element) ReadStreamSince(ownerElement, name string, n int, lastID string, blockMS int64) ([]Entry, *Error) {
	return EntryReadSince(e.wire, UserStreamKey(ownerElement, name), n, lastID, blockMS)
}

// AcquireReadSlot reserves one slot in the element's buffer pool for the
// duration of a blocking read, returning a release function the caller
// must invoke when the read completes. Elements built directly via
// NewElement (rather than InstElement) have no buffer pool configured and
// this is a no-op, matching how a standalone Wire needs no concurrency
// ceiling of its own.
func (e *Element) AcquireReadSlot(ctx context.Context) (func(), *Error) {
	if e.bufferPool == nil {
		return func() {}, nil
	}
	buf, err := e.bufferPool.Acquire(ctx, e.bufferWaitTimeout)
	if err != nil {
		return nil, WrapRedis(err)
	}
	return buf.Release, nil
}

// RunCommandLoop implements the server-side dispatch loop (section 4.7.1).
// It blocks reading command:<self> until ctx is done or Destroy is called.
func (e *Element) RunCommandLoop(ctx context.Context) *Error {
	e.mu.Lock()
	e.loopStarted = true
	e.mu.Unlock()

	lastID := "$"
	for {
		select {
		case <-e.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		release, derr := e.AcquireReadSlot(ctx)
		if derr != nil {
			return derr
		}
		replies, err := e.wire.XRead(5000, 0, []string{CommandStreamKey(e.Name)}, []string{lastID})
		release()
		if err != nil {
			return WrapRedis(err)
		}
		if len(replies) == 0 {
			continue
		}

		for _, req := range replies[0].Entries {
			entry := fromWireEntry(req)
			lastID = entry.ID
			e.dispatchOne(entry)
		}
	}
}

func (e *Element) dispatchOne(req Entry) {
	caller, hasCaller := req.Get("element")
	if !hasCaller {
		e.logger.Warning("command entry missing element field, dropping", nil)
		return
	}
	callerName := string(caller)

	cmdNameB, hasCmd := req.Get("cmd")
	cmdName := string(cmdNameB)

	cmd, found := e.lookupCommand(cmdName)
	timeoutMS := int64(NoCommandTimeoutMS)
	if found {
		timeoutMS = cmd.effectiveTimeoutMS()
	}

	e.emitAck(callerName, req.ID, timeoutMS)

	var result HandlerResult
	var derr *Error
	switch {
	case !hasCmd || cmdName == "":
		derr = newKindError(KindInvalidCommand, "command entry missing cmd field")
	case !found:
		derr = newKindError(KindUnsupportedCommand, "no such command: "+cmdName)
	default:
		data, _ := req.Get("data")
		result, derr = cmd.dispatch(data)
	}

	if result.Cleanup != nil {
		defer result.Cleanup()
	}
	e.emitResponse(callerName, req.ID, cmdName, result, derr)
}

func (e *Element) emitAck(caller, cmdID string, timeoutMS int64) {
	kv := []mredis.KV{
		{Key: []byte("element"), Value: []byte(e.Name)},
		{Key: []byte("cmd_id"), Value: []byte(cmdID)},
		{Key: []byte("timeout"), Value: []byte(strconv.FormatInt(timeoutMS, 10))},
	}
	if _, err := protocolWrite(e.loopWire, ResponseStreamKey(caller), kv, MaxLenDefault); err != nil {
		e.logger.Err("failed to emit ack", nil)
	}
}

func (e *Element) emitResponse(caller, cmdID, cmdName string, result HandlerResult, derr *Error) {
	errCode := 0
	errStr := ""
	if derr != nil {
		errCode = derr.WireCode()
		errStr = derr.Error()
	} else if !result.ok() {
		errCode = UserErrorsBegin + result.UserErrorCode
		errStr = result.UserErrorStr
	}

	kv := []mredis.KV{
		{Key: []byte("element"), Value: []byte(e.Name)},
		{Key: []byte("cmd_id"), Value: []byte(cmdID)},
		{Key: []byte("cmd"), Value: []byte(cmdName)},
		{Key: []byte("err_code"), Value: []byte(strconv.Itoa(errCode))},
		{Key: []byte("err_str"), Value: []byte(errStr)},
		{Key: []byte("data"), Value: result.Response},
		{Key: []byte(serKey), Value: []byte(result.ResponseMethod)},
	}
	if _, err := protocolWrite(e.loopWire, ResponseStreamKey(caller), kv, MaxLenDefault); err != nil {
		e.logger.Err("failed to emit response", nil)
	}
}
