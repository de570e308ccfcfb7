// Package mredis wraps a Redis connection with exactly the operations the
// Atom wire protocol needs (section 4.2), plus the buffer and connection
// pools (sections 4.3, 4.4) backing it. It is grounded on the teacher
// library's own mdb/mredis package: a thin radix.Client wrapper wired
// through mcmp/mcfg/mrun, extended here with the stream-reply decoding the
// Atom protocol requires.
package mredis

import (
	"context"
	"strconv"

	"github.com/mediocregopher/atom/mcfg"
	"github.com/mediocregopher/atom/mcmp"
	"github.com/mediocregopher/atom/merr"
	"github.com/mediocregopher/atom/mlog"
	"github.com/mediocregopher/atom/mrun"
	"github.com/mediocregopher/radix/v3"
)

// Wire is a thin wrapper over a radix.Client providing exactly the
// operations spec.md section 4.2 names. Every call is one request/reply;
// Wire does not pipeline.
type Wire struct {
	client radix.Client
	cmp    *mcmp.Component
}

// InstWire instantiates a Wire which dials its pool when Init is triggered
// on the given Component, and closes it on Shutdown, mirroring the
// teacher's InstRedis.
func InstWire(parent *mcmp.Component) *Wire {
	cmp := parent.Child("redis")
	client := new(struct{ radix.Client })

	addr := mcfg.String(cmp, "addr",
		mcfg.ParamDefault("127.0.0.1:6379"),
		mcfg.ParamUsage("address the shared redis instance is listening on"))
	poolSize := mcfg.Int(cmp, "pool-size",
		mcfg.ParamDefault(4),
		mcfg.ParamUsage("number of connections in the redis pool"))

	mrun.InitHook(cmp, func(ctx context.Context) error {
		cmp.Annotate("addr", *addr, "poolSize", *poolSize)
		mlog.From(cmp).Info("connecting to redis", ctx)
		var err error
		client.Client, err = radix.NewPool("tcp", *addr, *poolSize)
		return err
	})
	mrun.ShutdownHook(cmp, func(ctx context.Context) error {
		mlog.From(cmp).Info("closing redis pool", ctx)
		return client.Close()
	})

	return &Wire{client: client, cmp: cmp}
}

// WireFromClient builds a Wire directly from an already-constructed
// radix.Client, for tests and for callers that manage their own pool
// lifecycle (e.g. atom.Element's dedicated write connection, section 4.7.1).
func WireFromClient(client radix.Client) *Wire {
	return &Wire{client: client}
}

func (w *Wire) wrap(err error) error {
	if err == nil {
		return nil
	}
	ctx := context.Background()
	if w.cmp != nil {
		ctx = w.cmp.Context()
	}
	return merr.Wrap(err, ctx)
}

// XAdd appends one entry to stream with the given id (use "*" for
// Redis-assigned) and flat key/value pairs, optionally capping the stream
// to approximately maxlen entries. It returns the assigned entry id.
func (w *Wire) XAdd(stream string, maxlen int, id string, kv []KV) (string, error) {
	args := make([]string, 0, 4+len(kv)*2)
	if maxlen > 0 {
		args = append(args, "MAXLEN", "~", strconv.Itoa(maxlen))
	}
	args = append(args, id)
	for _, p := range kv {
		args = append(args, string(p.Key), string(p.Value))
	}

	var newID string
	err := w.client.Do(radix.Cmd(&newID, "XADD", append([]string{stream}, args...)...))
	return newID, w.wrap(err)
}

// XRange returns up to count entries from stream between start and end
// (inclusive), oldest first.
func (w *Wire) XRange(stream, start, end string, count int) ([]StreamEntry, error) {
	args := []string{stream, start, end}
	if count > 0 {
		args = append(args, "COUNT", strconv.Itoa(count))
	}
	var entries []radix.StreamEntry
	err := w.client.Do(radix.Cmd(&entries, "XRANGE", args...))
	return fromRadixEntries(entries), w.wrap(err)
}

// XRevRange returns up to count entries from stream between end and start,
// newest first.
func (w *Wire) XRevRange(stream, end, start string, count int) ([]StreamEntry, error) {
	args := []string{stream, end, start}
	if count > 0 {
		args = append(args, "COUNT", strconv.Itoa(count))
	}
	var entries []radix.StreamEntry
	err := w.client.Do(radix.Cmd(&entries, "XREVRANGE", args...))
	return fromRadixEntries(entries), w.wrap(err)
}

// XRead blocks up to blockMS milliseconds (0 means don't block, negative
// means block forever) waiting for entries newer than the given id on each
// of streams. It returns an empty, non-error result on block timeout.
func (w *Wire) XRead(blockMS int64, count int, streams []string, ids []string) ([]StreamReply, error) {
	args := make([]string, 0, 6+len(streams)+len(ids))
	if blockMS != 0 {
		ms := blockMS
		if ms < 0 {
			ms = 0
		}
		args = append(args, "BLOCK", strconv.FormatInt(ms, 10))
	}
	if count > 0 {
		args = append(args, "COUNT", strconv.Itoa(count))
	}
	args = append(args, "STREAMS")
	args = append(args, streams...)
	args = append(args, ids...)

	var raw []streamReaderEntry
	err := w.client.Do(radix.Cmd(&raw, "XREAD", args...))
	return multiStreamReply(raw), w.wrap(err)
}

// XReadGroup is XRead's consumer-group counterpart: entries are read on
// behalf of consumer within group, and must eventually be XAck'd.
func (w *Wire) XReadGroup(group, consumer string, blockMS int64, count int, stream, id string) ([]StreamReply, error) {
	args := []string{"GROUP", group, consumer}
	if count > 0 {
		args = append(args, "COUNT", strconv.Itoa(count))
	}
	if blockMS != 0 {
		ms := blockMS
		if ms < 0 {
			ms = 0
		}
		args = append(args, "BLOCK", strconv.FormatInt(ms, 10))
	}
	args = append(args, "STREAMS", stream, id)

	var raw []streamReaderEntry
	err := w.client.Do(radix.Cmd(&raw, "XREADGROUP", args...))
	return multiStreamReply(raw), w.wrap(err)
}

// XGroupCreate creates consumer group group on stream starting at
// startID, creating the stream itself (via the undocumented MKSTREAM
// modifier) if it doesn't already exist. It is idempotent: a BUSYGROUP
// error from an existing group of the same name is swallowed.
func (w *Wire) XGroupCreate(stream, group, startID string) error {
	err := w.client.Do(radix.Cmd(nil, "XGROUP", "CREATE", stream, group, startID, "MKSTREAM"))
	if err == nil {
		return nil
	}
	if isBusyGroup(err) {
		return nil
	}
	return w.wrap(err)
}

// XGroupDestroy removes a consumer group from stream.
func (w *Wire) XGroupDestroy(stream, group string) error {
	return w.wrap(w.client.Do(radix.Cmd(nil, "XGROUP", "DESTROY", stream, group)))
}

// XAck acknowledges that id on stream was successfully consumed by group
// and should not be redelivered.
func (w *Wire) XAck(stream, group, id string) error {
	return w.wrap(w.client.Do(radix.Cmd(nil, "XACK", stream, group, id)))
}

// XDel removes id from stream outright.
func (w *Wire) XDel(stream, id string) error {
	return w.wrap(w.client.Do(radix.Cmd(nil, "XDEL", stream, id)))
}

// Set stores v under k with no expiry (flat reply, per section 4.2's
// parsing contract).
func (w *Wire) Set(k, v string) error {
	return w.wrap(w.client.Do(radix.FlatCmd(nil, "SET", k, v)))
}

// SetPX stores v under k with a TTL of ttlMS milliseconds.
func (w *Wire) SetPX(k, v string, ttlMS int64) error {
	return w.wrap(w.client.Do(radix.Cmd(nil, "SET", k, v, "PX", strconv.FormatInt(ttlMS, 10))))
}

// Get returns the flat value stored at k, or ("", false) if it's unset.
func (w *Wire) Get(k string) (string, bool, error) {
	var v radix.MaybeNil
	var s string
	v.Rcv = &s
	err := w.client.Do(radix.Cmd(&v, "GET", k))
	if err != nil {
		return "", false, w.wrap(err)
	}
	return s, !v.Nil, nil
}

// Del removes the given keys, returning the number removed.
func (w *Wire) Del(keys ...string) (int, error) {
	var n int
	err := w.client.Do(radix.Cmd(&n, "DEL", keys...))
	return n, w.wrap(err)
}

// Unlink is Del's non-blocking counterpart, reclaiming memory in a
// background thread on the Redis server.
func (w *Wire) Unlink(keys ...string) (int, error) {
	var n int
	err := w.client.Do(radix.Cmd(&n, "UNLINK", keys...))
	return n, w.wrap(err)
}

// ScanResult is one page of a SCAN cursor walk.
type ScanResult struct {
	Cursor string
	Keys   []string
}

// Scan walks the keyspace matching pattern, one cursor page at a time.
// Pass "0" as cursor to start; a returned Cursor of "0" means iteration is
// complete.
func (w *Wire) Scan(cursor, pattern string) (ScanResult, error) {
	var raw struct {
		Cursor string
		Keys   []string
	}
	err := w.client.Do(radix.Cmd(&raw, "SCAN", cursor, "MATCH", pattern))
	return ScanResult{Cursor: raw.Cursor, Keys: raw.Keys}, w.wrap(err)
}

// Time returns the Redis server's current time as (unix seconds,
// microseconds).
func (w *Wire) Time() (int64, int64, error) {
	var raw [2]string
	err := w.client.Do(radix.Cmd(&raw, "TIME"))
	if err != nil {
		return 0, 0, w.wrap(err)
	}
	sec, _ := strconv.ParseInt(raw[0], 10, 64)
	usec, _ := strconv.ParseInt(raw[1], 10, 64)
	return sec, usec, nil
}

// Keys lists every key matching pattern. Prefer Scan for large keyspaces;
// Keys is provided because the protocol names it explicitly (discovery,
// section 4.8) and real deployments keep the matched namespaces small.
func (w *Wire) Keys(pattern string) ([]string, error) {
	var keys []string
	err := w.client.Do(radix.Cmd(&keys, "KEYS", pattern))
	return keys, w.wrap(err)
}

// PTTL returns the remaining TTL of k in milliseconds, -1 if k has no
// expiry, or -2 if k does not exist.
func (w *Wire) PTTL(k string) (int64, error) {
	var ms int64
	err := w.client.Do(radix.Cmd(&ms, "PTTL", k))
	return ms, w.wrap(err)
}

// PExpire sets k's TTL to ttlMS milliseconds, returning whether k existed.
func (w *Wire) PExpire(k string, ttlMS int64) (bool, error) {
	var n int
	err := w.client.Do(radix.Cmd(&n, "PEXPIRE", k, strconv.FormatInt(ttlMS, 10)))
	return n == 1, w.wrap(err)
}

// ScriptLoad loads a Lua script into the server's script cache, returning
// its SHA1 digest for later EVALSHA use.
func (w *Wire) ScriptLoad(script string) (string, error) {
	var sha string
	err := w.client.Do(radix.Cmd(&sha, "SCRIPT", "LOAD", script))
	return sha, w.wrap(err)
}

// Do executes an arbitrary radix Action, for callers (e.g. the command
// protocol's dedicated ACK/response connection) that need lower-level
// access than the named operations above provide.
func (w *Wire) Do(a radix.Action) error {
	return w.wrap(w.client.Do(a))
}

func isBusyGroup(err error) bool {
	const prefix = "BUSYGROUP"
	s := err.Error()
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
