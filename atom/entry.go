package atom

import (
	"github.com/mediocregopher/atom/mdb/mredis"
)

// KVPair is one decoded field of a read entry, or a raw-bytes field for a
// write. Value is the wire-level byte representation; use WriteKV for
// writes that need per-value typed serialization.
type KVPair struct {
	Key   string
	Value []byte
}

// WriteKV is one user-supplied key/value pair for entry_write. Value is an
// arbitrary Go value to be serialized according to the write's Method --
// for MethodMsgpack this may be any msgpack-marshalable type (string, a
// struct, a Variant); for MethodNone it must be a []byte or string.
type WriteKV struct {
	Key   string
	Value interface{}
}

// Entry is one decoded stream entry: its server-assigned id plus its
// fields in emit order, including the reserved ser field if present.
type Entry struct {
	ID     string
	Fields []KVPair
}

// Method returns the entry's declared serialization method, defaulting to
// MethodNone if no ser field is present.
func (e Entry) Method() Method {
	return methodFromFields(e.Fields)
}

// UserFields returns the entry's fields with the reserved ser key removed.
func (e Entry) UserFields() []KVPair {
	out := make([]KVPair, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Key != serKey {
			out = append(out, f)
		}
	}
	return out
}

// Get returns the raw value of the named user field and whether it was
// present.
func (e Entry) Get(key string) ([]byte, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func fromWireEntry(e mredis.StreamEntry) Entry {
	fields := make([]KVPair, len(e.Fields))
	for i, kv := range e.Fields {
		fields[i] = KVPair{Key: string(kv.Key), Value: kv.Value}
	}
	return Entry{ID: e.ID, Fields: fields}
}

func fromWireEntries(es []mredis.StreamEntry) []Entry {
	out := make([]Entry, len(es))
	for i, e := range es {
		out[i] = fromWireEntry(e)
	}
	return out
}

// validateWriteKV enforces section 4.6's write validation: the pair list
// must be non-empty, contain no duplicate keys, and the caller must not
// supply the reserved ser key itself (entry_write adds it).
func validateWriteKV(kv []WriteKV) *Error {
	if len(kv) == 0 {
		return newKindError(KindInvalidCommand, "entry_write requires at least one key/value pair")
	}
	seen := make(map[string]bool, len(kv))
	for _, p := range kv {
		if p.Key == "" {
			return newKindError(KindInvalidCommand, "entry_write keys must not be empty")
		}
		if p.Key == serKey {
			return newKindError(KindInvalidCommand, "entry_write keys must not include the reserved 'ser' key")
		}
		if seen[p.Key] {
			return newKindError(KindInvalidCommand, "entry_write keys must be unique: duplicate "+p.Key)
		}
		seen[p.Key] = true
	}
	return nil
}

// protocolWrite XADDs kv as-is to streamKey with no automatic
// serialization or ser-field injection, for the command protocol's fixed-
// schema entries (section 4.7) where "data" is already-encoded bytes and
// "ser" (when present) is caller-supplied metadata, not something to
// re-encode.
func protocolWrite(wire *mredis.Wire, streamKey string, kv []mredis.KV, maxlen int) (string, *Error) {
	id, err := wire.XAdd(streamKey, maxlen, "*", kv)
	if err != nil {
		return "", WrapRedis(err)
	}
	return id, nil
}

// EntryWrite implements entry_write (section 4.6): it validates kv,
// serializes each value according to method, and XADDs one entry to
// streamKey with the ser field first, returning the assigned id.
func EntryWrite(wire *mredis.Wire, streamKey string, method Method, kv []WriteKV, maxlen int) (string, *Error) {
	if err := validateWriteKV(kv); err != nil {
		return "", err
	}

	wireKV := make([]mredis.KV, 0, len(kv)+1)
	wireKV = append(wireKV, mredis.KV{Key: []byte(serKey), Value: []byte(method)})
	for _, p := range kv {
		enc, err := Encode(method, p.Value)
		if err != nil {
			return "", err
		}
		wireKV = append(wireKV, mredis.KV{Key: []byte(p.Key), Value: enc})
	}

	id, err := wire.XAdd(streamKey, maxlen, "*", wireKV)
	if err != nil {
		return "", WrapRedis(err)
	}
	return id, nil
}

// EntryReadN implements entry_read_n (section 4.6): the n newest entries
// of streamKey, returned newest-first.
func EntryReadN(wire *mredis.Wire, streamKey string, n int) ([]Entry, *Error) {
	entries, err := wire.XRevRange(streamKey, "+", "-", n)
	if err != nil {
		return nil, WrapRedis(err)
	}
	return fromWireEntries(entries), nil
}

// EntryReadSince implements entry_read_since (section 4.6). lastID=="$"
// means "only strictly newer than now"; lastID=="0" means "from the
// beginning". blockMS==0 blocks indefinitely; a positive value bounds the
// wait and an empty, non-error result is returned on timeout.
func EntryReadSince(wire *mredis.Wire, streamKey string, n int, lastID string, blockMS int64) ([]Entry, *Error) {
	block := blockMS
	if block == 0 {
		block = -1 // Wire.XRead treats negative as "block forever"
	}
	replies, err := wire.XRead(block, n, []string{streamKey}, []string{lastID})
	if err != nil {
		return nil, WrapRedis(err)
	}
	if len(replies) == 0 {
		return nil, nil
	}
	return fromWireEntries(replies[0].Entries), nil
}

// EntryHandler processes one entry read off a subscribed stream during an
// entry_read_loop. A non-nil return is passed to EntryReadLoop's
// onCallbackErr (when one is given) and does not abort the loop.
type EntryHandler func(element, stream string, entry Entry) error

// streamSubscription is one (element, stream) pair an entry_read_loop is
// watching, along with its handler and the id of the last entry dispatched
// to it.
type streamSubscription struct {
	Element string
	Stream  string
	Handler EntryHandler
	lastID  string
}

// ReadLoopHandlers is the (element, stream) -> handler mapping passed to
// EntryReadLoop.
type ReadLoopHandlers map[[2]string]EntryHandler

// EntryReadLoop implements entry_read_loop (section 4.6). It repeatedly
// issues one XREAD across every subscribed stream's current last-seen id,
// dispatches returned entries to their handler in server order, and
// advances the per-stream last id to the id of the most recently dispatched
// entry. It stops after nLoops iterations (0 means forever) or at the first
// Redis error, which it returns.
func EntryReadLoop(wire *mredis.Wire, handlers ReadLoopHandlers, nLoops int, blockMS int64, onCallbackErr func(element, stream string, err error)) *Error {
	subs := make([]*streamSubscription, 0, len(handlers))
	for k, h := range handlers {
		subs = append(subs, &streamSubscription{Element: k[0], Stream: k[1], Handler: h, lastID: "$"})
	}

	block := blockMS
	if block == 0 {
		block = -1
	}

	for i := 0; nLoops == 0 || i < nLoops; i++ {
		streamKeys := make([]string, len(subs))
		ids := make([]string, len(subs))
		byKey := make(map[string]*streamSubscription, len(subs))
		for j, s := range subs {
			key := UserStreamKey(s.Element, s.Stream)
			streamKeys[j] = key
			ids[j] = s.lastID
			byKey[key] = s
		}

		replies, err := wire.XRead(block, 0, streamKeys, ids)
		if err != nil {
			return WrapRedis(err)
		}

		for _, reply := range replies {
			sub, ok := byKey[reply.Stream]
			if !ok {
				continue
			}
			for _, we := range reply.Entries {
				entry := fromWireEntry(we)
				if err := sub.Handler(sub.Element, sub.Stream, entry); err != nil && onCallbackErr != nil {
					onCallbackErr(sub.Element, sub.Stream, err)
				}
				sub.lastID = entry.ID
			}
		}
	}
	return nil
}
