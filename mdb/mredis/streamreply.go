package mredis

import (
	"bufio"
	"errors"

	"github.com/mediocregopher/radix/v3"
	"github.com/mediocregopher/radix/v3/resp/resp2"
)

// KV is a single field/value pair decoded out of a stream entry, in the
// order Redis emitted it.
type KV struct {
	Key   []byte
	Value []byte
}

// StreamEntry is one entry decoded from XRANGE/XREVRANGE/XREAD/XREADGROUP,
// corresponding to the "Entry map" parsing contract: an id plus its fields
// in emit order. The byte slices in Fields are copies made while decoding;
// they do not point into any pooled buffer.
type StreamEntry struct {
	ID     string
	Fields []KV
}

// kvFromFlat converts radix's flat [k1,v1,k2,v2,...] field representation
// into ordered KV pairs.
func kvFromFlat(flat []string) []KV {
	kvs := make([]KV, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		kvs = append(kvs, KV{Key: []byte(flat[i]), Value: []byte(flat[i+1])})
	}
	return kvs
}

func fromRadixEntry(e radix.StreamEntry) StreamEntry {
	return StreamEntry{ID: e.ID.String(), Fields: kvFromFlat(e.Fields)}
}

func fromRadixEntries(es []radix.StreamEntry) []StreamEntry {
	out := make([]StreamEntry, len(es))
	for i, e := range es {
		out[i] = fromRadixEntry(e)
	}
	return out
}

// StreamReply is one (stream name, entries) pair, as returned by XREAD and
// XREADGROUP across potentially multiple subscribed streams: the "Multi-
// stream entry list" parsing contract.
type StreamReply struct {
	Stream  string
	Entries []StreamEntry
}

// streamReaderEntry decodes a single element of an XREAD/XREADGROUP
// top-level array: a two-element RESP array of (stream name, entry array).
// This mirrors the teacher's own streamReaderEntry.UnmarshalRESP exactly,
// reusing the low-level resp2 primitives rather than inventing a parser.
type streamReaderEntry struct {
	stream  []byte
	entries []radix.StreamEntry
}

func (s *streamReaderEntry) UnmarshalRESP(br *bufio.Reader) error {
	var ah resp2.ArrayHeader
	if err := ah.UnmarshalRESP(br); err != nil {
		return err
	}
	if ah.N != 2 {
		return errors.New("invalid xread[group] reply: expected 2-element array")
	}

	var stream resp2.BulkStringBytes
	stream.B = s.stream[:0]
	if err := stream.UnmarshalRESP(br); err != nil {
		return err
	}
	s.stream = stream.B

	return (resp2.Any{I: &s.entries}).UnmarshalRESP(br)
}

// multiStreamReply decodes the full top-level XREAD/XREADGROUP array reply,
// which is nil (on block timeout) or an array of streamReaderEntry.
func multiStreamReply(entries []streamReaderEntry) []StreamReply {
	out := make([]StreamReply, len(entries))
	for i, e := range entries {
		out[i] = StreamReply{Stream: string(e.stream), Entries: fromRadixEntries(e.entries)}
	}
	return out
}
