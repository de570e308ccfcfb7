package mredis

import (
	"testing"

	"github.com/mediocregopher/radix/v3"
	"github.com/stretchr/testify/assert"
)

func TestKVFromFlat(t *testing.T) {
	kvs := kvFromFlat([]string{"a", "1", "b", "2"})
	assert.Equal(t, []KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}, kvs)
}

func TestKVFromFlatOddTrailingDropped(t *testing.T) {
	kvs := kvFromFlat([]string{"a", "1", "dangling"})
	assert.Equal(t, []KV{{Key: []byte("a"), Value: []byte("1")}}, kvs)
}

func TestFromRadixEntryPreservesOrder(t *testing.T) {
	e := radix.StreamEntry{
		ID:     radix.StreamEntryID{Time: 1000, Seq: 0},
		Fields: []string{"ser", "msgpack", "x", "1"},
	}
	got := fromRadixEntry(e)
	assert.Equal(t, "1000-0", got.ID)
	assert.Equal(t, []KV{
		{Key: []byte("ser"), Value: []byte("msgpack")},
		{Key: []byte("x"), Value: []byte("1")},
	}, got.Fields)
}

func TestMultiStreamReplyShape(t *testing.T) {
	entries := []streamReaderEntry{
		{
			stream: []byte("stream:cam0:metadata"),
			entries: []radix.StreamEntry{
				{ID: radix.StreamEntryID{Time: 1, Seq: 0}, Fields: []string{"k", "v"}},
			},
		},
	}

	got := multiStreamReply(entries)
	assert.Len(t, got, 1)
	assert.Equal(t, "stream:cam0:metadata", got[0].Stream)
	assert.Equal(t, "1-0", got[0].Entries[0].ID)
}

func TestIsBusyGroup(t *testing.T) {
	assert.True(t, isBusyGroup(busyGroupErr{}))
	assert.False(t, isBusyGroup(plainErr{}))
}

type busyGroupErr struct{}

func (busyGroupErr) Error() string { return "BUSYGROUP Consumer Group name already exists" }

type plainErr struct{}

func (plainErr) Error() string { return "WRONGTYPE Operation against a key" }
