package atom

import (
	"testing"

	"github.com/mediocregopher/atom/mdb/mredis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWriteKVRejectsEmpty(t *testing.T) {
	err := validateWriteKV(nil)
	require.NotNil(t, err)
	assert.Equal(t, KindInvalidCommand, err.Kind)
}

func TestValidateWriteKVRejectsReservedSer(t *testing.T) {
	err := validateWriteKV([]WriteKV{{Key: "ser", Value: "x"}})
	require.NotNil(t, err)
	assert.Equal(t, KindInvalidCommand, err.Kind)
}

func TestValidateWriteKVRejectsDuplicates(t *testing.T) {
	err := validateWriteKV([]WriteKV{{Key: "a", Value: 1}, {Key: "a", Value: 2}})
	require.NotNil(t, err)
}

func TestValidateWriteKVAccepts(t *testing.T) {
	err := validateWriteKV([]WriteKV{{Key: "a", Value: 1}, {Key: "b", Value: 2}})
	assert.Nil(t, err)
}

func TestEntryMethodDefaultsToNone(t *testing.T) {
	e := Entry{Fields: []KVPair{{Key: "x", Value: []byte("1")}}}
	assert.Equal(t, MethodNone, e.Method())
}

func TestEntryMethodReadsSerField(t *testing.T) {
	e := Entry{Fields: []KVPair{{Key: "ser", Value: []byte("msgpack")}, {Key: "x", Value: []byte("1")}}}
	assert.Equal(t, MethodMsgpack, e.Method())
}

func TestEntryUserFieldsExcludesSer(t *testing.T) {
	e := Entry{Fields: []KVPair{{Key: "ser", Value: []byte("none")}, {Key: "x", Value: []byte("1")}}}
	uf := e.UserFields()
	assert.Len(t, uf, 1)
	assert.Equal(t, "x", uf[0].Key)
}

func TestEntryGet(t *testing.T) {
	e := Entry{Fields: []KVPair{{Key: "x", Value: []byte("1")}}}
	v, ok := e.Get("x")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	_, ok = e.Get("missing")
	assert.False(t, ok)
}

func TestFromWireEntryPreservesFields(t *testing.T) {
	we := mredis.StreamEntry{
		ID: "1-0",
		Fields: []mredis.KV{
			{Key: []byte("ser"), Value: []byte("none")},
			{Key: []byte("i"), Value: []byte("0")},
		},
	}
	e := fromWireEntry(we)
	assert.Equal(t, "1-0", e.ID)
	assert.Equal(t, MethodNone, e.Method())
	v, ok := e.Get("i")
	assert.True(t, ok)
	assert.Equal(t, []byte("0"), v)
}
