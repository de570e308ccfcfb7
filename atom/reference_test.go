package atom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReferenceLifecycle is end-to-end scenario 6 from section 8: a
// reference created with a short ttl_ms is immediately readable, then
// expires.
func TestReferenceLifecycle(t *testing.T) {
	wire := testWire(t)

	streamKey := "stream:ref-test:s"
	_, derr := EntryWrite(wire, streamKey, MethodNone, []WriteKV{{Key: "a", Value: "hello"}}, 0)
	require.Nil(t, derr)

	ref, derr := CreateReferenceFromStream(wire, streamKey, "", 500)
	require.Nil(t, derr)
	require.Len(t, ref.Fields, 2) // ser + a

	keys := make([]string, len(ref.Fields))
	for i, f := range ref.Fields {
		keys[i] = f.Key
	}
	values, oks, derr := GetReference(wire, keys)
	require.Nil(t, derr)
	for _, ok := range oks {
		assert.True(t, ok)
	}
	_ = values

	time.Sleep(600 * time.Millisecond)
	_, oks, derr = GetReference(wire, keys)
	require.Nil(t, derr)
	for _, ok := range oks {
		assert.False(t, ok)
	}
}

func TestReferenceTimeoutRoundTrips(t *testing.T) {
	wire := testWire(t)

	streamKey := "stream:ref-test-2:s"
	_, derr := EntryWrite(wire, streamKey, MethodNone, []WriteKV{{Key: "a", Value: "x"}}, 0)
	require.Nil(t, derr)

	ref, derr := CreateReferenceFromStream(wire, streamKey, "", 10000)
	require.Nil(t, derr)
	require.NotEmpty(t, ref.Fields)

	key := ref.Fields[0].Key
	ms, derr := GetReferenceTimeout(wire, key)
	require.Nil(t, derr)
	assert.Greater(t, ms, int64(0))

	ok, derr := UpdateReferenceTimeout(wire, key, 60000)
	require.Nil(t, derr)
	assert.True(t, ok)

	ms2, derr := GetReferenceTimeout(wire, key)
	require.Nil(t, derr)
	assert.Greater(t, ms2, ms)
}
