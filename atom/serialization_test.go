package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNoneRoundTrips(t *testing.T) {
	b, err := Encode(MethodNone, "hello")
	require.Nil(t, err)
	assert.Equal(t, []byte("hello"), b)

	var s string
	require.Nil(t, Decode(MethodNone, b, &s))
	assert.Equal(t, "hello", s)
}

func TestEncodeNoneRejectsNonByteString(t *testing.T) {
	_, err := Encode(MethodNone, 42)
	require.NotNil(t, err)
	assert.Equal(t, KindInvalidCommand, err.Kind)
}

func TestEncodeDecodeMsgpackRoundTrips(t *testing.T) {
	type payload struct {
		A int
		B string
	}
	in := payload{A: 1, B: "x"}
	b, err := Encode(MethodMsgpack, in)
	require.Nil(t, err)

	var out payload
	require.Nil(t, Decode(MethodMsgpack, b, &out))
	assert.Equal(t, in, out)
}

func TestArrowIsUnsupported(t *testing.T) {
	_, err := Encode(MethodArrow, "x")
	require.NotNil(t, err)
	assert.Equal(t, KindUnsupportedCommand, err.Kind)

	err = Decode(MethodArrow, nil, new(string))
	require.NotNil(t, err)
	assert.Equal(t, KindUnsupportedCommand, err.Kind)
}

func TestMethodFromFieldsDefaultsToNone(t *testing.T) {
	assert.Equal(t, MethodNone, methodFromFields(nil))
	assert.Equal(t, MethodMsgpack, methodFromFields([]KVPair{{Key: serKey, Value: []byte("msgpack")}}))
}

func TestEncodeDecodeVariantRoundTrips(t *testing.T) {
	in := Variant{Tag: "int", Int: 42}
	b, err := Encode(MethodMsgpack, in)
	require.Nil(t, err)

	var out Variant
	require.Nil(t, Decode(MethodMsgpack, b, &out))
	assert.Equal(t, in, out)

	in = Variant{Tag: "str", Str: "hello"}
	b, err = Encode(MethodMsgpack, in)
	require.Nil(t, err)
	out = Variant{}
	require.Nil(t, Decode(MethodMsgpack, b, &out))
	assert.Equal(t, in, out)
}

func TestEncodeDecodeNestedContainerOfVariants(t *testing.T) {
	in := map[string][]Variant{
		"readings": {
			{Tag: "float", Float: 1.5},
			{Tag: "bool", Bool: true},
			{Tag: "bytes", Bytes: []byte{0xde, 0xad}},
		},
	}
	b, err := Encode(MethodMsgpack, in)
	require.Nil(t, err)

	var out map[string][]Variant
	require.Nil(t, Decode(MethodMsgpack, b, &out))
	assert.Equal(t, in, out)
}
