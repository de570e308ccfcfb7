package atom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWireCodeOffsetsUserErrors(t *testing.T) {
	e := NewUserError(3, "bad exposure value")
	assert.Equal(t, UserErrorsBegin+3, e.WireCode())
}

func TestWireCodeFrameworkKind(t *testing.T) {
	e := newKindError(KindUnsupportedCommand, "no such command")
	assert.Equal(t, int(KindUnsupportedCommand), e.WireCode())
}

func TestErrorFromWireCodeRoundTrips(t *testing.T) {
	orig := NewUserError(5, "oops")
	decoded := ErrorFromWireCode(orig.WireCode(), "oops")
	assert.Equal(t, KindUserError, decoded.Kind)
	assert.Equal(t, 5, decoded.UserCode)
}

func TestErrorFromWireCodeZeroIsNil(t *testing.T) {
	assert.Nil(t, ErrorFromWireCode(0, ""))
}

func TestErrorIsMatchesByKind(t *testing.T) {
	e := newKindError(KindNoAck, "ack timeout")
	assert.True(t, errors.Is(e, SentinelFor(KindNoAck)))
	assert.False(t, errors.Is(e, SentinelFor(KindNoResponse)))
}

func TestWrapRedisNilIsNil(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))
}

func TestWrapRedisCarriesRawMessage(t *testing.T) {
	e := WrapRedis(errors.New("ERR unknown command"))
	assert.Equal(t, KindRedis, e.Kind)
	assert.Equal(t, "ERR unknown command", e.RedisMsg)
}
