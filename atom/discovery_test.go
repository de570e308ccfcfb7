package atom

import (
	"testing"

	"github.com/mediocregopher/atom/mdb/mredis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateStreamsPropagatesRedisError(t *testing.T) {
	wire := mredis.WireFromClient(erroringClient{})
	_, err := EnumerateStreams(wire, "cam0")
	require.NotNil(t, err)
	assert.Equal(t, KindRedis, err.Kind)
}

func TestEnumerateElementsPropagatesRedisError(t *testing.T) {
	wire := mredis.WireFromClient(erroringClient{})
	_, err := EnumerateElements(wire)
	require.NotNil(t, err)
	assert.Equal(t, KindRedis, err.Kind)
}
