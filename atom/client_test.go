package atom

import (
	"context"
	"errors"
	"testing"

	"github.com/mediocregopher/atom/mdb/mredis"
	"github.com/mediocregopher/radix/v3"
	"github.com/stretchr/testify/assert"
)

// erroringClient is a radix.Client whose every command fails, used to
// exercise latestID's "treat any error as no entries yet" fallback without
// a live Redis.
type erroringClient struct{}

func (erroringClient) Do(a radix.Action) error { return errors.New("boom") }
func (erroringClient) Close() error            { return nil }

// TestWaitForMatchFromCancelReturnsPromptly checks that an already-canceled
// context short-circuits waitForMatchFrom before it ever touches the Wire,
// rather than blocking on the first XREAD.
func TestWaitForMatchFromCancelReturnsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, derr := waitForMatchFrom(ctx, nil, "response:x", "0", 5000, func(Entry) bool { return false })
	assert.NotNil(t, derr)
}

func TestLatestIDDefaultsToZeroOnError(t *testing.T) {
	wire := mredis.WireFromClient(erroringClient{})
	assert.Equal(t, "0", latestID(wire, "response:x"))
}

func TestResponseZeroValueHasNoError(t *testing.T) {
	var r Response
	assert.Nil(t, r.Err)
	assert.False(t, r.Acked)
}
