package atom

import (
	"context"
	"testing"

	"github.com/mediocregopher/atom/mlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLogLevelAccepts(t *testing.T) {
	assert.Nil(t, ValidateLogLevel(mlog.LevelEmerg))
	assert.Nil(t, ValidateLogLevel(mlog.LevelDebug))
}

func TestValidateLogLevelRejectsOutOfRange(t *testing.T) {
	err := ValidateLogLevel(mlog.Level(8))
	require.NotNil(t, err)
	assert.Equal(t, KindInvalidCommand, err.Kind)

	err = ValidateLogLevel(mlog.Level(-1))
	require.NotNil(t, err)
	assert.Equal(t, KindInvalidCommand, err.Kind)
}

func TestNewRedisHandlerSetsElement(t *testing.T) {
	h := NewRedisHandler(nil, "cam0")
	assert.Equal(t, "cam0", h.element)
}

func TestRedisHandlerRejectsBadLevelBeforeTouchingWire(t *testing.T) {
	h := NewRedisHandler(nil, "cam0")
	err := h.Handle(mlog.FullMessage{
		Message: mlog.Message{Context: context.Background(), Level: mlog.Level(99), Description: "x"},
	})
	require.Error(t, err)
}

func TestCachedHostnameIsStable(t *testing.T) {
	a := cachedHostname()
	b := cachedHostname()
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

type recordingHandler struct {
	calls *int
	err   error
}

func (h recordingHandler) Handle(mlog.FullMessage) error {
	*h.calls++
	return h.err
}

func TestFanoutHandlerCallsAllHandlers(t *testing.T) {
	var a, b int
	h := FanoutHandler(recordingHandler{calls: &a}, recordingHandler{calls: &b})
	err := h.Handle(mlog.FullMessage{Message: mlog.Message{Level: mlog.LevelInfo}})
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestFanoutHandlerContinuesPastErrors(t *testing.T) {
	var a, b int
	boom := assert.AnError
	h := FanoutHandler(recordingHandler{calls: &a, err: boom}, recordingHandler{calls: &b})
	err := h.Handle(mlog.FullMessage{Message: mlog.Message{Level: mlog.LevelInfo}})
	require.Equal(t, boom, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
