package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBothCommandRoundTrips(t *testing.T) {
	cmd := NewBothCommand[string, string]("echo_str", "echoes a string", 0, func(req string) (string, *Error) {
		return req, nil
	})

	req, err := Encode(MethodMsgpack, "hello")
	require.Nil(t, err)

	res, derr := cmd.dispatch(req)
	require.Nil(t, derr)
	require.True(t, res.ok())

	var got string
	decErr := Decode(MethodMsgpack, res.Response, &got)
	require.Nil(t, decErr)
	assert.Equal(t, "hello", got)
}

func TestNewBothCommandUserError(t *testing.T) {
	cmd := NewBothCommand[string, string]("hello", "", 0, func(req string) (string, *Error) {
		return "", NewUserError(2, "nope")
	})

	req, _ := Encode(MethodMsgpack, "x")
	res, derr := cmd.dispatch(req)
	require.Nil(t, derr)
	assert.False(t, res.ok())
	assert.Equal(t, 2, res.UserErrorCode)
}

func TestCommandValidateFailureIsInvalidCommand(t *testing.T) {
	cmd := Command{
		Name: "strict",
		Validate: func(data []byte) error {
			return assertErr{}
		},
		Handler: func(data []byte) HandlerResult { return HandlerResult{} },
	}

	_, derr := cmd.dispatch(nil)
	require.NotNil(t, derr)
	assert.Equal(t, KindInvalidCommand, derr.Kind)
}

func TestEffectiveTimeoutDefaultsTo1000(t *testing.T) {
	var c Command
	assert.EqualValues(t, 1000, c.effectiveTimeoutMS())

	c.TimeoutMS = 50
	assert.EqualValues(t, 50, c.effectiveTimeoutMS())
}

func TestNewTriggerCommand(t *testing.T) {
	var ran bool
	cmd := NewTriggerCommand("ping", "", 0, func() *Error {
		ran = true
		return nil
	})
	res, derr := cmd.dispatch(nil)
	require.Nil(t, derr)
	assert.True(t, ran)
	assert.True(t, res.ok())
}

type assertErr struct{}

func (assertErr) Error() string { return "invalid" }
