package mrun

import (
	"context"
	"errors"
	"testing"

	"github.com/mediocregopher/atom/mcmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitShutdownOrder(t *testing.T) {
	root := new(mcmp.Component)
	child := root.Child("c")

	var order []string
	InitHook(root, func(context.Context) error { order = append(order, "root-init"); return nil })
	InitHook(child, func(context.Context) error { order = append(order, "child-init"); return nil })
	ShutdownHook(root, func(context.Context) error { order = append(order, "root-shutdown"); return nil })
	ShutdownHook(child, func(context.Context) error { order = append(order, "child-shutdown"); return nil })

	require.NoError(t, Init(context.Background(), root))
	assert.Equal(t, []string{"root-init", "child-init"}, order)

	order = nil
	require.NoError(t, Shutdown(context.Background(), root))
	assert.Equal(t, []string{"child-shutdown", "root-shutdown"}, order)
}

func TestInitStopsOnError(t *testing.T) {
	root := new(mcmp.Component)
	boom := errors.New("boom")

	var ran bool
	InitHook(root, func(context.Context) error { return boom })
	InitHook(root, func(context.Context) error { ran = true; return nil })

	err := Init(context.Background(), root)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestShutdownContinuesPastErrors(t *testing.T) {
	root := new(mcmp.Component)
	boom := errors.New("boom")

	var ranSecond bool
	ShutdownHook(root, func(context.Context) error { ranSecond = true; return nil })
	ShutdownHook(root, func(context.Context) error { return boom })

	err := Shutdown(context.Background(), root)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ranSecond)
}
