package merr

import (
	"context"
	"errors"
	"testing"

	"github.com/mediocregopher/atom/mctx"
	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, context.Background()))
}

func TestWrapMergesAnnotations(t *testing.T) {
	base := errors.New("boom")
	ctx1 := mctx.Annotated("a", 1)
	ctx2 := mctx.Annotated("b", 2)

	err := Wrap(base, ctx1)
	err = Wrap(err, ctx2)

	var e Error
	assert.True(t, errors.As(err, &e))
	m := mctx.EvaluateAnnotations(e.Ctx, nil).StringMap()
	assert.Equal(t, "1", m["a"])
	assert.Equal(t, "2", m["b"])
	assert.ErrorIs(t, err, base)
}

func TestNewIncludesAnnotations(t *testing.T) {
	err := New("bad things", mctx.Annotated("id", "xyz"))
	assert.Contains(t, err.Error(), "bad things")
	assert.Contains(t, err.Error(), "id: xyz")
}

func TestContextUnwrapped(t *testing.T) {
	assert.Equal(t, context.Background(), Context(errors.New("plain")))
}
