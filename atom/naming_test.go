package atom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "command:cam0", CommandStreamKey("cam0"))
	assert.Equal(t, "response:cam0", ResponseStreamKey("cam0"))
	assert.Equal(t, "stream:cam0:metadata", UserStreamKey("cam0", "metadata"))
	assert.Equal(t, "log", LogStreamKey)
}

func TestValidateName(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"", true},
		{"cam0", false},
		{strings.Repeat("a", 128), false},
		{strings.Repeat("a", 129), true},
		{"bad:name", true},
	}
	for _, c := range cases {
		err := ValidateName(c.name)
		if c.wantErr {
			assert.Error(t, err, "name=%q", c.name)
		} else {
			assert.NoError(t, err, "name=%q", c.name)
		}
	}
}

func TestElementFromCommandKey(t *testing.T) {
	el, ok := ElementFromCommandKey("command:cam0")
	assert.True(t, ok)
	assert.Equal(t, "cam0", el)

	_, ok = ElementFromCommandKey("stream:cam0:x")
	assert.False(t, ok)
}

func TestElementAndStreamFromStreamKey(t *testing.T) {
	el, name, ok := ElementAndStreamFromStreamKey("stream:cam0:metadata:nested")
	assert.True(t, ok)
	assert.Equal(t, "cam0", el)
	assert.Equal(t, "metadata:nested", name)

	_, _, ok = ElementAndStreamFromStreamKey("command:cam0")
	assert.False(t, ok)
}
