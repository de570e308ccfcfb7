package mcmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildPath(t *testing.T) {
	root := new(Component)
	child := root.Child("elementA")
	grandchild := child.Child("streams")

	assert.Empty(t, root.Path())
	assert.Equal(t, []string{"elementA"}, child.Path())
	assert.Equal(t, []string{"elementA", "streams"}, grandchild.Path())
}

func TestChildDuplicatePanics(t *testing.T) {
	root := new(Component)
	root.Child("a")
	assert.Panics(t, func() { root.Child("a") })
}

func TestInheritedValue(t *testing.T) {
	root := new(Component)
	root.SetValue("k", "root-v")
	child := root.Child("c")

	v, ok := child.InheritedValue("k")
	assert.True(t, ok)
	assert.Equal(t, "root-v", v)

	child.SetValue("k", "child-v")
	v, ok = child.InheritedValue("k")
	assert.True(t, ok)
	assert.Equal(t, "child-v", v)

	_, ok = root.InheritedValue("missing")
	assert.False(t, ok)
}

func TestVisit(t *testing.T) {
	root := new(Component)
	a := root.Child("a")
	a.Child("a1")
	root.Child("b")

	var paths []string
	Visit(root, func(c *Component) {
		paths = append(paths, "/"+joinPath(c.Path()))
	})
	assert.Equal(t, []string{"/", "/a", "/a/a1", "/b"}, paths)
}

func joinPath(p []string) string {
	out := ""
	for i, s := range p {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}
