// Package mcmp implements a tree of Components, used to scope configuration,
// logging, and lifecycle hooks to a particular part of a program -- for
// example to a single Element instance within a process that runs several.
package mcmp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mediocregopher/atom/mctx"
)

// Component describes a single named node in a hierarchy. The root
// Component is created with new(Component); every other Component is
// created via Child.
//
// Methods on Component are thread-safe.
type Component struct {
	l sync.RWMutex

	path     []string
	parent   *Component
	children []*Component

	kv  map[interface{}]interface{}
	ctx context.Context
}

// Child returns a new child Component of the receiver, with the given name
// appended to the receiver's Path. Panics if a child with that name already
// exists.
func (c *Component) Child(name string) *Component {
	c.l.Lock()
	defer c.l.Unlock()
	for _, child := range c.children {
		if child.path[len(child.path)-1] == name {
			panic(fmt.Sprintf("child with name %q already exists", name))
		}
	}

	path := make([]string, len(c.path), len(c.path)+1)
	copy(path, c.path)
	path = append(path, name)

	child := &Component{path: path, parent: c}
	c.children = append(c.children, child)
	return child
}

// Children returns all Components created via Child on the receiver, in the
// order they were created.
func (c *Component) Children() []*Component {
	c.l.RLock()
	defer c.l.RUnlock()
	out := make([]*Component, len(c.children))
	copy(out, c.children)
	return out
}

// Path returns the sequence of names passed to Child calls which led to this
// Component. The root Component has an empty Path.
func (c *Component) Path() []string {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.path
}

// SetValue sets key to value on the Component, overwriting any previous
// value set for that key.
func (c *Component) SetValue(key, value interface{}) {
	c.l.Lock()
	defer c.l.Unlock()
	if c.kv == nil {
		c.kv = make(map[interface{}]interface{}, 1)
	}
	c.kv[key] = value
}

// Value returns the value set on this Component (not its ancestors) for
// key, or nil if none was set.
func (c *Component) Value(key interface{}) interface{} {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.kv[key]
}

// InheritedValue is like Value, but walks up the parent chain until a value
// is found for key, returning ok=false if none of the receiver's ancestors
// (or the receiver itself) has one.
func (c *Component) InheritedValue(key interface{}) (interface{}, bool) {
	c.l.RLock()
	v, ok := c.kv[key]
	parent := c.parent
	c.l.RUnlock()

	if ok {
		return v, true
	} else if parent == nil {
		return nil, false
	}
	return parent.InheritedValue(key)
}

func (c *Component) pathStr() string {
	c.l.RLock()
	defer c.l.RUnlock()
	escaped := make([]string, len(c.path))
	for i, p := range c.path {
		escaped[i] = strings.ReplaceAll(p, "/", `\/`)
	}
	return "/" + strings.Join(escaped, "/")
}

type annotateKey string

// Annotate annotates the Component's internal Context in-place, so that
// future calls to Context will include these key/value pairs.
func (c *Component) Annotate(kvs ...interface{}) {
	c.l.Lock()
	defer c.l.Unlock()
	if c.ctx == nil {
		c.ctx = mctx.Annotated(annotateKey("component"), c.pathStr())
	}
	c.ctx = mctx.Annotate(c.ctx, kvs...)
}

// Context returns a Context annotated with this Component's path and any
// annotations set via Annotate.
func (c *Component) Context() context.Context {
	c.l.Lock()
	defer c.l.Unlock()
	if c.ctx == nil {
		c.ctx = mctx.Annotated(annotateKey("component"), c.pathStr())
	}
	return c.ctx
}

// Visit calls fn on the receiver and then recursively on all of its
// children, depth-first, in the order children were created.
func Visit(c *Component, fn func(*Component)) {
	fn(c)
	for _, child := range c.Children() {
		Visit(child, fn)
	}
}
