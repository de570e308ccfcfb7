// Package mrun implements init/shutdown lifecycle hooks scoped to an
// mcmp.Component tree, in the style the teacher library uses to bring up
// and tear down resources (e.g. a connection pool) alongside the component
// that owns them.
package mrun

import (
	"context"

	"github.com/mediocregopher/atom/mcmp"
)

// Hook is a function registered to run when Init or Shutdown is triggered on
// the Component (or an ancestor of it) it was registered on.
type Hook func(context.Context) error

type hookKey int

const (
	initKey hookKey = iota
	shutdownKey
)

func addHook(cmp *mcmp.Component, key hookKey, h Hook) {
	existing, _ := cmp.Value(key).([]Hook)
	cmp.SetValue(key, append(existing, h))
}

func localHooks(cmp *mcmp.Component, key hookKey) []Hook {
	hooks, _ := cmp.Value(key).([]Hook)
	return hooks
}

// InitHook registers h to run when Init is called on cmp or one of its
// ancestors. Hooks run in the order Components were visited: parent before
// children, siblings in the order their Child calls were made.
func InitHook(cmp *mcmp.Component, h Hook) {
	addHook(cmp, initKey, h)
}

// ShutdownHook registers h to run when Shutdown is called on cmp or one of
// its ancestors. Hooks run in the reverse of Init's order, so resources are
// torn down in the opposite order they were brought up.
func ShutdownHook(cmp *mcmp.Component, h Hook) {
	addHook(cmp, shutdownKey, h)
}

// Init runs every Hook registered via InitHook on cmp and its descendants,
// parent-first. It stops and returns the first error encountered.
func Init(ctx context.Context, cmp *mcmp.Component) error {
	var err error
	mcmp.Visit(cmp, func(c *mcmp.Component) {
		if err != nil {
			return
		}
		for _, h := range localHooks(c, initKey) {
			if err = h(ctx); err != nil {
				return
			}
		}
	})
	return err
}

// Shutdown runs every Hook registered via ShutdownHook on cmp and its
// descendants, children-first (the reverse of Init), continuing past
// individual hook errors so that unrelated resources still get a chance to
// close, but returning the first error seen.
func Shutdown(ctx context.Context, cmp *mcmp.Component) error {
	var all []*mcmp.Component
	mcmp.Visit(cmp, func(c *mcmp.Component) { all = append(all, c) })

	var firstErr error
	for i := len(all) - 1; i >= 0; i-- {
		hooks := localHooks(all[i], shutdownKey)
		for j := len(hooks) - 1; j >= 0; j-- {
			if err := hooks[j](ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
