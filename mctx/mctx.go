// Package mctx extends the builtin context package with annotation
// functionality, which is useful for structured logging and error reporting
// throughout the rest of this module.
package mctx

import (
	"context"
	"fmt"
	"sort"
)

type annotation struct {
	key, value interface{}
	prev       *annotation
}

type annotationKey int

// Annotate returns a Context carrying the given key/value pairs (kvs' length
// must be even) in addition to any annotations already present on ctx.
// Annotating the same key twice keeps only the most recent value.
func Annotate(ctx context.Context, kvs ...interface{}) context.Context {
	if len(kvs)%2 != 0 {
		panic("mctx.Annotate called with an odd number of arguments")
	} else if len(kvs) == 0 {
		return ctx
	}

	prev, _ := ctx.Value(annotationKey(0)).(*annotation)
	for i := 0; i < len(kvs); i += 2 {
		prev = &annotation{key: kvs[i], value: kvs[i+1], prev: prev}
	}
	return context.WithValue(ctx, annotationKey(0), prev)
}

// Annotated is a convenience function which creates a context.Background(),
// annotates it with the given key/value pairs, and returns it. It's useful
// for constructing one-off annotation contexts to pass to merr/mlog calls.
func Annotated(kvs ...interface{}) context.Context {
	return Annotate(context.Background(), kvs...)
}

// Annotations is an unordered, de-duplicated set of key/value pairs pulled
// off a Context via Annotate (see StringSlice for a sorted view).
type Annotations map[interface{}]interface{}

// EvaluateAnnotations walks the annotation chain on ctx, merging each pair
// into (and returning) the given Annotations map. Each pair overwrites any
// value into already holds for that key, and where keys collide along the
// chain the most recent annotation wins.
func EvaluateAnnotations(ctx context.Context, into Annotations) Annotations {
	if into == nil {
		into = Annotations{}
	}
	if ctx == nil {
		return into
	}

	a, _ := ctx.Value(annotationKey(0)).(*annotation)
	// walk oldest-to-newest so that newer annotations win
	var chain []*annotation
	for ; a != nil; a = a.prev {
		chain = append(chain, a)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		into[chain[i].key] = chain[i].value
	}
	return into
}

// StringMap formats the given Annotations into a map of strings, suitable
// for structured logging output. If two keys format to the same string then
// the later one (in undefined map order) wins; callers needing determinism
// should prefer StringSlice.
func (a Annotations) StringMap() map[string]string {
	out := make(map[string]string, len(a))
	for k, v := range a {
		out[fmt.Sprint(k)] = fmt.Sprint(v)
	}
	return out
}

// StringSlice is like StringMap but returns a sorted slice of key/value
// tuples, so that output is deterministic (e.g. for tests or for log lines
// which benefit from stable field ordering).
func (a Annotations) StringSlice() [][2]string {
	m := a.StringMap()
	out := make([][2]string, 0, len(m))
	for k, v := range m {
		out = append(out, [2]string{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// MergeAnnotations merges the annotations of ctxB onto ctxA, with ctxB's
// values taking precedence over ctxA's on key collision, and returns the
// resulting Context (based on ctxA).
func MergeAnnotations(ctxA, ctxB context.Context) context.Context {
	merged := Annotations{}
	EvaluateAnnotations(ctxA, merged)
	EvaluateAnnotations(ctxB, merged)

	kvs := make([]interface{}, 0, len(merged)*2)
	for k, v := range merged {
		kvs = append(kvs, k, v)
	}
	return Annotate(ctxA, kvs...)
}
