package mlog

import (
	"os"

	"github.com/mediocregopher/atom/mcmp"
	"github.com/mediocregopher/atom/mctx"
)

type cmpKey int

// DefaultLogger is returned by From when no Logger has been set on the
// Component (or any of its ancestors) via SetLogger.
var DefaultLogger = NewLogger(NewJSONHandler(os.Stderr), LevelInfo)

// SetLogger sets l as the Logger to use for cmp and any of its descendants
// which don't have their own Logger set.
func SetLogger(cmp *mcmp.Component, l *Logger) {
	cmp.SetValue(cmpKey(0), l)
}

// GetLogger returns the Logger set on cmp or the nearest ancestor, falling
// back to DefaultLogger if none was ever set.
func GetLogger(cmp *mcmp.Component) *Logger {
	if l, ok := cmp.InheritedValue(cmpKey(0)); ok {
		return l.(*Logger)
	}
	return DefaultLogger
}

// From returns the Logger for cmp (see GetLogger), wrapped so that every
// Message logged through it is automatically annotated with cmp's Context
// (its Component path plus any Annotate calls made on it).
func From(cmp *mcmp.Component) *Logger {
	clone := GetLogger(cmp).Clone()
	inner := clone.handler
	clone.handler = HandlerFunc(func(msg FullMessage) error {
		msg.Context = mctx.MergeAnnotations(cmp.Context(), msg.Context)
		return inner.Handle(msg)
	})
	return clone
}
