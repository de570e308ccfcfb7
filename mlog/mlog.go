// Package mlog is a structured, leveled logging library. Unlike a typical
// five-level logger, the Level scale here follows the syslog numbering the
// Atom log stream protocol is built on (EMERG=0 .. DEBUG=7), since that
// numbering is part of the wire contract (see the "log" stream, and the
// *InvalidCommand* error for levels outside that range).
package mlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mediocregopher/atom/mctx"
)

// Level is the severity of a logged Message, using the same numbering as
// syslog: lower is more severe.
type Level int

// The complete, fixed set of Levels. Values outside this range are invalid.
const (
	LevelEmerg Level = iota
	LevelAlert
	LevelCrit
	LevelErr
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

var levelNames = map[Level]string{
	LevelEmerg:   "EMERG",
	LevelAlert:   "ALERT",
	LevelCrit:    "CRIT",
	LevelErr:     "ERR",
	LevelWarning: "WARNING",
	LevelNotice:  "NOTICE",
	LevelInfo:    "INFO",
	LevelDebug:   "DEBUG",
}

// String implements fmt.Stringer.
func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Valid returns true if l is one of the eight defined Levels.
func (l Level) Valid() bool {
	return l >= LevelEmerg && l <= LevelDebug
}

// LevelFromString parses one of the level names (case-insensitive) used in
// the DEFAULT_LOG_LEVEL environment variable, returning ok=false if s
// doesn't match any defined Level.
func LevelFromString(s string) (Level, bool) {
	for l, name := range levelNames {
		if len(s) == len(name) && equalFold(s, name) {
			return l, true
		}
	}
	return 0, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Message describes a single log entry prior to being handed to a Handler.
type Message struct {
	Context     context.Context
	Level       Level
	Description string
}

// FullMessage extends Message with properties the Logger fills in itself.
type FullMessage struct {
	Message
	Time      time.Time
	Namespace []string
}

// Handler processes FullMessages, e.g. by writing them to stdout or
// mirroring them onto the Atom log stream. Handlers must be safe for
// concurrent use.
type Handler interface {
	Handle(FullMessage) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(FullMessage) error

// Handle implements Handler.
func (f HandlerFunc) Handle(m FullMessage) error { return f(m) }

// Logger emits Messages to a Handler, filtering out anything more severe...
// er, less severe, than MaxLevel (numerically greater, per the syslog
// convention).
type Logger struct {
	l        sync.RWMutex
	handler  Handler
	maxLevel Level
	ns       []string
	now      func() time.Time
}

// NewLogger returns a Logger which writes to handler, logging messages up to
// and including maxLevel.
func NewLogger(handler Handler, maxLevel Level) *Logger {
	return &Logger{handler: handler, maxLevel: maxLevel, now: time.Now}
}

// Clone returns a copy of the Logger which can have its Handler replaced
// independently of the original.
func (l *Logger) Clone() *Logger {
	l.l.RLock()
	defer l.l.RUnlock()
	ns := make([]string, len(l.ns))
	copy(ns, l.ns)
	return &Logger{handler: l.handler, maxLevel: l.maxLevel, ns: ns, now: l.now}
}

// SetMaxLevel adjusts the maximum Level which will be handled going forward.
func (l *Logger) SetMaxLevel(level Level) {
	l.l.Lock()
	defer l.l.Unlock()
	l.maxLevel = level
}

// WithNamespace returns a copy of the Logger whose messages will be tagged
// with an additional namespace element, e.g. the owning element's name.
func (l *Logger) WithNamespace(ns string) *Logger {
	l.l.RLock()
	defer l.l.RUnlock()
	newNS := make([]string, len(l.ns), len(l.ns)+1)
	copy(newNS, l.ns)
	newNS = append(newNS, ns)
	return &Logger{handler: l.handler, maxLevel: l.maxLevel, ns: newNS, now: l.now}
}

// Log handles msg if its Level is within the Logger's MaxLevel.
func (l *Logger) Log(msg Message) error {
	l.l.RLock()
	maxLevel, handler, ns, now := l.maxLevel, l.handler, l.ns, l.now
	l.l.RUnlock()

	if msg.Level > maxLevel {
		return nil
	}
	if msg.Context == nil {
		msg.Context = context.Background()
	}

	return handler.Handle(FullMessage{
		Message:   msg,
		Time:      now(),
		Namespace: ns,
	})
}

func (l *Logger) log(level Level, descr string, ctxs ...context.Context) {
	ctx := context.Background()
	for _, c := range ctxs {
		ctx = mctx.MergeAnnotations(ctx, c)
	}
	_ = l.Log(Message{Context: ctx, Level: level, Description: descr})
}

// Debug logs a message at LevelDebug.
func (l *Logger) Debug(descr string, ctxs ...context.Context) { l.log(LevelDebug, descr, ctxs...) }

// Info logs a message at LevelInfo.
func (l *Logger) Info(descr string, ctxs ...context.Context) { l.log(LevelInfo, descr, ctxs...) }

// Warning logs a message at LevelWarning.
func (l *Logger) Warning(descr string, ctxs ...context.Context) {
	l.log(LevelWarning, descr, ctxs...)
}

// Err logs a message at LevelErr.
func (l *Logger) Err(descr string, ctxs ...context.Context) { l.log(LevelErr, descr, ctxs...) }

// Crit logs a message at LevelCrit.
func (l *Logger) Crit(descr string, ctxs ...context.Context) { l.log(LevelCrit, descr, ctxs...) }
