package merr

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// MaxStackSize indicates the maximum number of stack frames which will be
// captured when wrapping an error.
var MaxStackSize = 50

// Stacktrace represents a stack trace captured at a particular point in
// execution.
type Stacktrace struct {
	frames []uintptr
}

func newStacktrace(skip int) Stacktrace {
	pc := make([]uintptr, MaxStackSize)
	// +2: one for runtime.Callers itself, one for newStacktrace
	n := runtime.Callers(skip+2, pc)
	return Stacktrace{frames: pc[:n]}
}

// Frame returns the top-most (closest to where the error was created) frame
// in the stack.
func (s Stacktrace) Frame() runtime.Frame {
	if len(s.frames) == 0 {
		return runtime.Frame{}
	}
	frame, _ := runtime.CallersFrames(s.frames).Next()
	return frame
}

// String returns a short "pkg/file.go:line" representation of the top-most
// frame, suitable for inclusion in a single log line.
func (s Stacktrace) String() string {
	if len(s.frames) == 0 {
		return ""
	}
	frame := s.Frame()
	file, dir := filepath.Base(frame.File), filepath.Dir(frame.File)
	dir = filepath.Base(dir)
	return fmt.Sprintf("%s/%s:%d", dir, file, frame.Line)
}
