// Package traceback records where an error was raised: the call stack at the
// raise site and an explicit snapshot of the local bindings the raiser chose to
// expose. Go offers no way to inspect another function's locals after the
// fact, so the snapshot is data handed over by the code that creates the error.
package traceback

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Header is the first line of a rendered traceback.
const Header = "Traceback (most recent call last):"

const maxFrames = 64

// Locals maps variable names to their values at the raise site.
type Locals map[string]any

// Frame is one entry of a call chain.
type Frame struct {
	Function string
	File     string
	Line     int
	// Locals is only set on the innermost frame.
	Locals Locals
}

// Traceback is a captured call chain, outermost frame first.
type Traceback struct {
	Frames []Frame
}

// Capture records the calling goroutine's stack. skip=0 makes the caller of
// Capture the innermost frame.
func Capture(skip int) *Traceback {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []Frame
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, Frame{Function: f.Function, File: f.File, Line: f.Line})
		}
		if !more {
			break
		}
	}
	slices.Reverse(out)
	return &Traceback{Frames: out}
}

// Innermost returns the frame closest to the raise site, or nil.
func (t *Traceback) Innermost() *Frame {
	if t == nil || len(t.Frames) == 0 {
		return nil
	}
	return &t.Frames[len(t.Frames)-1]
}

// Lines renders the traceback, one entry per line.
func (t *Traceback) Lines() []string {
	if t == nil {
		return nil
	}
	lines := make([]string, 0, len(t.Frames)+1)
	lines = append(lines, Header)
	for _, f := range t.Frames {
		lines = append(lines, fmt.Sprintf("  File %q, line %d, in %s", f.File, f.Line, f.Function))
	}
	return lines
}
