package traceback

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Error is an error annotated with the traceback of the place it was raised.
type Error struct {
	err error
	tb  *Traceback
}

// Wrap returns err annotated with the caller's stack and the given locals
// attached to the innermost frame. Wrap(nil, ...) is nil.
func Wrap(err error, locals Locals) error {
	if err == nil {
		return nil
	}
	return wrap(err, locals, 1)
}

// New is Wrap(errors.New(msg), locals).
func New(msg string, locals Locals) error {
	return wrap(errors.New(msg), locals, 1)
}

// Errorf is Wrap(fmt.Errorf(format, args...), locals).
func Errorf(locals Locals, format string, args ...any) error {
	return wrap(fmt.Errorf(format, args...), locals, 1)
}

func wrap(err error, locals Locals, skip int) *Error {
	tb := Capture(skip + 1)
	if f := tb.Innermost(); f != nil && len(locals) > 0 {
		f.Locals = maps.Clone(locals)
	}
	return &Error{err: err, tb: tb}
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// Traceback returns the captured traceback.
func (e *Error) Traceback() *Traceback { return e.tb }

type carrier interface {
	Traceback() *Traceback
}

// From returns the traceback of the first error in err's chain that carries
// one, or nil.
func From(err error) *Traceback {
	var c carrier
	if errors.As(err, &c) {
		return c.Traceback()
	}
	return nil
}

// FormatException renders err the way a traceback is printed: the traceback
// header and frames when err carries one, then "<type>: <message>". Every
// entry is a single line.
func FormatException(err error) []string {
	lines := From(err).Lines()
	text := TypeName(err)
	if msg := err.Error(); msg != "" {
		text += ": " + msg
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	return lines
}

// TypeName reports the dynamic type of err, looking through traceback
// annotations.
func TypeName(err error) string {
	for {
		e, ok := err.(*Error)
		if !ok || e == nil || e.err == nil {
			break
		}
		err = e.err
	}
	return fmt.Sprintf("%T", err)
}
