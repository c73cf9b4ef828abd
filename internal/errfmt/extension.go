package errfmt

import (
	"github.com/hanpama/graphqlerr/internal/executor"
	"github.com/hanpama/graphqlerr/internal/repr"
	"github.com/hanpama/graphqlerr/internal/traceback"
)

// ExceptionKey is the extensions key debug diagnostics are stored under.
const ExceptionKey = "exception"

// Exception is the debug description of the error a GraphQL error was raised
// from.
type Exception struct {
	// Stacktrace is the rendered traceback of the cause followed by its type
	// and message, one line per entry.
	Stacktrace []string `json:"stacktrace"`
	// Context holds the locals of the innermost frame rendered with
	// repr.String. It is nil when the cause has no captured frames.
	Context map[string]string `json:"context"`
}

// BuildExtension describes the cause of err for debugging. It returns nil when
// err carries no traceback or has no cause, and when building the description
// fails.
func BuildExtension(err executor.GraphQLError) (exc *Exception) {
	defer func() {
		if r := recover(); r != nil {
			exc = nil
		}
	}()

	cause := Unwrap(err)
	if cause == nil || err.Traceback == nil {
		return nil
	}
	return &Exception{
		Stacktrace: traceback.FormatException(cause),
		Context:    frameContext(traceback.From(cause)),
	}
}

func frameContext(tb *traceback.Traceback) map[string]string {
	frame := tb.Innermost()
	if frame == nil {
		return nil
	}
	ctx := make(map[string]string, len(frame.Locals))
	for name, value := range frame.Locals {
		ctx[name] = repr.String(value)
	}
	return ctx
}
