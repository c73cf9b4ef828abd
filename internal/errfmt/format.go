package errfmt

import (
	"encoding/json"
	"maps"
	"math"
	"reflect"

	"github.com/hanpama/graphqlerr/internal/executor"
	"github.com/hanpama/graphqlerr/internal/language"
	"github.com/hanpama/graphqlerr/internal/repr"
)

// FormattedError is an error as presented to clients.
type FormattedError struct {
	Message    string              `json:"message"`
	Locations  []language.Location `json:"locations,omitempty"`
	Path       []any               `json:"path,omitempty"`
	Extensions map[string]any      `json:"extensions,omitempty"`
}

// Formatter presents one execution error.
type Formatter interface {
	FormatError(err executor.GraphQLError, debug bool) FormattedError
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(err executor.GraphQLError, debug bool) FormattedError

func (f FormatterFunc) FormatError(err executor.GraphQLError, debug bool) FormattedError {
	return f(err, debug)
}

// Default is the formatter used when none is configured.
var Default Formatter = FormatterFunc(FormatError)

// FormatError presents err. With debug set, an error raised with a traceback
// gets an "exception" entry in a copy of its extensions; err itself is never
// modified.
func FormatError(err executor.GraphQLError, debug bool) FormattedError {
	out := FormattedError{
		Message:    err.Message,
		Locations:  err.Locations,
		Path:       formatPath(err.Path),
		Extensions: err.Extensions,
	}
	if !debug {
		return out
	}
	if exc := BuildExtension(err); exc != nil {
		ext := make(map[string]any, len(err.Extensions)+1)
		maps.Copy(ext, err.Extensions)
		ext[ExceptionKey] = *exc
		out.Extensions = ext
	}
	return out
}

// FormatErrors presents every error of result, in order, with f (Default when
// nil). The result is never nil. If f panics on an error, that error is
// presented by FormatError without debug information instead.
func FormatErrors(result *executor.ExecutionResult, f Formatter, debug bool) []FormattedError {
	if result == nil || len(result.Errors) == 0 {
		return []FormattedError{}
	}
	if f == nil {
		f = Default
	}
	out := make([]FormattedError, 0, len(result.Errors))
	for _, err := range result.Errors {
		out = append(out, formatSafely(f, err, debug))
	}
	return out
}

func formatSafely(f Formatter, err executor.GraphQLError, debug bool) (out FormattedError) {
	defer func() {
		if r := recover(); r != nil {
			out = FormatError(err, false)
		}
	}()
	return f.FormatError(err, debug)
}

func formatPath(path executor.Path) []any {
	if path == nil {
		return nil
	}
	out := make([]any, len(path))
	for i, elem := range path {
		out[i] = pathElement(elem)
	}
	return out
}

// pathElement keeps response keys and list indices, converting indices of any
// integer type to int. Any other element is replaced by its JSON text.
func pathElement(elem any) (out any) {
	if s, ok := elem.(string); ok {
		return s
	}
	if rv := reflect.ValueOf(elem); rv.IsValid() {
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if u := rv.Uint(); u <= math.MaxInt {
				return int(u)
			}
		}
	}
	defer func() {
		if r := recover(); r != nil {
			out = repr.Placeholder(elem)
		}
	}()
	b, err := json.Marshal(elem)
	if err != nil {
		return repr.String(elem)
	}
	return string(b)
}
