package executor

import (
	"encoding/json"
	"errors"
	"maps"

	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/hanpama/graphqlerr/internal/language"
	"github.com/hanpama/graphqlerr/internal/traceback"
)

// ExtendedError is implemented by errors that contribute entries to the
// "extensions" of the GraphQL error they are reported as.
type ExtendedError interface {
	error
	Extensions() map[string]any
}

// fieldLocations returns the source locations of the field nodes.
func fieldLocations(fields []*language.Field) []language.Location {
	var locs []language.Location
	for _, f := range fields {
		if loc, ok := language.LocationOf(f.Position); ok {
			locs = append(locs, loc)
		}
	}
	return locs
}

// addError records an error produced by the executor itself.
func (state *executionState) addError(fields []*language.Field, path Path, message string) {
	state.errors = append(state.errors, GraphQLError{
		Message:   message,
		Locations: fieldLocations(fields),
		Path:      path,
	})
}

// addRuntimeError records an error returned by the runtime. The call site of
// addRuntimeError becomes the innermost frame when the error carries no
// traceback of its own.
func (state *executionState) addRuntimeError(fields []*language.Field, path Path, err error) {
	state.errors = append(state.errors, locatedError(err, fields, path, traceback.Capture(1)))
}

// locatedError wraps a raised error into a GraphQLError at path. An error
// that already is a GraphQL error keeps its message, locations and extensions.
func locatedError(err error, fields []*language.Field, path Path, site *traceback.Traceback) GraphQLError {
	out := GraphQLError{
		Message:       err.Error(),
		Locations:     fieldLocations(fields),
		Path:          path,
		OriginalError: err,
	}

	switch e := err.(type) {
	case GraphQLError:
		out.Extensions = maps.Clone(e.Extensions)
		if len(e.Locations) > 0 {
			out.Locations = e.Locations
		}
		out.Traceback = e.Traceback
	case *GraphQLError:
		if e != nil {
			out.Extensions = maps.Clone(e.Extensions)
			if len(e.Locations) > 0 {
				out.Locations = e.Locations
			}
			out.Traceback = e.Traceback
		}
	case *language.Error:
		if e != nil {
			out.Message = e.Message
			out.Extensions = maps.Clone(e.Extensions)
			if len(e.Locations) > 0 {
				out.Locations = e.Locations
			}
		}
	}

	for k, v := range errorExtensions(err) {
		if out.Extensions == nil {
			out.Extensions = map[string]any{}
		}
		if _, ok := out.Extensions[k]; !ok {
			out.Extensions[k] = v
		}
	}

	if out.Traceback == nil {
		out.Traceback = traceback.From(err)
	}
	if out.Traceback == nil {
		out.Traceback = site
	}
	return out
}

// errorExtensions collects extensions contributed by err: the map of an
// ExtendedError in its chain and, for gRPC status errors, the status code and
// details.
func errorExtensions(err error) map[string]any {
	ext := map[string]any{}

	var extended ExtendedError
	if errors.As(err, &extended) {
		maps.Copy(ext, extended.Extensions())
	}

	if st, ok := status.FromError(err); ok && st != nil {
		if _, set := ext["code"]; !set {
			ext["code"] = st.Code().String()
		}
		if details := statusDetails(st); len(details) > 0 {
			if _, set := ext["details"]; !set {
				ext["details"] = details
			}
		}
	}
	return ext
}

func statusDetails(st *status.Status) []json.RawMessage {
	var out []json.RawMessage
	for _, d := range st.Details() {
		m, ok := d.(proto.Message)
		if !ok {
			continue
		}
		b, err := protojson.Marshal(m)
		if err != nil {
			continue
		}
		out = append(out, json.RawMessage(b))
	}
	return out
}
