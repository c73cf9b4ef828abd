package executor

import (
	"github.com/hanpama/graphqlerr/internal/language"
	"github.com/hanpama/graphqlerr/internal/traceback"
)

// GraphQLError is an error recorded during execution. Errors raised by the
// runtime keep the raised value in OriginalError; errors produced by the
// executor itself have none.
type GraphQLError struct {
	Message    string              `json:"message"`
	Locations  []language.Location `json:"locations,omitempty"`
	Path       Path                `json:"path,omitempty"`
	Extensions map[string]any      `json:"extensions,omitempty"`

	OriginalError error                `json:"-"`
	Traceback     *traceback.Traceback `json:"-"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// Unwrap returns the error this one was raised from, if any.
func (e GraphQLError) Unwrap() error {
	return e.OriginalError
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}
