package events

import (
	"time"

	"github.com/hanpama/graphqlerr/internal/errfmt"
	"github.com/hanpama/graphqlerr/internal/executor"
)

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation.
// Errors are the errors as recorded, Formatted what was sent to the client.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []executor.GraphQLError
	Formatted     []errfmt.FormattedError
	Debug         bool
	Duration      time.Duration
}
