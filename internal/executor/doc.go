// Package executor runs GraphQL operations breadth-first against a Runtime and
// produces an ExecutionResult whose errors keep everything needed to present
// them later: message, source locations, response path, extensions, the error
// the runtime raised and where it was raised.
//
// # Execution Model
//
// Synchronous fields (schema.Field.Async == false) are resolved through
// Runtime.ResolveSync and completed immediately, without adding depth.
// Asynchronous fields met while expanding a depth are queued and resolved in a
// single Runtime.BatchResolveAsync call once that depth has been expanded. For a
// graph with asynchronous depth d, BatchResolveAsync is invoked exactly d times.
//
// Value completion follows GraphQL rules: Non-Null violations propagate null to
// the nearest nullable ancestor and tombstone its path so queued work below it
// is dropped; list elements are completed with index-aware paths; leaves go
// through Runtime.SerializeLeafValue; abstract values through
// Runtime.ResolveType. Fragment type conditions match the concrete type, the
// interfaces it implements and the unions containing it.
//
// # Errors
//
// Every recorded GraphQLError is located: Locations are the positions of the
// field nodes that produced it and Path is its response path.
//
// An error returned by any Runtime method is recorded with OriginalError set to
// the returned value. Its Traceback is the one the error carries (see package
// traceback) or, for errors raised without one, the stack where the executor
// recorded it. Returning a GraphQLError or a *gqlerror.Error keeps its message
// and extensions and chains it as the original error. Extensions are also taken
// from errors implementing ExtendedError and from gRPC status errors, which
// contribute "code" and "details".
//
// Errors the executor raises itself (unknown fields, argument coercion, Non-Null
// violations, unresolvable abstract types) carry no original error and no
// traceback.
//
// Request-level failures, such as a missing operation or invalid variables,
// produce a result with no data and a single unlocated error.
package executor
