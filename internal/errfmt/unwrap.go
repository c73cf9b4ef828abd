package errfmt

import (
	"github.com/hanpama/graphqlerr/internal/executor"
	"github.com/hanpama/graphqlerr/internal/language"
)

// Unwrap follows GraphQL error wrappers down to the error that was originally
// raised. GraphQL errors without a cause unwrap to nil; any other error is
// returned unchanged.
func Unwrap(err error) error {
	switch e := err.(type) {
	case executor.GraphQLError:
		return Unwrap(e.OriginalError)
	case *executor.GraphQLError:
		if e == nil {
			return nil
		}
		return Unwrap(e.OriginalError)
	case *language.Error:
		if e == nil {
			return nil
		}
		return Unwrap(e.Err)
	}
	return err
}
