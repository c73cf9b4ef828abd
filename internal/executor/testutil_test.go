package executor

import (
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"

	language "github.com/hanpama/graphqlerr/internal/language"
)

// ignoreErrorOrigin compares errors by message, path and extensions only.
var ignoreErrorOrigin = cmpopts.IgnoreFields(GraphQLError{}, "Locations", "OriginalError", "Traceback")

// ignoreErrorCause keeps locations in the comparison.
var ignoreErrorCause = cmpopts.IgnoreFields(GraphQLError{}, "OriginalError", "Traceback")

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}
