package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Error is a GraphQL error as produced by the parser and validator.
type Error = gqlerror.Error

// Location is a line/column position in a GraphQL document.
type Location = gqlerror.Location

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL together with the GraphQL prelude
// (built-in scalars and directives).
func LoadSchema(name, source string) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LocationOf converts an AST position to an error location.
func LocationOf(pos *Position) (Location, bool) {
	if pos == nil || pos.Line == 0 {
		return Location{}, false
	}
	return Location{Line: pos.Line, Column: pos.Column}, true
}
