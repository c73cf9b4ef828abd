package schema

import (
	"sort"
	"strings"
	"sync"

	"github.com/hanpama/graphqlerr/internal/language"
)

// Introspection returns the introspection types (__Schema, __Type and their
// relatives) and the __schema and __type root fields, as the GraphQL prelude
// defines them.
var Introspection = sync.OnceValues(func() ([]*Type, []*Field) {
	doc, err := language.LoadSchema("introspection.graphql", "type Query { ok: Boolean }")
	if err != nil {
		panic("schema: prelude does not load: " + err.Error())
	}

	names := make([]string, 0, 8)
	for name := range doc.Types {
		if strings.HasPrefix(name, "__") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	types := make([]*Type, 0, len(names))
	for _, name := range names {
		types = append(types, buildType(doc, doc.Types[name]))
	}

	var fields []*Field
	for _, fd := range doc.Query.Fields {
		if strings.HasPrefix(fd.Name, "__") {
			fields = append(fields, buildField(fd))
		}
	}
	return types, fields
})
