// Package fixture builds an executor.Runtime from a YAML description of field
// results, for serving a schema without a backend.
//
//	resolvers:
//	  - type: Query
//	    field: product
//	    value: {id: "1", name: Lamp, price: 12}
//	  - type: Product
//	    field: ratio
//	    error: division by zero
//	    locals: {numerator: 12, denominator: 0}
//	    extensions: {code: BAD_RATIO}
//
// Fields without an entry read the key of the same name from a map source.
// Errors are raised with a traceback whose innermost frame carries the
// declared locals.
package fixture

import (
	"context"
	"fmt"
	"maps"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hanpama/graphqlerr/internal/executor"
	"github.com/hanpama/graphqlerr/internal/schema"
	"github.com/hanpama/graphqlerr/internal/traceback"
)

// File is the decoded fixture document.
type File struct {
	Resolvers []Resolver `koanf:"resolvers"`
}

// Resolver describes the result of one field. Exactly one of Value or Error
// applies; Error wins when both are set.
type Resolver struct {
	Type       string         `koanf:"type"`
	Field      string         `koanf:"field"`
	Value      any            `koanf:"value"`
	Error      string         `koanf:"error"`
	Locals     map[string]any `koanf:"locals"`
	Extensions map[string]any `koanf:"extensions"`
}

// Load reads the fixture file at path and builds a runtime for sch.
func Load(path string, sch *schema.Schema) (*executor.MockRuntime, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return nil, fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	return NewRuntime(f, sch)
}

// NewRuntime builds a runtime serving f. Every object field of sch gets a
// resolver; entries naming a type or field sch does not have are rejected.
func NewRuntime(f File, sch *schema.Schema) (*executor.MockRuntime, error) {
	rt := executor.NewMockRuntime(nil)
	for _, t := range sch.Types {
		if t.Kind != schema.TypeKindObject {
			continue
		}
		for _, fd := range t.Fields {
			rt.SetResolver(t.Name, fd.Name, property(fd.Name))
		}
	}

	for i, r := range f.Resolvers {
		t := sch.Types[r.Type]
		if t == nil || t.Kind != schema.TypeKindObject {
			return nil, fmt.Errorf("resolvers[%d]: %q is not an object type", i, r.Type)
		}
		if t.Field(r.Field) == nil {
			return nil, fmt.Errorf("resolvers[%d]: type %s has no field %q", i, r.Type, r.Field)
		}
		if r.Error != "" {
			rt.SetResolver(r.Type, r.Field, raise(r))
		} else {
			rt.SetResolver(r.Type, r.Field, executor.NewMockValueResolver(r.Value))
		}
	}
	return rt, nil
}

func property(name string) executor.MockResolver {
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		if m, ok := source.(map[string]any); ok {
			return m[name], nil
		}
		return nil, nil
	}
}

func raise(r Resolver) executor.MockResolver {
	return func(_ context.Context, source any, args map[string]any) (any, error) {
		locals := traceback.Locals{"source": source, "args": args}
		maps.Copy(locals, r.Locals)
		var err error = &Error{Message: r.Error, Ext: r.Extensions}
		return nil, traceback.Wrap(err, locals)
	}
}

// Error is the error raised by fixture entries. It contributes its extensions
// to the GraphQL error it becomes.
type Error struct {
	Message string
	Ext     map[string]any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]any { return maps.Clone(e.Ext) }
