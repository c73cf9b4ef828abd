// Package introspection answers __schema and __type queries on top of another
// executor.Runtime.
package introspection

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hanpama/graphqlerr/internal/executor"
	"github.com/hanpama/graphqlerr/internal/schema"
)

// Wrapped is a runtime and the schema extended with the introspection types it
// resolves.
type Wrapped struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends sch with the introspection types and root fields and returns a
// runtime resolving them, delegating every other field to base. sch is not
// modified.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapped {
	ext := extend(sch)
	return &Wrapped{
		Runtime: &runtime{base: base, schema: ext},
		Schema:  ext,
	}
}

func extend(sch *schema.Schema) *schema.Schema {
	types, rootFields := schema.Introspection()

	out := *sch
	out.Types = maps.Clone(sch.Types)
	for _, t := range types {
		out.Types[t.Name] = t
	}
	if q := sch.GetQueryType(); q != nil {
		qc := *q
		qc.Fields = append(slices.Clip(q.Fields), rootFields...)
		out.Types[q.Name] = &qc
	}
	return &out
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch src := source.(type) {
	case *schema.Schema:
		return r.schemaField(src, field)
	case *schema.Type:
		return r.typeField(src, field, args)
	case *schema.TypeRef:
		return r.wrapperField(src, field)
	case *schema.Field:
		return r.fieldField(src, field, args)
	case *schema.InputValue:
		return r.inputValueField(src, field)
	case *schema.EnumValue:
		return enumValueField(src, field)
	case *schema.Directive:
		return r.directiveField(src, field, args)
	}

	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	if typ == "__TypeKind" || typ == "__DirectiveLocation" {
		return fmt.Sprint(value), nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func unknownField(typ, field string) error {
	return fmt.Errorf("introspection: %s has no field %q", typ, field)
}
