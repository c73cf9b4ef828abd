package introspection

import (
	"maps"
	"slices"
	"strings"

	"github.com/hanpama/graphqlerr/internal/schema"
)

func (r *runtime) schemaField(s *schema.Schema, field string) (any, error) {
	switch field {
	case "description":
		return optional(s.Description), nil
	case "types":
		names := slices.Sorted(maps.Keys(s.Types))
		out := make([]*schema.Type, 0, len(names))
		for _, name := range names {
			out = append(out, s.Types[name])
		}
		return out, nil
	case "queryType":
		return typeOrNil(s.GetQueryType()), nil
	case "mutationType":
		return typeOrNil(s.GetMutationType()), nil
	case "subscriptionType":
		return typeOrNil(s.GetSubscriptionType()), nil
	case "directives":
		names := slices.Sorted(maps.Keys(s.Directives))
		out := make([]*schema.Directive, 0, len(names))
		for _, name := range names {
			out = append(out, s.Directives[name])
		}
		return out, nil
	}
	return nil, unknownField("__Schema", field)
}

func (r *runtime) typeField(t *schema.Type, field string, args map[string]any) (any, error) {
	switch field {
	case "kind":
		return string(t.Kind), nil
	case "name":
		return t.Name, nil
	case "description":
		return optional(t.Description), nil
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil, nil
		}
		return *t.SpecifiedByURL, nil
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, nil
		}
		fields := slices.DeleteFunc(slices.Clone(t.Fields), func(f *schema.Field) bool {
			return strings.HasPrefix(f.Name, "__")
		})
		return visible(fields, args, func(f *schema.Field) bool { return f.IsDeprecated }), nil
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, nil
		}
		return r.lookup(t.Interfaces), nil
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, nil
		}
		return r.lookup(t.PossibleTypes), nil
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, nil
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) bool { return v.IsDeprecated }), nil
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, nil
		}
		return visible(t.InputFields, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), nil
	case "ofType":
		return nil, nil
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, nil
		}
		return t.OneOf, nil
	}
	return nil, unknownField("__Type", field)
}

// wrapperField resolves __Type fields of a List or Non-Null type.
func (r *runtime) wrapperField(ref *schema.TypeRef, field string) (any, error) {
	switch field {
	case "kind":
		return string(ref.Kind), nil
	case "ofType":
		return r.typeRef(ref.OfType), nil
	case "name", "description", "specifiedByURL", "fields", "interfaces",
		"possibleTypes", "enumValues", "inputFields", "isOneOf":
		return nil, nil
	}
	return nil, unknownField("__Type", field)
}

func (r *runtime) fieldField(f *schema.Field, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return f.Name, nil
	case "description":
		return optional(f.Description), nil
	case "args":
		return visible(f.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), nil
	case "type":
		return r.typeRef(f.Type), nil
	case "isDeprecated":
		return f.IsDeprecated, nil
	case "deprecationReason":
		return reason(f.IsDeprecated, f.DeprecationReason), nil
	}
	return nil, unknownField("__Field", field)
}

func (r *runtime) inputValueField(v *schema.InputValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optional(v.Description), nil
	case "type":
		return r.typeRef(v.Type), nil
	case "defaultValue":
		return optional(v.DefaultLiteral), nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__InputValue", field)
}

func enumValueField(v *schema.EnumValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optional(v.Description), nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__EnumValue", field)
}

func (r *runtime) directiveField(d *schema.Directive, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return d.Name, nil
	case "description":
		return optional(d.Description), nil
	case "isRepeatable":
		return d.IsRepeatable, nil
	case "locations":
		return slices.Clone(d.Locations), nil
	case "args":
		return visible(d.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated }), nil
	}
	return nil, unknownField("__Directive", field)
}

// typeRef returns the value completed as a __Type: the named type itself, or
// the wrapper for List and Non-Null.
func (r *runtime) typeRef(ref *schema.TypeRef) any {
	if ref == nil {
		return nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		return typeOrNil(r.schema.Types[ref.Named])
	}
	return ref
}

func (r *runtime) lookup(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := r.schema.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

// visible drops hidden items unless includeDeprecated is set. Definition order
// is kept.
func visible[T any](items []T, args map[string]any, hidden func(T) bool) []T {
	include, _ := args["includeDeprecated"].(bool)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !include && hidden(it) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func typeOrNil(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, r string) any {
	if !deprecated {
		return nil
	}
	return r
}
