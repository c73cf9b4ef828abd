// Package repr renders arbitrary Go values as short, human-readable text for
// diagnostics. Output is bounded in size and rendering never panics: a value
// that cannot be rendered yields a placeholder instead.
package repr

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Size limits applied while rendering.
const (
	MaxLevel  = 6  // nesting depth of lists and maps
	MaxList   = 6  // elements shown for slices and arrays
	MaxMap    = 4  // entries shown for maps
	MaxString = 30 // runes of a quoted string
	MaxLong   = 40 // digits of an integer
	MaxOther  = 30 // runes of any other rendering
)

const fill = "..."

var dumper = spew.ConfigState{
	MaxDepth:                2,
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// String returns a bounded rendering of v.
func String(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = Placeholder(v)
		}
	}()
	return render(v, MaxLevel)
}

// Placeholder is the rendering used for values whose rendering failed.
func Placeholder(v any) string {
	return fmt.Sprintf("<unrepresentable %T>", v)
}

func render(v any, level int) string {
	if v == nil {
		return "nil"
	}
	rv := reflect.ValueOf(v)
	if isNil(rv) {
		return "nil"
	}

	switch x := v.(type) {
	case string:
		return truncate(strconv.Quote(x), MaxString)
	case error:
		return truncate(fmt.Sprintf("%T(%s)", x, strconv.Quote(x.Error())), MaxOther)
	case fmt.Stringer:
		return truncate(x.String(), MaxOther)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return truncate(strconv.FormatInt(rv.Int(), 10), MaxLong)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return truncate(strconv.FormatUint(rv.Uint(), 10), MaxLong)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 128)
	case reflect.String:
		return truncate(strconv.Quote(rv.String()), MaxString)
	case reflect.Slice, reflect.Array:
		return renderList(rv, level)
	case reflect.Map:
		return renderMap(rv, level)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "<" + rv.Type().String() + ">"
	}
	return truncate(dumper.Sprintf("%+v", v), MaxOther)
}

func renderList(rv reflect.Value, level int) string {
	n := rv.Len()
	if n == 0 {
		return "[]"
	}
	if level <= 0 {
		return "[" + fill + "]"
	}
	limit := min(n, MaxList)
	parts := make([]string, 0, limit+1)
	for i := 0; i < limit; i++ {
		parts = append(parts, render(rv.Index(i).Interface(), level-1))
	}
	if n > limit {
		parts = append(parts, fill)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func renderMap(rv reflect.Value, level int) string {
	n := rv.Len()
	if n == 0 {
		return "{}"
	}
	if level <= 0 {
		return "{" + fill + "}"
	}

	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, n)
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: render(iter.Key().Interface(), level-1), value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	limit := min(n, MaxMap)
	parts := make([]string, 0, limit+1)
	for _, e := range entries[:limit] {
		parts = append(parts, e.key+": "+render(e.value.Interface(), level-1))
	}
	if n > limit {
		parts = append(parts, fill)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// truncate shortens s to at most limit runes, keeping both ends.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	i := max((limit-len(fill))/2, 0)
	j := max(limit-len(fill)-i, 0)
	return string(r[:i]) + fill + string(r[len(r)-j:])
}

func isNil(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
