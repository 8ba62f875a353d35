package worker

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/itsneelabh/evalsession/ipc"
)

// Undefined is the sentinel evaluators return in place of Go's nil to
// distinguish a "no value at all" result from an explicit null. A bare
// nil interface is treated as null.
type Undefined struct{}

func isUndefined(v interface{}) bool {
	_, ok := v.(Undefined)
	return ok
}

// InspectionResult is the structured description of a value returned
// by an inspect request, before documentation lookup is layered on.
type InspectionResult struct {
	String          string
	Type            string
	ConstructorList []string
	Length          *int
}

// ToPayload converts the result to its wire shape.
func (r InspectionResult) ToPayload() *ipc.InspectionPayload {
	return &ipc.InspectionPayload{
		String:          r.String,
		Type:            r.Type,
		ConstructorList: r.ConstructorList,
		Length:          r.Length,
	}
}

// Inspect produces the structured description of v used by the inspect
// request. Its String field is CanonicalInspect(v), the same text the
// MIME encoder's default text/plain rule uses.
func Inspect(v interface{}) InspectionResult {
	if v == nil {
		return InspectionResult{String: "null", Type: "Null"}
	}
	if isUndefined(v) {
		return InspectionResult{String: "undefined", Type: "Undefined"}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return InspectionResult{String: CanonicalInspect(v), Type: "Boolean", ConstructorList: []string{"Boolean", "Object"}}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return InspectionResult{String: CanonicalInspect(v), Type: "Number", ConstructorList: []string{"Number", "Object"}}
	case reflect.String:
		n := rv.Len()
		return InspectionResult{String: CanonicalInspect(v), Type: "String", ConstructorList: []string{"String", "Object"}, Length: &n}
	case reflect.Func:
		n := rv.Type().NumIn()
		return InspectionResult{String: CanonicalInspect(v), Type: "Function", ConstructorList: []string{"Function", "Object"}, Length: &n}
	}

	list := constructorList(v)
	typ := ""
	if len(list) > 0 {
		typ = list[0]
	}
	result := InspectionResult{String: CanonicalInspect(v), Type: typ, ConstructorList: list}
	if n, ok := propertyLength(v); ok {
		result.Length = &n
	}
	return result
}

func propertyLength(v interface{}) (int, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// constructorList walks the Go analogue of a prototype chain: embedded
// struct fields, from the concrete type outward, terminating the walk
// once no further embedded struct is found and appending the universal
// "Object" root.
func constructorList(v interface{}) []string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return []string{"Array", "Object"}
	case reflect.Map:
		return []string{"Object"}
	case reflect.Ptr:
		if rv.IsNil() {
			return []string{"Object"}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return []string{"Object"}
	}

	var chain []string
	t := rv.Type()
	for t != nil && t.Kind() == reflect.Struct {
		if t.Name() != "" {
			chain = append(chain, t.Name())
		}
		var next reflect.Type
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				next = f.Type
				if next.Kind() == reflect.Ptr {
					next = next.Elem()
				}
				break
			}
		}
		t = next
	}
	chain = append(chain, "Object")
	return chain
}

// GetAllPropertyNames enumerates own-property names across the Go
// analogue of a prototype chain (exported fields and methods for
// structs, walking embedded fields as the chain; string keys for
// string-keyed maps), sorting each level and skipping names already
// seen at an earlier level.
func GetAllPropertyNames(v interface{}) []string {
	if v == nil || isUndefined(v) {
		return []string{}
	}

	seen := make(map[string]bool)
	result := []string{}
	add := func(names []string) {
		sort.Strings(names)
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				result = append(result, n)
			}
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			keys := make([]string, 0, rv.Len())
			for _, k := range rv.MapKeys() {
				keys = append(keys, k.String())
			}
			add(keys)
		}
		return result
	case reflect.Ptr:
		if rv.IsNil() {
			return result
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return result
	}

	t := rv.Type()
	visited := make(map[reflect.Type]bool)
	for t != nil && t.Kind() == reflect.Struct && !visited[t] {
		visited[t] = true
		var level []string
		var next reflect.Type
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				if next == nil {
					next = f.Type
					if next.Kind() == reflect.Ptr {
						next = next.Elem()
					}
				}
				continue
			}
			if f.PkgPath == "" {
				level = append(level, f.Name)
			}
		}
		ptrType := reflect.PtrTo(t)
		for i := 0; i < ptrType.NumMethod(); i++ {
			level = append(level, ptrType.Method(i).Name)
		}
		add(level)
		t = next
	}
	return result
}

// CanonicalInspect renders a value the way the default MIME encoder's
// text/plain entry does: strings single-quoted, slices/arrays bracketed
// with spaced elements, maps as "{ k: v }" with sorted keys, functions as
// "[Function]", pointers by their target (nil as "null"), everything else
// via fmt's %v.
func CanonicalInspect(v interface{}) string {
	if v == nil {
		return "null"
	}
	if isUndefined(v) {
		return "undefined"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return quoteSingle(rv.String())
	case reflect.Func:
		return "[Function]"
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return "[]"
		}
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = CanonicalInspect(rv.Index(i).Interface())
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	case reflect.Map:
		if rv.Len() == 0 {
			return "{}"
		}
		keys := make([]string, 0, rv.Len())
		keyIndex := make(map[string]reflect.Value, rv.Len())
		for _, k := range rv.MapKeys() {
			ks := fmt.Sprintf("%v", k.Interface())
			keys = append(keys, ks)
			keyIndex[ks] = k
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			val := rv.MapIndex(keyIndex[k]).Interface()
			parts = append(parts, fmt.Sprintf("%s: %s", k, CanonicalInspect(val)))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case reflect.Ptr:
		if rv.IsNil() {
			return "null"
		}
		return CanonicalInspect(rv.Elem().Interface())
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
