package converter

import (
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/apd/v3"
	goreflect "github.com/goccy/go-reflect"
	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
)

// GetFieldKey is the tag of the field access expression.
const GetFieldKey = "$getField"

// IsSimpleFieldReference reports whether x addresses a stored field, either as
// a "$path" string or as a chain of $getField expressions rooted at one.
// Variable references such as "$$ROOT" never qualify.
func IsSimpleFieldReference(x any) bool {
	_, ok := ResolvePath(x)
	return ok
}

// ResolvePath returns the dotted path addressed by x. Both "$item.price" and
// {"$getField": {"input": "$item", "field": "price"}} resolve to "item.price".
func ResolvePath(x any) (string, bool) {
	if s, ok := x.(string); ok {
		return fieldName(s)
	}

	doc, ok := asDocument(x)
	if !ok || doc.Len() != 1 || !doc.Has(GetFieldKey) {
		return "", false
	}
	args, ok := asDocument(doc.Get(GetFieldKey))
	if !ok || args.Len() != 2 || !args.Has("input") || !args.Has("field") {
		return "", false
	}
	name, ok := args.Get("field").(string)
	if !ok || !isPathSegment(name) {
		return "", false
	}
	input, ok := ResolvePath(args.Get("input"))
	if !ok {
		return "", false
	}
	return input + "." + name, true
}

// fieldName strips the leading "$" of a field reference. Each dotted segment
// must be made of letters, digits and underscores.
func fieldName(s string) (string, bool) {
	path, ok := strings.CutPrefix(s, "$")
	if !ok || path == "" {
		return "", false
	}
	for segment := range strings.SplitSeq(path, ".") {
		if segment == "" {
			return "", false
		}
		for _, r := range segment {
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return "", false
			}
		}
	}
	return path, true
}

// isPathSegment reports whether a $getField name can be appended to a dotted
// path without changing which field it addresses.
func isPathSegment(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".$")
}

// IsSimpleValue reports whether v is a literal that can be used as a predicate
// argument: a scalar, or a list containing only such values. Strings starting
// with "$" are references, and documents are never simple.
func IsSimpleValue(v any) bool {
	switch t := v.(type) {
	case nil, bool, time.Time, time.Duration, uuid.UUID, apd.Decimal, []byte:
		return true
	case *apd.Decimal:
		return t != nil
	case string:
		return !strings.HasPrefix(t, "$")
	case []any:
		for _, item := range t {
			if !IsSimpleValue(item) {
				return false
			}
		}
		return true
	case domain.Document, map[string]any:
		return false
	}
	return isSimpleReflect(goreflect.ValueNoEscapeOf(v))
}

func isSimpleReflect(r goreflect.Value) bool {
	switch r.Kind() {
	case goreflect.Bool,
		goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64,
		goreflect.Uint, goreflect.Uint8, goreflect.Uint16, goreflect.Uint32, goreflect.Uint64,
		goreflect.Float32, goreflect.Float64:
		return true
	case goreflect.String:
		return !strings.HasPrefix(r.String(), "$")
	case goreflect.Slice, goreflect.Array:
		for i := range r.Len() {
			item := r.Index(i)
			if !item.CanInterface() || !IsSimpleValue(item.Interface()) {
				return false
			}
		}
		return true
	}
	// maps, structs, pointers and anything unknown are kept out
	return false
}

func asDocument(v any) (domain.Document, bool) {
	switch t := v.(type) {
	case domain.Document:
		return t, true
	case map[string]any:
		return data.M(t), true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}
