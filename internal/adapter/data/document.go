// Package data contains the default [domain.Document] implementation and the
// extended JSON reader used to load documents and expressions.
package data

import (
	"iter"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	goreflect "github.com/goccy/go-reflect"
	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

// TagName is the struct tag read when converting structs into documents.
const TagName = "mql"

// M implements domain.Document by using a hashed map. Duplicates replace old
// values.
type M map[string]any

// NewDocument returns a new instance of [domain.Document]. Maps and structs are
// converted recursively, so nested maps and slices of maps become [M] and
// []any as well.
func NewDocument(in any) (domain.Document, error) {
	if in == nil {
		return M{}, nil
	}
	switch t := in.(type) {
	case M:
		return copyDoc(t), nil
	case domain.Document:
		return copyDoc(t), nil
	case map[string]any:
		return copyMap(t), nil
	}

	r := goreflect.ValueNoEscapeOf(in)
	k := r.Kind()
	for k == goreflect.Interface || k == reflect.Pointer {
		if r.IsNil() {
			return M{}, nil
		}
		r = r.Elem()
		k = r.Kind()
	}
	if k != goreflect.Struct && k != goreflect.Map {
		return nil, domain.ErrDocumentType{Value: in}
	}
	doc, err := parseReflect(r)
	if err != nil {
		return nil, err
	}
	return doc.(domain.Document), nil
}

// Value normalizes a single value the same way [NewDocument] normalizes
// document fields.
func Value(v any) any {
	switch t := v.(type) {
	case domain.Document:
		return copyDoc(t)
	case map[string]any:
		return copyMap(t)
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = Value(item)
		}
		return res
	default:
		return v
	}
}

func copyDoc(d domain.Document) M {
	res := make(M, d.Len())
	for k, v := range d.Iter() {
		res[k] = Value(v)
	}
	return res
}

func copyMap(m map[string]any) M {
	res := make(M, len(m))
	for k, v := range m {
		res[k] = Value(v)
	}
	return res
}

func parseReflect(r goreflect.Value) (any, error) {
	if r.IsValid() && r.CanInterface() {
		switch t := r.Interface().(type) {
		case *apd.Decimal, apd.Decimal, time.Time, time.Duration, uuid.UUID:
			return t, nil
		}
	}
	for r.Kind() == reflect.Pointer || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return nil, nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return nil, nil
	case goreflect.Slice:
		if r.IsNil() {
			return nil, nil
		}
		if r.Type().Elem().Kind() == goreflect.Uint8 {
			return r.Interface(), nil
		}
		fallthrough
	case goreflect.Array:
		if r.Kind() == goreflect.Array && r.Type().Elem().Kind() == goreflect.Uint8 {
			// fixed size byte arrays (uuid.UUID) are scalars
			return r.Interface(), nil
		}
		return parseList(r)
	case goreflect.Struct:
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return nil, nil
		}
		return parseMapReflect(r)
	case goreflect.Chan, goreflect.Func:
		if r.IsNil() {
			return nil, nil
		}
		return r.Interface(), nil
	default:
		return Value(r.Interface()), nil
	}
}

func parseStruct(r goreflect.Value) (domain.Document, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(M, numField)

	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		fieldInfo, err := parseField(r.Field(n), field)
		if err != nil {
			return nil, err
		}
		if fieldInfo == nil {
			continue
		}
		res[fieldInfo.name] = fieldInfo.value
	}
	return res, nil
}

func parseMapReflect(v goreflect.Value) (domain.Document, error) {
	res := make(M, v.Len())
	for _, k := range v.MapKeys() {
		if k.Kind() != goreflect.String {
			return nil, domain.ErrDocumentType{Value: v.Interface()}
		}
		var err error
		if res[k.String()], err = parseReflect(v.MapIndex(k)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type field struct {
	name  string
	value any
}

func parseField(r goreflect.Value, typ goreflect.StructField) (*field, error) {
	name := typ.Name
	var tagSegments []string
	if tag, ok := typ.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return nil, nil
		}
		tagSegments = strings.Split(tag, ",")
		if tagSegments[0] != "" {
			name = tagSegments[0]
		}
		tagSegments = tagSegments[1:]
	}
	if slices.Contains(tagSegments, "omitempty") && isNullable(typ.Type) && r.IsNil() {
		return nil, nil
	}
	if slices.Contains(tagSegments, "omitzero") && r.IsZero() {
		return nil, nil
	}

	value, err := parseReflect(r)
	if err != nil {
		return nil, err
	}

	return &field{name: name, value: value}, nil
}

func parseList(r goreflect.Value) (any, error) {
	length := r.Len()
	res := make([]any, length)
	for i := range length {
		v, err := parseReflect(r.Index(i))
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface
}

// ID implements domain.Document
func (d M) ID() any {
	return d["_id"]
}

// Get implements domain.Document
func (d M) Get(key string) any {
	return d[key]
}

// Set implements domain.Document
func (d M) Set(key string, value any) {
	d[key] = value
}

// Unset implements domain.Document
func (d M) Unset(key string) {
	delete(d, key)
}

// D implements domain.Document
func (d M) D(key string) domain.Document {
	if doc, ok := d[key].(domain.Document); ok {
		return doc
	}
	return nil
}

// Iter implements domain.Document.
func (d M) Iter() iter.Seq2[string, any] {
	return maps.All(d)
}

// Keys implements domain.Document.
func (d M) Keys() iter.Seq[string] {
	return maps.Keys(d)
}

// Len implements domain.Document.
func (d M) Len() int {
	return len(d)
}

// Values implements domain.Document.
func (d M) Values() iter.Seq[any] {
	return maps.Values(d)
}

// Has implements domain.Document.
func (d M) Has(key string) bool {
	_, has := d[key]
	return has
}

// UnmarshalJSON implements json.Unmarshaler. Extended JSON wrappers are
// converted into their Go values.
func (d *M) UnmarshalJSON(input []byte) error {
	v, err := ParseJSON(input)
	if err != nil {
		return err
	}
	obj, ok := v.(M)
	if !ok {
		return domain.ErrDocumentType{Value: v}
	}
	*d = obj
	return nil
}
