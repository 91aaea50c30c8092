// Package converter rewrites single $expr nodes into the equivalent $match
// predicates.
//
// A node is either rewritten exactly or left alone. Nested $and and $or groups
// are all-or-nothing: one branch that cannot be rewritten keeps the whole
// group in expression form.
package converter

import (
	"time"

	goreflect "github.com/goccy/go-reflect"
	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
)

// Converter implements [domain.Converter].
type Converter struct {
	documentFactory domain.DocumentFactory
}

// NewConverter returns a new implementation of [domain.Converter].
func NewConverter(options ...domain.ConverterOption) domain.Converter {
	opts := domain.ConverterOptions{
		DocumentFactory: data.NewDocument,
	}
	for _, option := range options {
		option(&opts)
	}
	return &Converter{
		documentFactory: opts.DocumentFactory,
	}
}

// Convert implements [domain.Converter]. expr must be a document with a single
// recognized operator key, such as {"$eq": ["$status", "active"]}.
func (c *Converter) Convert(expr any) (domain.Document, bool) {
	doc, ok := asDocument(expr)
	if !ok || doc.Len() != 1 {
		return nil, false
	}
	for tag, args := range doc.Iter() {
		op, ok := ParseOperator(tag)
		if !ok {
			return nil, false
		}
		return c.convert(op, args)
	}
	return nil, false
}

func (c *Converter) convert(op Operator, args any) (domain.Document, bool) {
	switch op {
	case OpEq:
		return c.convertEq(args)
	case OpGt, OpGte, OpLt, OpLte:
		return c.convertBinary(op, args)
	case OpIn:
		return c.convertIn(args)
	case OpAnd, OpOr:
		return c.convertLogical(op, args)
	}
	return nil, false
}

// operands splits a two element argument list into a resolved field path and
// a simple value. direct is false when the path was built from $getField.
func (c *Converter) operands(args any) (path string, value any, direct, ok bool) {
	list, ok := asList(args)
	if !ok || len(list) != 2 {
		return "", nil, false, false
	}
	path, ok = ResolvePath(list[0])
	if !ok || !IsSimpleValue(list[1]) {
		return "", nil, false, false
	}
	_, direct = list[0].(string)
	return path, list[1], direct, true
}

// convertEq keeps explicit nulls apart from missing fields, because the
// predicate {path: null} matches both. $getField yields null for a missing or
// null input, so null equality through it has no query form.
func (c *Converter) convertEq(args any) (domain.Document, bool) {
	path, value, direct, ok := c.operands(args)
	if !ok {
		return nil, false
	}
	if value == nil {
		if !direct {
			return nil, false
		}
		exists, ok := c.doc(path, c.op("$exists", true))
		if !ok {
			return nil, false
		}
		null, ok := c.doc(path, nil)
		if !ok {
			return nil, false
		}
		return c.doc(OpAnd.String(), []any{exists, null})
	}
	return c.doc(path, value)
}

// convertBinary refuses null bounds. Queries only order values of the same
// type, so {path: {"$gt": null}} matches nothing while the expression is true
// for every non-null field.
func (c *Converter) convertBinary(op Operator, args any) (domain.Document, bool) {
	path, value, _, ok := c.operands(args)
	if !ok || value == nil {
		return nil, false
	}
	return c.doc(path, c.op(op.String(), value))
}

func (c *Converter) convertIn(args any) (domain.Document, bool) {
	list, ok := asList(args)
	if !ok || len(list) != 2 {
		return nil, false
	}
	path, ok := ResolvePath(list[0])
	if !ok || !isValueList(list[1]) || hasNull(list[1]) {
		return nil, false
	}
	return c.doc(path, c.op(OpIn.String(), list[1]))
}

func (c *Converter) convertLogical(op Operator, args any) (domain.Document, bool) {
	list, ok := asList(args)
	if !ok || len(list) == 0 {
		return nil, false
	}
	conditions := make([]any, 0, len(list))
	for _, sub := range list {
		converted, ok := c.Convert(sub)
		if !ok {
			return nil, false
		}
		conditions = append(conditions, converted)
	}
	return c.doc(op.String(), conditions)
}

func (c *Converter) op(tag string, value any) domain.Document {
	d, ok := c.doc(tag, value)
	if !ok {
		return data.M{tag: value}
	}
	return d
}

func (c *Converter) doc(key string, value any) (domain.Document, bool) {
	d, err := c.documentFactory(nil)
	if err != nil {
		return nil, false
	}
	d.Set(key, value)
	return d, true
}

// isValueList reports whether v is a list of simple values. Binary values and
// UUIDs are scalars, not lists.
func isValueList(v any) bool {
	switch v.(type) {
	case []any:
		return IsSimpleValue(v)
	case []byte, uuid.UUID, time.Time, nil:
		return false
	}
	k := goreflect.ValueNoEscapeOf(v).Kind()
	return (k == goreflect.Slice || k == goreflect.Array) && IsSimpleValue(v)
}

// hasNull reports whether list holds a null. A null inside a query $in also
// matches missing fields.
func hasNull(list any) bool {
	r := goreflect.ValueNoEscapeOf(list)
	for i := range r.Len() {
		item := r.Index(i)
		if !item.CanInterface() {
			continue
		}
		if v := item.Interface(); v == nil {
			return true
		}
	}
	return false
}
