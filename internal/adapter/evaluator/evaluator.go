// Package evaluator evaluates aggregation expressions, the language used
// inside $expr, against a single document.
package evaluator

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	goreflect "github.com/goccy/go-reflect"
	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/fieldnavigator"
)

type operator func(doc domain.Document, args any) (any, error)

// Evaluator implements [domain.Evaluator].
type Evaluator struct {
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
	variables      map[string]any
	operators      map[string]operator
}

// NewEvaluator returns a new implementation of [domain.Evaluator].
func NewEvaluator(options ...domain.EvaluatorOption) domain.Evaluator {
	opts := domain.EvaluatorOptions{
		Comparer:       comparer.NewComparer(),
		FieldNavigator: fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(&opts)
	}

	e := &Evaluator{
		comparer:       opts.Comparer,
		fieldNavigator: opts.FieldNavigator,
		variables:      opts.Variables,
	}
	e.operators = map[string]operator{
		"$literal":  e.literal,
		"$getField": e.getField,
		"$eq":       e.compareWith("$eq", func(c int) bool { return c == 0 }),
		"$ne":       e.compareWith("$ne", func(c int) bool { return c != 0 }),
		"$gt":       e.compareWith("$gt", func(c int) bool { return c > 0 }),
		"$gte":      e.compareWith("$gte", func(c int) bool { return c >= 0 }),
		"$lt":       e.compareWith("$lt", func(c int) bool { return c < 0 }),
		"$lte":      e.compareWith("$lte", func(c int) bool { return c <= 0 }),
		"$cmp":      e.cmp,
		"$in":       e.in,
		"$and":      e.and,
		"$or":       e.or,
		"$not":      e.not,
		"$type":     e.typeOf,
	}
	return e
}

// Evaluate implements [domain.Evaluator].
func (e *Evaluator) Evaluate(doc domain.Document, expr any) (any, error) {
	switch t := expr.(type) {
	case string:
		return e.reference(doc, t)
	case []any:
		return e.array(doc, t)
	case domain.Document:
		return e.document(doc, t)
	case map[string]any:
		return e.document(doc, data.M(t))
	case []byte, uuid.UUID:
		return expr, nil
	}
	r := goreflect.ValueNoEscapeOf(expr)
	if k := r.Kind(); k != goreflect.Slice && k != goreflect.Array {
		return expr, nil
	}
	// typed lists are read as arrays of their elements
	items := make([]any, r.Len())
	for i := range items {
		items[i] = r.Index(i).Interface()
	}
	return e.array(doc, items)
}

func (e *Evaluator) array(doc domain.Document, items []any) (any, error) {
	res := make([]any, len(items))
	for n, item := range items {
		v, err := e.Evaluate(doc, item)
		if err != nil {
			return nil, err
		}
		// missing values become null inside arrays
		res[n] = e.value(v)
	}
	return res, nil
}

// Truthy implements [domain.Evaluator]. False, null, missing and zero values
// of any numeric type are false, everything else is true.
func (e *Evaluator) Truthy(v any) bool {
	if g, ok := v.(domain.Getter); ok {
		value, defined := g.Get()
		if !defined {
			return false
		}
		v = value
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	}
	if e.comparer.Comparable(v, 0) {
		c, _ := e.comparer.Compare(v, 0)
		return c != 0
	}
	return true
}

func (e *Evaluator) document(doc domain.Document, expr domain.Document) (any, error) {
	if expr.Len() == 1 {
		for k, args := range expr.Iter() {
			if strings.HasPrefix(k, "$") {
				op, ok := e.operators[k]
				if !ok {
					return nil, domain.ErrUnknownOperator{Operator: k}
				}
				return op(doc, args)
			}
		}
	}

	res := make(data.M, expr.Len())
	for k, sub := range expr.Iter() {
		if strings.HasPrefix(k, "$") {
			return nil, domain.ErrArgument{Operator: k, Reason: "cannot be combined with other fields"}
		}
		v, err := e.Evaluate(doc, sub)
		if err != nil {
			return nil, err
		}
		if !e.defined(v) {
			continue
		}
		res[k] = v
	}
	return res, nil
}

// reference resolves "$field.path" and "$$variable.path" strings. Other
// strings are literals.
func (e *Evaluator) reference(doc domain.Document, s string) (any, error) {
	if !strings.HasPrefix(s, "$") {
		return s, nil
	}
	var root any = doc
	path := s[1:]
	if name, ok := strings.CutPrefix(path, "$"); ok {
		name, rest, _ := strings.Cut(name, ".")
		switch name {
		case "ROOT", "CURRENT":
		default:
			v, ok := e.variables[name]
			if !ok {
				return nil, domain.ErrArgument{Operator: "$$" + name, Reason: "is not defined"}
			}
			root = data.Value(v)
		}
		if rest == "" {
			return root, nil
		}
		path = rest
	}
	if path == "" {
		return nil, domain.ErrArgument{Operator: s, Reason: "is not a valid field path"}
	}

	addr, err := e.fieldNavigator.GetAddress(path)
	if err != nil {
		return nil, err
	}
	getters, expanded, err := e.fieldNavigator.GetField(root, addr...)
	if err != nil {
		return nil, err
	}
	if !expanded {
		if len(getters) == 0 {
			return fieldnavigator.Missing(), nil
		}
		if v, ok := getters[0].Get(); ok {
			return v, nil
		}
		return getters[0], nil
	}
	res := make([]any, 0, len(getters))
	for _, g := range getters {
		if v, ok := g.Get(); ok {
			res = append(res, v)
		}
	}
	return res, nil
}

func (e *Evaluator) literal(_ domain.Document, args any) (any, error) {
	return args, nil
}

// getField reads a field by its literal name, which may contain dots or
// dollar signs.
func (e *Evaluator) getField(doc domain.Document, args any) (any, error) {
	var fieldExpr, inputExpr any = args, "$$CURRENT"
	if d, ok := asDocument(args); ok {
		if !d.Has("field") {
			return nil, domain.ErrArgument{Operator: "$getField", Reason: "requires 'field'"}
		}
		for k := range d.Keys() {
			if k != "field" && k != "input" {
				return nil, domain.ErrArgument{Operator: "$getField", Reason: "found an unknown argument: " + k}
			}
		}
		fieldExpr = d.Get("field")
		if d.Has("input") {
			inputExpr = d.Get("input")
		}
	}

	field, err := e.Evaluate(doc, fieldExpr)
	if err != nil {
		return nil, err
	}
	name, ok := field.(string)
	if !ok {
		return nil, domain.ErrArgument{Operator: "$getField", Reason: "requires 'field' to evaluate to a string"}
	}

	input, err := e.Evaluate(doc, inputExpr)
	if err != nil {
		return nil, err
	}
	if !e.defined(input) || input == nil {
		return nil, nil
	}
	obj, ok := asDocument(input)
	if !ok {
		return nil, domain.ErrArgument{Operator: "$getField", Reason: "requires 'input' to evaluate to an object"}
	}
	if !obj.Has(name) {
		return fieldnavigator.Missing(), nil
	}
	return obj.Get(name), nil
}

func (e *Evaluator) compareWith(name string, check func(int) bool) operator {
	return func(doc domain.Document, args any) (any, error) {
		c, err := e.compareArgs(name, doc, args)
		if err != nil {
			return nil, err
		}
		return check(c), nil
	}
}

func (e *Evaluator) cmp(doc domain.Document, args any) (any, error) {
	c, err := e.compareArgs("$cmp", doc, args)
	if err != nil {
		return nil, err
	}
	return int64(c), nil
}

func (e *Evaluator) compareArgs(name string, doc domain.Document, args any) (int, error) {
	values, err := e.evaluateArgs(name, doc, args, 2)
	if err != nil {
		return 0, err
	}
	return e.comparer.Compare(values[0], values[1])
}

func (e *Evaluator) in(doc domain.Document, args any) (any, error) {
	values, err := e.evaluateArgs("$in", doc, args, 2)
	if err != nil {
		return nil, err
	}
	list, ok := values[1].([]any)
	if !ok {
		return nil, domain.ErrArgument{Operator: "$in", Reason: "requires an array as a second argument"}
	}
	for _, item := range list {
		c, err := e.comparer.Compare(values[0], item)
		if err != nil {
			return nil, err
		}
		if c == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) and(doc domain.Document, args any) (any, error) {
	for _, sub := range e.list(args) {
		v, err := e.Evaluate(doc, sub)
		if err != nil {
			return nil, err
		}
		if !e.Truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) or(doc domain.Document, args any) (any, error) {
	for _, sub := range e.list(args) {
		v, err := e.Evaluate(doc, sub)
		if err != nil {
			return nil, err
		}
		if e.Truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) not(doc domain.Document, args any) (any, error) {
	values, err := e.evaluateArgs("$not", doc, e.list(args), 1)
	if err != nil {
		return nil, err
	}
	return !e.Truthy(values[0]), nil
}

func (e *Evaluator) typeOf(doc domain.Document, args any) (any, error) {
	values, err := e.evaluateArgs("$type", doc, e.list(args), 1)
	if err != nil {
		return nil, err
	}
	return e.typeName(values[0]), nil
}

func (e *Evaluator) typeName(v any) string {
	if !e.defined(v) {
		return "missing"
	}
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case int8, int16, int32, uint8, uint16:
		return "int"
	case int, int64, uint, uint32, uint64, time.Duration:
		return "long"
	case float32, float64:
		return "double"
	case *apd.Decimal, apd.Decimal:
		return "decimal"
	case time.Time:
		return "date"
	case uuid.UUID, []byte:
		return "binData"
	case []any:
		return "array"
	case domain.Document, map[string]any:
		return "object"
	}
	return "unknown"
}

// list wraps a single argument so that {"$not": x} and {"$not": [x]} are the
// same.
func (e *Evaluator) list(args any) []any {
	if l, ok := args.([]any); ok {
		return l
	}
	return []any{args}
}

func (e *Evaluator) evaluateArgs(name string, doc domain.Document, args any, n int) ([]any, error) {
	list, ok := args.([]any)
	if !ok || len(list) != n {
		return nil, domain.ErrArgument{Operator: name, Reason: fmt.Sprintf("expects %d arguments", n)}
	}
	res := make([]any, n)
	for i, item := range list {
		v, err := e.Evaluate(doc, item)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (e *Evaluator) defined(v any) bool {
	if g, ok := v.(domain.Getter); ok {
		_, defined := g.Get()
		return defined
	}
	return true
}

func (e *Evaluator) value(v any) any {
	if g, ok := v.(domain.Getter); ok {
		value, _ := g.Get()
		return value
	}
	return v
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
