// Package matcher evaluates $match filters against documents.
package matcher

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/evaluator"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/fieldnavigator"
)

type oper func(domain.Document, []string, any) (bool, error)

type matchFn func(any, any) (bool, error)

// Matcher implements [domain.Matcher].
type Matcher struct {
	documentFactory domain.DocumentFactory
	comparer        domain.Comparer
	fieldNavigator  domain.FieldNavigator
	evaluator       domain.Evaluator
	compFuncs       map[string]oper
	logicOps        map[string]func(domain.Document, any) (bool, error)
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...domain.MatcherOption) domain.Matcher {
	opts := domain.MatcherOptions{
		DocumentFactory: data.NewDocument,
		Comparer:        comparer.NewComparer(),
		FieldNavigator:  fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Evaluator == nil {
		opts.Evaluator = evaluator.NewEvaluator(
			domain.WithEvaluatorComparer(opts.Comparer),
			domain.WithEvaluatorFieldNavigator(opts.FieldNavigator),
		)
	}

	m := &Matcher{
		documentFactory: opts.DocumentFactory,
		comparer:        opts.Comparer,
		fieldNavigator:  opts.FieldNavigator,
		evaluator:       opts.Evaluator,
	}
	m.logicOps = map[string]func(domain.Document, any) (bool, error){
		"$and":  m.and,
		"$or":   m.or,
		"$nor":  m.nor,
		"$expr": m.expr,
	}
	m.compFuncs = map[string]oper{
		"$eq":        m.eq,
		"$ne":        m.ne,
		"$lt":        m.lt,
		"$lte":       m.lte,
		"$gt":        m.gt,
		"$gte":       m.gte,
		"$in":        m.in,
		"$nin":       m.nin,
		"$exists":    m.exists,
		"$size":      m.size,
		"$not":       m.not,
		"$regex":     m.regex,
		"$elemMatch": m.elemMatch,
	}

	return m
}

// Match implements [domain.Matcher].
func (m *Matcher) Match(val any, qry any) (bool, error) {
	if qry == nil {
		return true, nil
	}
	doc, ok := asDocument(val)
	if !ok {
		return m.nonDocMatch(val, qry)
	}

	query, ok := asDocument(qry)
	if !ok {
		return false, domain.ErrArgument{Operator: "$match", Reason: fmt.Sprintf("expects an object, got %T", qry)}
	}

	return m.matchDocs(doc, query)
}

func (m *Matcher) nonDocMatch(val any, qry any) (bool, error) {
	valDoc, err := m.documentFactory(nil)
	if err != nil {
		return false, err
	}
	valDoc.Set("needAKey", val)
	return m.matchField(valDoc, []string{"needAKey"}, qry)
}

// matchDocs checks every top level condition. Logical operators and field
// conditions can be mixed at this level.
func (m *Matcher) matchDocs(obj, qry domain.Document) (bool, error) {
	for field, value := range qry.Iter() {
		var matches bool
		var err error
		if strings.HasPrefix(field, "$") {
			fn, ok := m.logicOps[field]
			if !ok {
				return false, domain.ErrUnknownOperator{Operator: field}
			}
			matches, err = fn(obj, value)
		} else {
			var addr []string
			if addr, err = m.fieldNavigator.GetAddress(field); err != nil {
				return false, err
			}
			matches, err = m.matchField(obj, addr, value)
		}
		if err != nil || !matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) matchField(obj domain.Document, addr []string, value any) (bool, error) {
	valueDoc, ok := asDocument(value)
	if !ok {
		return m.eq(obj, addr, value)
	}

	qryMap, hasOps, err := m.mapQuery(valueDoc)
	if err != nil {
		return false, err
	}

	if !hasOps {
		return m.eq(obj, addr, value)
	}

	for op := range qryMap {
		_, ok := m.compFuncs[op]
		if !ok {
			return false, domain.ErrUnknownOperator{Operator: op}
		}
	}

	for op, arg := range qryMap {
		matches, err := m.compFuncs[op](obj, addr, arg)
		if err != nil || !matches {
			return false, err
		}
	}

	return true, nil
}

func (m *Matcher) mapQuery(qry domain.Document) (map[string]any, bool, error) {
	queryMap := make(map[string]any, qry.Len())
	totalFields := 0
	dollarFields := 0
	for field, value := range qry.Iter() {
		totalFields++
		if strings.HasPrefix(field, "$") {
			dollarFields++
		}
		if dollarFields > 0 && totalFields != dollarFields {
			return nil, false, fmt.Errorf("you cannot mix operators and normal fields")
		}
		queryMap[field] = value
	}
	return queryMap, dollarFields != 0, nil
}

func (m *Matcher) conditions(op string, value any) ([]any, error) {
	arr, ok := value.([]any)
	if !ok || len(arr) == 0 {
		return nil, domain.ErrArgument{Operator: op, Reason: "must be a nonempty array"}
	}
	return arr, nil
}

func (m *Matcher) and(obj domain.Document, value any) (bool, error) {
	arr, err := m.conditions("$and", value)
	if err != nil {
		return false, err
	}
	for _, item := range arr {
		matches, err := m.Match(obj, item)
		if err != nil || !matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) or(obj domain.Document, value any) (bool, error) {
	arr, err := m.conditions("$or", value)
	if err != nil {
		return false, err
	}
	for _, item := range arr {
		matches, err := m.Match(obj, item)
		if err != nil || matches {
			return matches, err
		}
	}
	return false, nil
}

func (m *Matcher) nor(obj domain.Document, value any) (bool, error) {
	arr, err := m.conditions("$nor", value)
	if err != nil {
		return false, err
	}
	for _, item := range arr {
		matches, err := m.Match(obj, item)
		if err != nil || matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) expr(obj domain.Document, value any) (bool, error) {
	res, err := m.evaluator.Evaluate(obj, value)
	if err != nil {
		return false, err
	}
	return m.evaluator.Truthy(res), nil
}

func (m *Matcher) matchList(obj domain.Document, addr []string, value any, fn matchFn) (bool, error) {
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return false, err
	}

	for _, field := range fields {
		matches, err := m.matchGetter(field, value, fn)
		if err != nil || matches {
			return matches, err
		}
	}

	return false, nil
}

func (m *Matcher) matchGetter(field domain.Getter, value any, fn matchFn) (bool, error) {
	fieldVal, _ := field.Get()
	arr, ok := fieldVal.([]any)
	if !ok {
		arr = []any{field}
	}
	for _, item := range arr {
		matches, err := fn(item, value)
		if err != nil || matches {
			return matches, err
		}
	}
	return false, nil
}

// eq matches when any value under addr equals value. Arrays match when they
// equal value or contain it, and null matches missing fields too.
func (m *Matcher) eq(obj domain.Document, addr []string, value any) (bool, error) {
	if rgx, ok := value.(*regexp.Regexp); ok {
		return m.regex(obj, addr, rgx)
	}
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return false, err
	}
	for _, field := range fields {
		matches, err := m.equals(field, value)
		if err != nil || matches {
			return matches, err
		}
	}
	return false, nil
}

func (m *Matcher) equals(field domain.Getter, value any) (bool, error) {
	fieldValue, defined := field.Get()
	if !defined {
		return value == nil, nil
	}

	arr, ok := fieldValue.([]any)
	if !ok {
		c, err := m.comparer.Compare(fieldValue, value)
		return c == 0, err
	}

	if valueArr, ok := value.([]any); ok {
		c, err := m.comparer.Compare(arr, valueArr)
		if err != nil || c == 0 {
			return c == 0, err
		}
	}

	for _, item := range arr {
		c, err := m.comparer.Compare(item, value)
		if err != nil || c == 0 {
			return c == 0, err
		}
	}
	return false, nil
}

func (m *Matcher) ne(obj domain.Document, addr []string, b any) (bool, error) {
	matches, err := m.eq(obj, addr, b)
	return !matches, err
}

func (m *Matcher) not(obj domain.Document, addr []string, b any) (bool, error) {
	if _, ok := asDocument(b); !ok {
		if _, ok := b.(*regexp.Regexp); !ok {
			return false, domain.ErrArgument{Operator: "$not", Reason: "needs a regex or a document"}
		}
	}
	matches, err := m.matchField(obj, addr, b)
	return !matches, err
}

// ordered builds the range operators. Values are only compared within the
// same type bracket, and a null bound on an inclusive operator behaves like
// {$eq: null}.
func (m *Matcher) ordered(check func(int) bool, inclusive bool) oper {
	return func(obj domain.Document, addr []string, b any) (bool, error) {
		if b == nil && inclusive {
			return m.eq(obj, addr, nil)
		}
		return m.matchList(obj, addr, b, func(value, param any) (bool, error) {
			if !m.comparer.Comparable(value, param) {
				return false, nil
			}
			c, err := m.comparer.Compare(value, param)
			if err != nil {
				return false, err
			}
			return check(c), nil
		})
	}
}

func (m *Matcher) lt(obj domain.Document, addr []string, b any) (bool, error) {
	return m.ordered(func(c int) bool { return c < 0 }, false)(obj, addr, b)
}

func (m *Matcher) lte(obj domain.Document, addr []string, b any) (bool, error) {
	return m.ordered(func(c int) bool { return c <= 0 }, true)(obj, addr, b)
}

func (m *Matcher) gt(obj domain.Document, addr []string, b any) (bool, error) {
	return m.ordered(func(c int) bool { return c > 0 }, false)(obj, addr, b)
}

func (m *Matcher) gte(obj domain.Document, addr []string, b any) (bool, error) {
	return m.ordered(func(c int) bool { return c >= 0 }, true)(obj, addr, b)
}

func (m *Matcher) in(obj domain.Document, addr []string, b any) (bool, error) {
	arr, ok := m.list(b)
	if !ok {
		return false, domain.ErrArgument{Operator: "$in", Reason: "needs an array"}
	}
	for _, item := range arr {
		matches, err := m.eq(obj, addr, item)
		if err != nil || matches {
			return matches, err
		}
	}
	return false, nil
}

func (m *Matcher) nin(obj domain.Document, addr []string, b any) (bool, error) {
	if _, ok := m.list(b); !ok {
		return false, domain.ErrArgument{Operator: "$nin", Reason: "needs an array"}
	}
	matches, err := m.in(obj, addr, b)
	return !matches, err
}

// list accepts []any and typed slices, which literals often come as.
func (m *Matcher) list(v any) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	r := goreflect.ValueNoEscapeOf(v)
	if r.Kind() != goreflect.Slice && r.Kind() != goreflect.Array {
		return nil, false
	}
	arr := make([]any, r.Len())
	for i := range arr {
		arr[i] = r.Index(i).Interface()
	}
	return arr, true
}

func (m *Matcher) exists(obj domain.Document, addr []string, b any) (bool, error) {
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return false, err
	}

	wantExistent := m.evaluator.Truthy(b)

	for _, field := range fields {
		if _, defined := field.Get(); defined {
			return wantExistent, nil
		}
	}
	return !wantExistent, nil
}

func (m *Matcher) size(obj domain.Document, addr []string, b any) (bool, error) {
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return false, err
	}

	num, ok := m.asInt(b)
	if !ok {
		return false, domain.ErrArgument{Operator: "$size", Reason: "needs an integer"}
	}

	for _, field := range fields {
		value, _ := field.Get()
		if arr, ok := value.([]any); ok && len(arr) == num {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) asInt(v any) (int, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		r.SetFloat64(n)
	default:
		return 0, false
	}
	if !r.IsInt() {
		return 0, false
	}
	i64, _ := r.Int64()
	return int(i64), true
}

func (m *Matcher) regex(obj domain.Document, addr []string, b any) (bool, error) {
	var rgx *regexp.Regexp
	switch t := b.(type) {
	case *regexp.Regexp:
		rgx = t
	case string:
		var err error
		if rgx, err = regexp.Compile(t); err != nil {
			return false, domain.ErrArgument{Operator: "$regex", Reason: err.Error()}
		}
	default:
		return false, domain.ErrArgument{Operator: "$regex", Reason: "needs a regular expression"}
	}
	return m.matchList(obj, addr, rgx, func(value, _ any) (bool, error) {
		val, _ := m.getValue(value)
		str, ok := val.(string)
		return ok && rgx.MatchString(str), nil
	})
}

func (m *Matcher) elemMatch(obj domain.Document, addr []string, b any) (bool, error) {
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return false, err
	}

	for _, field := range fields {
		value, _ := field.Get()
		arr, ok := value.([]any)
		if !ok {
			continue
		}
		for _, item := range arr {
			matches, err := m.Match(item, b)
			if err != nil || matches {
				return matches, err
			}
		}
	}

	return false, nil
}

func (m *Matcher) getValue(v any) (any, bool) {
	if g, ok := v.(domain.Getter); ok {
		return g.Get()
	}
	return v, true
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
