// Package comparer orders values the way the document database orders BSON
// values in aggregation expressions and sorts.
package comparer

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

// type brackets, lowest first
const (
	rankMissing = iota
	rankNull
	rankNumber
	rankString
	rankDocument
	rankArray
	rankUUID
	rankBool
	rankDate
	rankUnknown
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer. Query predicates such as $gt only
// match values in the same type bracket as their argument.
func (c *Comparer) Comparable(a, b any) bool {
	if !c.isSet(a) || !c.isSet(b) {
		return false
	}
	ra, rb := c.rank(c.getVal(a)), c.rank(c.getVal(b))
	if ra != rb {
		return false
	}
	switch ra {
	case rankNull, rankNumber, rankString, rankUUID, rankBool, rankDate:
		return true
	}
	return false
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a any, b any) (int, error) {
	ra, rb := rankMissing, rankMissing
	if c.isSet(a) {
		a = c.getVal(a)
		ra = c.rank(a)
	}
	if c.isSet(b) {
		b = c.getVal(b)
		rb = c.rank(b)
	}

	if ra == rankUnknown || rb == rankUnknown {
		return 0, fmt.Errorf("cannot compare unexpected types %T and %T", a, b)
	}
	if ra != rb {
		return cmp.Compare(ra, rb), nil
	}

	switch ra {
	case rankNumber:
		return c.compareNumbers(a, b), nil
	case rankString:
		return cmp.Compare(a.(string), b.(string)), nil
	case rankDocument:
		return c.compareDoc(a.(domain.Document), b.(domain.Document))
	case rankArray:
		return c.compareArray(a.([]any), b.([]any))
	case rankUUID:
		ua, ub := a.(uuid.UUID), b.(uuid.UUID)
		return slices.Compare(ua[:], ub[:]), nil
	case rankBool:
		return c.compareBool(a.(bool), b.(bool)), nil
	case rankDate:
		return a.(time.Time).Compare(b.(time.Time)), nil
	}
	// missing and null
	return 0, nil
}

func (c *Comparer) rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNull
	case string:
		return rankString
	case domain.Document:
		return rankDocument
	case []any:
		return rankArray
	case uuid.UUID:
		return rankUUID
	case bool:
		return rankBool
	case time.Time:
		return rankDate
	}
	if _, ok := c.asNumber(v); ok {
		return rankNumber
	}
	return rankUnknown
}

func (c *Comparer) compareNumbers(a, b any) int {
	da, _ := c.asNumber(a)
	db, _ := c.asNumber(b)

	// NaN sorts below every other number and equal to itself
	nanA, nanB := da.Form == apd.NaN, db.Form == apd.NaN
	if nanA || nanB {
		return cmp.Compare(c.b2i(!nanA), c.b2i(!nanB))
	}
	return da.Cmp(db)
}

func (c *Comparer) b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

// compareDoc walks both documents in key order, comparing names before
// values.
func (c *Comparer) compareDoc(a domain.Document, b domain.Document) (int, error) {
	aKeys := slices.Sorted(a.Keys())
	bKeys := slices.Sorted(b.Keys())

	for i := range min(len(aKeys), len(bKeys)) {
		if comp := cmp.Compare(aKeys[i], bKeys[i]); comp != 0 {
			return comp, nil
		}
		comp, err := c.Compare(a.Get(aKeys[i]), b.Get(bKeys[i]))
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	return cmp.Compare(len(aKeys), len(bKeys)), nil
}

// asNumber converts any numeric value to an arbitrary precision decimal, so
// that int64, float64 and decimal values compare without precision loss.
func (c *Comparer) asNumber(v any) (*apd.Decimal, bool) {
	r := new(apd.Decimal)
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
		c.setUint(r, uint64(n))
	case uint8:
		r.SetInt64(int64(n))
	case uint16:
		r.SetInt64(int64(n))
	case uint32:
		r.SetInt64(int64(n))
	case uint64:
		c.setUint(r, n)
	case float32:
		c.setFloat(r, float64(n))
	case float64:
		c.setFloat(r, n)
	case time.Duration:
		r.SetInt64(int64(n))
	case *apd.Decimal:
		if n == nil {
			return nil, false
		}
		r.Set(n)
	case apd.Decimal:
		r.Set(&n)
	default:
		return nil, false
	}
	if r.Form == apd.NaNSignaling {
		r.Form = apd.NaN
	}
	return r, true
}

func (c *Comparer) setUint(r *apd.Decimal, n uint64) {
	if n <= math.MaxInt64 {
		r.SetInt64(int64(n))
		return
	}
	_, _, _ = r.SetString(strconv.FormatUint(n, 10))
}

func (c *Comparer) setFloat(r *apd.Decimal, f float64) {
	switch {
	case math.IsNaN(f):
		r.Form = apd.NaN
	case math.IsInf(f, 1):
		r.Form = apd.Infinite
	case math.IsInf(f, -1):
		r.Form, r.Negative = apd.Infinite, true
	default:
		_, _ = r.SetFloat64(f)
	}
}

func (c *Comparer) isSet(v any) bool {
	if g, ok := v.(domain.Getter); ok {
		_, isSet := g.Get()
		return isSet
	}
	return true
}

func (c *Comparer) getVal(v any) any {
	if g, ok := v.(domain.Getter); ok {
		val, _ := g.Get()
		return val
	}
	return v
}
