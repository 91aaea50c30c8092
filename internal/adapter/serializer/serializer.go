// Package serializer contains the default [domain.Serializer] implementation.
package serializer

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	goreflect "github.com/goccy/go-reflect"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

// Serializer implements domain.Serializer. Output is extended JSON with keys
// sorted, so equal values always serialize to the same bytes.
type Serializer struct {
	indent int
}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer(options ...domain.SerializerOption) domain.Serializer {
	var opts domain.SerializerOptions
	for _, option := range options {
		option(&opts)
	}
	return &Serializer{indent: opts.Indent}
}

// Serialize implements domain.Serializer.
func (s *Serializer) Serialize(ctx context.Context, obj any) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	plain, err := s.plain(obj)
	if err != nil {
		return nil, err
	}
	return []byte(oj.JSON(plain, &oj.Options{Sort: true, Indent: s.indent})), nil
}

// plain converts obj into values ojg writes as JSON: maps, slices, strings,
// bools, nil, int64 and finite float64.
func (s *Serializer) plain(obj any) (any, error) {
	switch t := obj.(type) {
	case nil, bool, string, int64:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		return s.unsigned(uint64(t)), nil
	case uint64:
		return s.unsigned(t), nil
	case float32:
		return s.float(float64(t)), nil
	case float64:
		return s.float(t), nil
	case time.Time:
		return wrap("$date", t.UTC().Format(time.RFC3339Nano)), nil
	case time.Duration:
		return wrap("$duration", t.String()), nil
	case uuid.UUID:
		return wrap("$uuid", t.String()), nil
	case *apd.Decimal:
		if t == nil {
			return nil, nil
		}
		return wrap("$numberDecimal", t.String()), nil
	case apd.Decimal:
		return wrap("$numberDecimal", t.String()), nil
	case []byte:
		return wrap("$binary", base64.StdEncoding.EncodeToString(t)), nil
	case domain.Document:
		res := make(map[string]any, t.Len())
		for k, v := range t.Iter() {
			p, err := s.plain(v)
			if err != nil {
				return nil, err
			}
			res[k] = p
		}
		return res, nil
	case map[string]any:
		res := make(map[string]any, len(t))
		for k, v := range t {
			p, err := s.plain(v)
			if err != nil {
				return nil, err
			}
			res[k] = p
		}
		return res, nil
	case []any:
		return s.list(len(t), func(i int) any { return t[i] })
	case []domain.Document:
		return s.list(len(t), func(i int) any { return t[i] })
	}

	r := goreflect.ValueNoEscapeOf(obj)
	switch r.Kind() {
	case goreflect.Slice, goreflect.Array:
		return s.list(r.Len(), func(i int) any { return r.Index(i).Interface() })
	case goreflect.String:
		return r.String(), nil
	case goreflect.Bool:
		return r.Bool(), nil
	case goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64:
		return r.Int(), nil
	case goreflect.Float32, goreflect.Float64:
		return s.float(r.Float()), nil
	}
	return nil, fmt.Errorf("cannot serialize value of type %T", obj)
}

func (s *Serializer) list(n int, item func(int) any) ([]any, error) {
	res := make([]any, n)
	for i := range res {
		p, err := s.plain(item(i))
		if err != nil {
			return nil, err
		}
		res[i] = p
	}
	return res, nil
}

func (s *Serializer) unsigned(n uint64) any {
	if n > math.MaxInt64 {
		return wrap("$numberDecimal", strconv.FormatUint(n, 10))
	}
	return int64(n)
}

func (s *Serializer) float(f float64) any {
	switch {
	case math.IsNaN(f):
		return wrap("$numberDouble", "NaN")
	case math.IsInf(f, 1):
		return wrap("$numberDouble", "Infinity")
	case math.IsInf(f, -1):
		return wrap("$numberDouble", "-Infinity")
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		// keep the value a double when parsed back
		return wrap("$numberDouble", strconv.FormatFloat(f, 'f', -1, 64))
	}
	return f
}

func wrap(key string, v any) map[string]any {
	return map[string]any{key: v}
}
