// Package fieldnavigator contains the default [domain.FieldNavigator]
// implementation.
package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct{}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator].
func NewFieldNavigator() domain.FieldNavigator {
	return &FieldNavigator{}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	return strings.Split(field, "."), nil
}

// GetField implements [domain.FieldNavigator]. When a path part that is not an
// index meets an array, the remaining path is applied to every document in
// that array and the returned bool is true.
func (fn *FieldNavigator) GetField(obj any, fieldParts ...string) ([]domain.Getter, bool, error) {
	if obj == nil || len(fieldParts) == 0 {
		return []domain.Getter{Missing()}, false, nil
	}
	res, expanded := fn.walk(obj, fieldParts, nil, false)
	if len(res) == 0 {
		return []domain.Getter{Missing()}, expanded, nil
	}
	return res, expanded, nil
}

func (fn *FieldNavigator) walk(v any, parts []string, acc []domain.Getter, expanded bool) ([]domain.Getter, bool) {
	part, rest := parts[0], parts[1:]
	switch t := v.(type) {
	case domain.Document:
		if !t.Has(part) {
			if expanded {
				return acc, expanded
			}
			return append(acc, Missing()), expanded
		}
		return fn.next(t.Get(part), rest, acc, expanded)
	case []any:
		if i, err := strconv.Atoi(part); err == nil {
			if i < 0 || i >= len(t) {
				return append(acc, Missing()), expanded
			}
			return fn.next(t[i], rest, acc, expanded)
		}
		for _, item := range t {
			if _, ok := item.(domain.Document); !ok {
				continue
			}
			acc, _ = fn.walk(item, parts, acc, true)
		}
		return acc, true
	default:
		if expanded {
			return acc, expanded
		}
		return append(acc, Missing()), expanded
	}
}

func (fn *FieldNavigator) next(v any, rest []string, acc []domain.Getter, expanded bool) ([]domain.Getter, bool) {
	if len(rest) == 0 {
		return append(acc, Defined(v)), expanded
	}
	return fn.walk(v, rest, acc, expanded)
}
