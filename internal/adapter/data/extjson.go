package data

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

var errWrapperType = errors.New("unexpected type")

// ParseJSON reads extended JSON. Objects become [M], arrays become []any,
// integers become int64 and other numbers float64. The single-key wrappers
// $date, $uuid, $numberDecimal, $numberLong, $numberInt, $numberDouble,
// $duration and $binary are replaced by the Go value they describe.
func ParseJSON(b []byte) (any, error) {
	v, err := oj.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parsing extended JSON: %w", err)
	}
	return fromJSON(v)
}

func fromJSON(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			for k, inner := range t {
				if conv, ok := wrappers[k]; ok {
					res, err := conv(inner)
					if err != nil {
						return nil, domain.ErrExtendedJSON{Wrapper: k, Value: inner, Reason: err}
					}
					return res, nil
				}
			}
		}
		res := make(M, len(t))
		for k, item := range t {
			conv, err := fromJSON(item)
			if err != nil {
				return nil, err
			}
			res[k] = conv
		}
		return res, nil
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			conv, err := fromJSON(item)
			if err != nil {
				return nil, err
			}
			res[n] = conv
		}
		return res, nil
	case int:
		return int64(t), nil
	default:
		return v, nil
	}
}

var wrappers = map[string]func(any) (any, error){
	"$date":          parseDate,
	"$uuid":          parseUUID,
	"$numberDecimal": parseDecimal,
	"$numberLong":    parseLong,
	"$numberInt":     parseLong,
	"$numberDouble":  parseDouble,
	"$duration":      parseDuration,
	"$binary":        parseBinary,
}

func parseDate(v any) (any, error) {
	switch t := v.(type) {
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case map[string]any:
		// canonical form {"$date": {"$numberLong": "..."}}
		if s, ok := t["$numberLong"].(string); ok && len(t) == 1 {
			ms, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, err
			}
			return time.UnixMilli(ms).UTC(), nil
		}
	}
	return nil, errWrapperType
}

func parseUUID(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errWrapperType
	}
	return uuid.Parse(s)
}

func parseDecimal(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errWrapperType
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func parseLong(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errWrapperType
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseDouble(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errWrapperType
	}
	return strconv.ParseFloat(s, 64)
}

func parseDuration(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return time.ParseDuration(t)
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	}
	return nil, errWrapperType
}

func parseBinary(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errWrapperType
	}
	return base64.StdEncoding.DecodeString(s)
}
