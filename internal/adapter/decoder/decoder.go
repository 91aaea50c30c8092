// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"reflect"

	"github.com/cockroachdb/apd/v3"
	"github.com/mitchellh/mapstructure"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

// TagName is the struct tag read when decoding documents into structs.
const TagName = "mql"

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder. Documents are decoded as maps, durations
// and text-unmarshalable types such as uuid.UUID are read from strings and
// decimals can fill float fields.
func (d *Decoder) Decode(src any, tgt any) error {
	if tgt == nil {
		return domain.ErrTargetNil
	}
	if r := reflect.ValueOf(tgt); r.Kind() != reflect.Pointer || r.IsNil() {
		return domain.ErrNonPointer
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: TagName,
		Result:  tgt,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			documentHook,
			decimalHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return domain.ErrDecode{Source: src, Target: tgt, Reason: err}
	}
	if err := dec.Decode(plain(src)); err != nil {
		return domain.ErrDecode{Source: src, Target: tgt, Reason: err}
	}
	return nil
}

// documentHook turns nested documents into maps mapstructure can walk.
func documentHook(_ reflect.Type, _ reflect.Type, v any) (any, error) {
	return plain(v), nil
}

func decimalHook(_ reflect.Type, to reflect.Type, v any) (any, error) {
	d, ok := v.(*apd.Decimal)
	if !ok || d == nil {
		return v, nil
	}
	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		return d.Float64()
	case reflect.String:
		return d.String(), nil
	}
	return v, nil
}

func plain(v any) any {
	switch t := v.(type) {
	case domain.Document:
		res := make(map[string]any, t.Len())
		for k, item := range t.Iter() {
			res[k] = plain(item)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = plain(item)
		}
		return res
	}
	return v
}
