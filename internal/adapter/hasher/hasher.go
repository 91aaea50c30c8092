// Package hasher computes structural hashes of expression trees, used as keys
// for cached optimizer results.
package hasher

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/apd/v3"
	goreflect "github.com/goccy/go-reflect"
	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

// value tags written before each encoded value
const (
	tagNull byte = iota + 1
	tagFalse
	tagTrue
	tagString
	tagInt
	tagUint
	tagFloat
	tagDate
	tagDuration
	tagUUID
	tagDecimal
	tagBinary
	tagDocument
	tagArray
)

// Hasher implements domain.Hasher. Values of different Go types never hash
// the same, so 1 and 1.0 have distinct hashes, while documents hash the same
// regardless of key order.
type Hasher struct{}

// NewHasher returns a new implementation of domain.Hasher.
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements domain.Hasher.
func (h *Hasher) Hash(a any) (uint64, error) {
	d := xxhash.New()
	e := encoder{d: d}
	if err := e.encode(a); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

// Encode returns the canonical encoding that Hash digests. Two values have the
// same encoding exactly when Hash treats them as the same value.
func Encode(a any) ([]byte, error) {
	var b bytes.Buffer
	e := encoder{d: &b}
	if err := e.encode(a); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

type sink interface {
	io.Writer
	io.StringWriter
}

type encoder struct {
	d   sink
	buf [8]byte
}

func (e *encoder) tag(t byte, kind goreflect.Kind) {
	_, _ = e.d.Write([]byte{t, byte(kind)})
}

func (e *encoder) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:], v)
	_, _ = e.d.Write(e.buf[:])
}

func (e *encoder) str(s string) {
	e.u64(uint64(len(s)))
	_, _ = e.d.WriteString(s)
}

func (e *encoder) encode(v any) error {
	switch t := v.(type) {
	case nil:
		e.tag(tagNull, 0)
	case bool:
		if t {
			e.tag(tagTrue, 0)
		} else {
			e.tag(tagFalse, 0)
		}
	case string:
		e.tag(tagString, 0)
		e.str(t)
	case time.Time:
		e.tag(tagDate, 0)
		e.u64(uint64(t.UnixNano()))
		e.str(t.Location().String())
	case time.Duration:
		e.tag(tagDuration, 0)
		e.u64(uint64(t))
	case uuid.UUID:
		e.tag(tagUUID, 0)
		_, _ = e.d.Write(t[:])
	case *apd.Decimal:
		if t == nil {
			return fmt.Errorf("cannot hash nil %T", t)
		}
		e.tag(tagDecimal, 1)
		e.str(t.String())
	case apd.Decimal:
		e.tag(tagDecimal, 2)
		e.str(t.String())
	case []byte:
		e.tag(tagBinary, 0)
		e.str(string(t))
	case domain.Document:
		return e.encodeDoc(t.Len(), t.Iter())
	case map[string]any:
		return e.encodeDoc(len(t), maps.All(t))
	case []any:
		e.tag(tagArray, 0)
		e.u64(uint64(len(t)))
		for _, item := range t {
			if err := e.encode(item); err != nil {
				return err
			}
		}
	default:
		return e.encodeReflect(v)
	}
	return nil
}

func (e *encoder) encodeDoc(n int, seq iter.Seq2[string, any]) error {
	type pair struct {
		key   string
		value any
	}
	pairs := make([]pair, 0, n)
	for k, v := range seq {
		pairs = append(pairs, pair{key: k, value: v})
	}
	slices.SortFunc(pairs, func(a, b pair) int {
		return cmp.Compare(a.key, b.key)
	})

	e.tag(tagDocument, 0)
	e.u64(uint64(len(pairs)))
	for _, p := range pairs {
		e.str(p.key)
		if err := e.encode(p.value); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeReflect(v any) error {
	r := goreflect.ValueNoEscapeOf(v)
	kind := r.Kind()
	switch kind {
	case goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64:
		e.tag(tagInt, kind)
		e.u64(uint64(r.Int()))
	case goreflect.Uint, goreflect.Uint8, goreflect.Uint16, goreflect.Uint32, goreflect.Uint64:
		e.tag(tagUint, kind)
		e.u64(r.Uint())
	case goreflect.Float32, goreflect.Float64:
		e.tag(tagFloat, kind)
		e.u64(math.Float64bits(r.Float()))
	case goreflect.String:
		e.tag(tagString, kind)
		e.str(r.Type().String())
		e.str(r.String())
	case goreflect.Slice, goreflect.Array:
		e.tag(tagArray, kind)
		e.str(r.Type().String())
		e.u64(uint64(r.Len()))
		for i := range r.Len() {
			if err := e.encode(r.Index(i).Interface()); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot hash value of type %T", v)
	}
	return nil
}
