// Package uncomparable contains a map whose keys may be any document value,
// including slices and documents, using a [domain.Hasher] to pick buckets and
// a [domain.Comparer] to tell keys apart. Failures are returned as errors
// instead of panicking.
package uncomparable

import (
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

const (
	initialBuckets = 8
	maxLoad        = 4
)

// Map represents a map[any]T where keys are compared with a
// [domain.Comparer], so 1 and 1.0 are the same key as long as they hash to
// the same value.
type Map[T any] struct {
	buckets  [][]kv[T]
	hasher   domain.Hasher
	comparer domain.Comparer
	length   int
}

// New returns a new instance of [Map] with the given [domain.Hasher] and
// [domain.Comparer].
func New[T any](hasher domain.Hasher, comparer domain.Comparer) *Map[T] {
	return &Map[T]{
		buckets:  make([][]kv[T], initialBuckets),
		hasher:   hasher,
		comparer: comparer,
	}
}

// Delete removes a given key from the map, if it exists. If the given key could
// not be hashed or some comparison failed, it returns the error.
func (m *Map[T]) Delete(key any) error {
	bucketIndex, n, err := m.find(key)
	if err != nil || n < 0 {
		return err
	}
	m.length--
	m.buckets[bucketIndex] = slices.Delete(m.buckets[bucketIndex], n, n+1)
	return nil
}

// Get returns the value for the given key with a bool to indicate whether it
// exists in the map or not. If hash or comparison fails, returns an error.
func (m *Map[T]) Get(key any) (T, bool, error) {
	bucketIndex, n, err := m.find(key)
	if err != nil || n < 0 {
		return *new(T), false, err
	}
	return m.buckets[bucketIndex][n].value, true, nil
}

// Has reports whether key is stored.
func (m *Map[T]) Has(key any) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

// Set adds or replaces the given key in the map, returning error on hash or
// comparison failure.
func (m *Map[T]) Set(key any, value T) error {
	_, err := m.set(key, value, true)
	return err
}

// Add stores key only if it is not in the map yet, and reports whether it
// was added.
func (m *Map[T]) Add(key any, value T) (bool, error) {
	return m.set(key, value, false)
}

func (m *Map[T]) set(key any, value T, replace bool) (bool, error) {
	bucketIndex, n, err := m.find(key)
	if err != nil {
		return false, err
	}
	if n >= 0 {
		if !replace {
			return false, nil
		}
		m.buckets[bucketIndex][n] = kv[T]{key: key, value: value}
		return true, nil
	}
	m.buckets[bucketIndex] = append(m.buckets[bucketIndex], kv[T]{key: key, value: value})
	m.length++
	if m.length > maxLoad*len(m.buckets) {
		return true, m.grow()
	}
	return true, nil
}

// find returns the bucket of key and its position in it, or -1 when the key
// is not stored.
func (m *Map[T]) find(key any) (uint64, int, error) {
	bucketIndex, err := m.getBucketIndex(key, len(m.buckets))
	if err != nil {
		return 0, -1, err
	}
	for n, keyVal := range m.buckets[bucketIndex] {
		c, err := m.comparer.Compare(key, keyVal.key)
		if err != nil {
			return 0, -1, err
		}
		if c == 0 {
			return bucketIndex, n, nil
		}
	}
	return bucketIndex, -1, nil
}

func (m *Map[T]) grow() error {
	buckets := make([][]kv[T], len(m.buckets)*2)
	for _, bucket := range m.buckets {
		for _, keyVal := range bucket {
			i, err := m.getBucketIndex(keyVal.key, len(buckets))
			if err != nil {
				return err
			}
			buckets[i] = append(buckets[i], keyVal)
		}
	}
	m.buckets = buckets
	return nil
}

func (m *Map[T]) getBucketIndex(key any, size int) (uint64, error) {
	h, err := m.hasher.Hash(key)
	if err != nil {
		return 0, err
	}
	return h % uint64(size), nil
}

// Keys returns an unordered [iter.Seq] containing all the stored keys.
func (m *Map[T]) Keys() iter.Seq[any] {
	return func(yield func(any) bool) {
		for k := range m.Iter() {
			if !yield(k) {
				return
			}
		}
	}
}

// Len returns the amount of stored values.
func (m *Map[T]) Len() int {
	return m.length
}

// Iter returns an unordered [iter.Seq2] containing all the key+value pairs.
func (m *Map[T]) Iter() iter.Seq2[any, T] {
	return func(yield func(any, T) bool) {
		for _, bucket := range m.buckets {
			for _, v := range bucket {
				if !yield(v.key, v.value) {
					return
				}
			}
		}
	}
}

type kv[T any] struct {
	key   any
	value T
}

// Hasher returns the hasher used to pick buckets.
func (m *Map[T]) Hasher() domain.Hasher {
	return m.hasher
}

// Comparer returns the comparer used to tell keys apart.
func (m *Map[T]) Comparer() domain.Comparer {
	return m.comparer
}
