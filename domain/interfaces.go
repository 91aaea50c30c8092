// Package domain contains domain-specific interfaces and option types for
// mqlopt.
//
// This package defines the core interfaces that must be implemented by
// adapters, as well as functional options for configuring components like the
// expression converter, the match optimizer, the matcher, the aggregation
// pipeline and the in-memory collection.
package domain

import (
	"context"
	"iter"
)

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}

// Serializer converts documents and stages to bytes.
type Serializer interface {
	// Serialize converts a value to extended JSON.
	Serialize(context.Context, any) ([]byte, error)
}

// Comparer provides ordering and comparison operations for different data types.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values belong to the same type
	// bracket and can be ordered by query predicates.
	Comparable(any, any) bool
}

// Getter represents a value that can be treated as missing.
type Getter interface {
	// Get returns the value for the given address and a bool that indicates
	// whether the value counts as defined or not. If an address points to
	// an unset key in a document, or an out of bounds index in an array or
	// any address within a primitive value ([string], [bool], etc.), it
	// counts as missing. If a value is explicitly [nil], it will not count
	// as missing.
	Get() (value any, defined bool)
}

// FieldNavigator provides field access operations with dot notation support.
type FieldNavigator interface {
	// GetField extracts values from nested documents, following path parts.
	// The returned bool reports whether an array was expanded on the way.
	GetField(any, ...string) ([]Getter, bool, error)
	// GetAddress splits a dotted field path into its parts.
	GetAddress(field string) ([]string, error)
}

// Hasher generates hash values for expression trees.
type Hasher interface {
	// Hash generates a hash value for the given data.
	Hash(any) (uint64, error)
}

// Document represents a structured value, either a stored record or an
// object inside an expression tree.
type Document interface {
	// ID returns the document ID, if any, or nil.
	ID() any
	// D returns the subdocument for the given key, if any.
	D(string) Document
	// Get returns the value under the given key, or nil if unset.
	Get(string) any
	// Set sets the value under the given key.
	Set(string, any)
	// Unset unsets the value under the given key.
	Unset(string)
	// Iter returns an unordered sequence of key-value pairs in the
	// document.
	Iter() iter.Seq2[string, any]
	// Keys returns an unordered sequence of keys in the document.
	Keys() iter.Seq[string]
	// Values returns an unordered sequence of values in the document.
	Values() iter.Seq[any]
	// Has reports whether a value is set under the given key.
	Has(string) bool
	// Len returns the number of set fields in the document.
	Len() int
}

// Converter rewrites a single expression-evaluation node into predicate form.
type Converter interface {
	// Convert returns the predicate form of expr. The bool is false when
	// expr cannot be rewritten without changing its meaning, in which case
	// the returned document is nil.
	Convert(expr any) (Document, bool)
}

// Optimizer rewrites the body of a $match stage so that conditions expressed
// through $expr use direct predicates wherever it is safe to do so.
type Optimizer interface {
	// Optimize returns one or more $match stages whose conjunction is
	// equivalent to cond. It never fails: anything that cannot be
	// rewritten is kept in its original form.
	Optimize(cond any) []Document
}

// Evaluator evaluates aggregation expressions against a document.
type Evaluator interface {
	// Evaluate returns the value of expr for doc. Missing values are
	// returned as a [Getter] reporting itself as undefined.
	Evaluate(doc Document, expr any) (any, error)
	// Truthy reports how a value resolves in a boolean context.
	Truthy(v any) bool
}

// Matcher evaluates whether values match query criteria.
type Matcher interface {
	// Match returns true if the value matches the query.
	Match(any, any) (bool, error)
}

// Projector applies $project specifications.
type Projector interface {
	// Project returns copies of docs restricted by the projection.
	Project(docs []Document, projection map[string]uint8) ([]Document, error)
}

// Pipeline runs aggregation stages over a set of documents.
type Pipeline interface {
	// Run executes stages over docs and returns the resulting documents.
	Run(ctx context.Context, docs []Document, stages ...Document) ([]Document, error)
	// Explain returns the stages that would be executed for the given
	// pipeline, after $expr rewriting.
	Explain(stages ...Document) ([]Document, error)
}

// Cursor provides iteration over query results.
type Cursor interface {
	// Scan decodes the current document into the target.
	Scan(ctx context.Context, target any) error
	// Next advances the cursor to the next document, returning true if available.
	Next() bool
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases cursor resources and should be called when done.
	Close() error
}

// IDGenerator creates new document ids.
type IDGenerator interface {
	// GenerateID returns a new unique id.
	GenerateID() (string, error)
}

// Collection is an in-memory set of documents that can be queried through
// $match filters and aggregation pipelines.
//
// Operations are safe to use concurrently from multiple goroutines.
type Collection interface {
	// Insert adds one or more documents to the collection and returns the
	// stored versions, including generated ids. Documents must be structs
	// or maps.
	Insert(ctx context.Context, newDocs ...any) (Cursor, error)
	// Find returns a cursor over all documents matching the query.
	Find(ctx context.Context, query any) (Cursor, error)
	// Count returns the number of documents matching the given query.
	Count(ctx context.Context, query any) (int64, error)
	// Aggregate runs a pipeline over the collection.
	Aggregate(ctx context.Context, stages ...any) (Cursor, error)
	// Explain returns the pipeline that Aggregate would run.
	Explain(ctx context.Context, stages ...any) ([]Document, error)
}
