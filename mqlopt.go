// Package mqlopt rewrites aggregation expressions used in $expr filters into
// plain query predicates, so that a $match stage can be served by indexes.
//
// The basic usage starts with an [Optimizer], created by [NewOptimizer]:
//
//	stages := mqlopt.NewOptimizer().Optimize(filter)
//
// Every returned stage is a $match, and their conjunction selects the same
// documents as the original filter. Conditions that cannot be rewritten
// safely are kept inside a residual $expr.
//
// [NewCollection] offers a small in-memory collection that runs aggregation
// pipelines through the optimizer, which is handy to check rewrites against
// real documents.
package mqlopt

import (
	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/collection"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/converter"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/optimizer"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/pipeline"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/serializer"
)

var (
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrTargetNil is returned when a nil target is given to decode data.
	ErrTargetNil = domain.ErrTargetNil
)

// ErrUnknownOperator is returned for operators that are not implemented.
type ErrUnknownOperator = domain.ErrUnknownOperator

// ErrUnknownStage is returned for pipeline stages that cannot be run.
type ErrUnknownStage = domain.ErrUnknownStage

// ErrStageFormat is returned for malformed pipeline stages.
type ErrStageFormat = domain.ErrStageFormat

// ErrDuplicateID is returned when inserting an _id that is already stored.
type ErrDuplicateID = domain.ErrDuplicateID

// ErrDocumentType is returned when a value cannot be used as a document.
type ErrDocumentType = domain.ErrDocumentType

// ErrDecode wraps decoding failures from [Cursor.Scan].
type ErrDecode = domain.ErrDecode

// Document is the map-like value every component works with.
type Document = domain.Document

// M is the default [Document] implementation.
type M = data.M

// Converter rewrites a single expression into predicate form.
type Converter = domain.Converter

// Optimizer rewrites $match filters.
type Optimizer = domain.Optimizer

// Pipeline runs aggregation stages.
type Pipeline = domain.Pipeline

// Collection is an in-memory set of documents.
type Collection = domain.Collection

// Cursor iterates over results.
type Cursor = domain.Cursor

// NewConverter returns the default [Converter].
func NewConverter(options ...domain.ConverterOption) Converter {
	return converter.NewConverter(options...)
}

// NewOptimizer returns the default [Optimizer].
func NewOptimizer(options ...domain.OptimizerOption) Optimizer {
	return optimizer.NewOptimizer(options...)
}

// NewCachingOptimizer returns an [Optimizer] that memoizes rewrites.
func NewCachingOptimizer(options ...domain.CacheOption) *optimizer.CachingOptimizer {
	return optimizer.NewCachingOptimizer(options...)
}

// NewPipeline returns the default [Pipeline].
func NewPipeline(options ...domain.PipelineOption) Pipeline {
	return pipeline.NewPipeline(options...)
}

// NewCollection returns an empty in-memory [Collection].
func NewCollection(options ...domain.CollectionOption) Collection {
	return collection.NewCollection(options...)
}

// ParseJSON reads extended JSON, turning wrappers such as $date, $uuid and
// $numberDecimal into their Go values.
func ParseJSON(b []byte) (any, error) {
	return data.ParseJSON(b)
}

// NewSerializer returns a serializer that writes extended JSON with sorted
// keys.
func NewSerializer(options ...domain.SerializerOption) domain.Serializer {
	return serializer.NewSerializer(options...)
}
