package domain

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// DocumentFactory represents a function that constructs [Document] instances
// from structured data types. If nil is provided, returns an empty document.
type DocumentFactory = func(any) (Document, error)

// CursorFactory represents a function that constructs [Cursor] instances from a
// set of documents with configurable options.
type CursorFactory = func(context.Context, []Document, ...CursorOption) (Cursor, error)

// WithConverterDocumentFactory sets the factory used to build predicates.
func WithConverterDocumentFactory(d DocumentFactory) ConverterOption {
	return func(co *ConverterOptions) {
		co.DocumentFactory = d
	}
}

// ConverterOption configures converter behavior through the functional options
// pattern.
type ConverterOption func(*ConverterOptions)

// ConverterOptions contains parameters for customizing the converter.
type ConverterOptions struct {
	// DocumentFactory creates the documents of the predicate form.
	DocumentFactory DocumentFactory
}

// WithOptimizerDocumentFactory sets the factory used to build stages.
func WithOptimizerDocumentFactory(d DocumentFactory) OptimizerOption {
	return func(oo *OptimizerOptions) {
		oo.DocumentFactory = d
	}
}

// WithOptimizerConverter sets the converter applied to each node.
func WithOptimizerConverter(c Converter) OptimizerOption {
	return func(oo *OptimizerOptions) {
		oo.Converter = c
	}
}

// OptimizerOption configures optimizer behavior through the functional options
// pattern.
type OptimizerOption func(*OptimizerOptions)

// OptimizerOptions contains parameters for customizing the optimizer.
type OptimizerOptions struct {
	// DocumentFactory creates the emitted stages.
	DocumentFactory DocumentFactory
	// Converter rewrites individual nodes.
	Converter Converter
}

// WithCacheOptimizer sets the optimizer whose results are cached.
func WithCacheOptimizer(o Optimizer) CacheOption {
	return func(co *CacheOptions) {
		co.Optimizer = o
	}
}

// WithCacheHasher sets the hasher used to build cache keys.
func WithCacheHasher(h Hasher) CacheOption {
	return func(co *CacheOptions) {
		co.Hasher = h
	}
}

// WithCacheSize sets the maximum number of cached expressions.
func WithCacheSize(s int64) CacheOption {
	return func(co *CacheOptions) {
		co.Size = s
	}
}

// WithCacheTTL sets how long a cached result is kept.
func WithCacheTTL(t time.Duration) CacheOption {
	return func(co *CacheOptions) {
		co.TTL = t
	}
}

// WithCacheLogger sets the logger for cache events.
func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(co *CacheOptions) {
		co.Logger = l
	}
}

// CacheOption configures the caching optimizer through the functional options
// pattern.
type CacheOption func(*CacheOptions)

// CacheOptions contains parameters for customizing the caching optimizer.
type CacheOptions struct {
	Optimizer Optimizer
	Hasher    Hasher
	Size      int64
	TTL       time.Duration
	Logger    *zap.Logger
}

// WithEvaluatorComparer sets the comparer used by comparison expressions.
func WithEvaluatorComparer(c Comparer) EvaluatorOption {
	return func(eo *EvaluatorOptions) {
		eo.Comparer = c
	}
}

// WithEvaluatorFieldNavigator sets the navigator used to resolve field paths.
func WithEvaluatorFieldNavigator(f FieldNavigator) EvaluatorOption {
	return func(eo *EvaluatorOptions) {
		eo.FieldNavigator = f
	}
}

// WithEvaluatorVariables sets the user variables available as $$name.
func WithEvaluatorVariables(v map[string]any) EvaluatorOption {
	return func(eo *EvaluatorOptions) {
		eo.Variables = v
	}
}

// EvaluatorOption configures evaluator behavior through the functional options
// pattern.
type EvaluatorOption func(*EvaluatorOptions)

// EvaluatorOptions contains parameters for customizing the evaluator.
type EvaluatorOptions struct {
	Comparer       Comparer
	FieldNavigator FieldNavigator
	// Variables are resolved by $$name references. $$ROOT and $$CURRENT
	// are always bound to the evaluated document.
	Variables map[string]any
}

// WithMatcherDocumentFactory sets the document factory for creating documents
// during matching.
func WithMatcherDocumentFactory(d DocumentFactory) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.DocumentFactory = d
	}
}

// WithMatcherComparer sets the comparer implementation for value comparisons
// during matching.
func WithMatcherComparer(c Comparer) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.Comparer = c
	}
}

// WithMatcherFieldNavigator sets the field getter for accessing document fields
// during matching.
func WithMatcherFieldNavigator(f FieldNavigator) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.FieldNavigator = f
	}
}

// WithMatcherEvaluator sets the evaluator used by $expr.
func WithMatcherEvaluator(e Evaluator) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.Evaluator = e
	}
}

// MatcherOption configures matcher behavior through the functional options
// pattern.
type MatcherOption func(*MatcherOptions)

// MatcherOptions contains parameters for customizing matcher behavior.
type MatcherOptions struct {
	// DocumentFactory creates document instances during matching
	// operations.
	DocumentFactory DocumentFactory
	// Comparer provides value comparison operations.
	Comparer Comparer
	// FieldNavigator provides field access operations.
	FieldNavigator FieldNavigator
	// Evaluator evaluates $expr conditions.
	Evaluator Evaluator
}

// WithProjectorFieldNavigator sets the field navigator used by projections.
func WithProjectorFieldNavigator(fn FieldNavigator) ProjectorOption {
	return func(po *ProjectorOptions) {
		po.FieldNavigator = fn
	}
}

// WithProjectorDocumentFactory sets the factory of projected documents.
func WithProjectorDocumentFactory(df DocumentFactory) ProjectorOption {
	return func(po *ProjectorOptions) {
		po.DocumentFactory = df
	}
}

// ProjectorOption configures projector behavior through the functional options
// pattern.
type ProjectorOption func(*ProjectorOptions)

// ProjectorOptions contains parameters for customizing projections.
type ProjectorOptions struct {
	FieldNavigator  FieldNavigator
	DocumentFactory DocumentFactory
}

// WithPipelineMatcher sets the matcher used by $match stages.
func WithPipelineMatcher(m Matcher) PipelineOption {
	return func(po *PipelineOptions) {
		po.Matcher = m
	}
}

// WithPipelineComparer sets the comparer used by $sort stages.
func WithPipelineComparer(c Comparer) PipelineOption {
	return func(po *PipelineOptions) {
		po.Comparer = c
	}
}

// WithPipelineFieldNavigator sets the field navigator used by $sort stages.
func WithPipelineFieldNavigator(f FieldNavigator) PipelineOption {
	return func(po *PipelineOptions) {
		po.FieldNavigator = f
	}
}

// WithPipelineProjector sets the projector used by $project stages.
func WithPipelineProjector(p Projector) PipelineOption {
	return func(po *PipelineOptions) {
		po.Projector = p
	}
}

// WithPipelineOptimizer sets the optimizer applied to $match stages.
func WithPipelineOptimizer(o Optimizer) PipelineOption {
	return func(po *PipelineOptions) {
		po.Optimizer = o
	}
}

// WithPipelineOptimizeExpr enables or disables $expr rewriting. Enabled by
// default.
func WithPipelineOptimizeExpr(b bool) PipelineOption {
	return func(po *PipelineOptions) {
		po.DisableOptimization = !b
	}
}

// WithPipelineDocumentFactory sets the factory of intermediate documents.
func WithPipelineDocumentFactory(d DocumentFactory) PipelineOption {
	return func(po *PipelineOptions) {
		po.DocumentFactory = d
	}
}

// WithPipelineLogger sets the logger for pipeline events.
func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(po *PipelineOptions) {
		po.Logger = l
	}
}

// PipelineOption configures pipeline behavior through the functional options
// pattern.
type PipelineOption func(*PipelineOptions)

// PipelineOptions contains parameters for customizing the pipeline.
type PipelineOptions struct {
	Matcher             Matcher
	Comparer            Comparer
	FieldNavigator      FieldNavigator
	Projector           Projector
	Optimizer           Optimizer
	DocumentFactory     DocumentFactory
	DisableOptimization bool
	Logger              *zap.Logger
}

// WithCursorDecoder sets the decoder for converting cursor results.
func WithCursorDecoder(d Decoder) CursorOption {
	return func(co *CursorOptions) {
		co.Decoder = d
	}
}

// CursorOption configures cursor behavior through the functional options
// pattern.
type CursorOption func(*CursorOptions)

// CursorOptions contains parameters for customizing cursors.
type CursorOptions struct {
	Decoder Decoder
}

// WithIDGeneratorReader sets the source of randomness for new ids.
func WithIDGeneratorReader(r io.Reader) IDGeneratorOption {
	return func(io *IDGeneratorOptions) {
		io.Reader = r
	}
}

// IDGeneratorOption configures id generation through the functional options
// pattern.
type IDGeneratorOption func(*IDGeneratorOptions)

// IDGeneratorOptions contains parameters for customizing id generation.
type IDGeneratorOptions struct {
	Reader io.Reader
}

// WithCollectionDocumentFactory sets the factory of stored documents.
func WithCollectionDocumentFactory(d DocumentFactory) CollectionOption {
	return func(co *CollectionOptions) {
		co.DocumentFactory = d
	}
}

// WithCollectionIDGenerator sets the generator of document ids.
func WithCollectionIDGenerator(g IDGenerator) CollectionOption {
	return func(co *CollectionOptions) {
		co.IDGenerator = g
	}
}

// WithCollectionPipeline sets the pipeline used by queries.
func WithCollectionPipeline(p Pipeline) CollectionOption {
	return func(co *CollectionOptions) {
		co.Pipeline = p
	}
}

// WithCollectionCursorFactory sets the function used to create cursors.
func WithCollectionCursorFactory(c CursorFactory) CollectionOption {
	return func(co *CollectionOptions) {
		co.CursorFactory = c
	}
}

// WithCollectionDecoder sets the decoder used by returned cursors.
func WithCollectionDecoder(d Decoder) CollectionOption {
	return func(co *CollectionOptions) {
		co.Decoder = d
	}
}

// WithCollectionLogger sets the logger for collection events.
func WithCollectionLogger(l *zap.Logger) CollectionOption {
	return func(co *CollectionOptions) {
		co.Logger = l
	}
}

// WithCollectionSerializer sets the serializer used to log rewritten
// pipelines.
func WithCollectionSerializer(s Serializer) CollectionOption {
	return func(co *CollectionOptions) {
		co.Serializer = s
	}
}

// WithCollectionHasher sets the hasher of the unique _id index.
func WithCollectionHasher(h Hasher) CollectionOption {
	return func(co *CollectionOptions) {
		co.Hasher = h
	}
}

// WithCollectionComparer sets the comparer of the unique _id index.
func WithCollectionComparer(c Comparer) CollectionOption {
	return func(co *CollectionOptions) {
		co.Comparer = c
	}
}

// CollectionOption configures a collection through the functional options
// pattern.
type CollectionOption func(*CollectionOptions)

// CollectionOptions contains parameters for customizing a collection.
type CollectionOptions struct {
	DocumentFactory DocumentFactory
	IDGenerator     IDGenerator
	Pipeline        Pipeline
	CursorFactory   CursorFactory
	Decoder         Decoder
	Serializer      Serializer
	Hasher          Hasher
	Comparer        Comparer
	Logger          *zap.Logger
}

// WithSerializerIndent sets the indentation of serialized output. Zero writes
// everything on one line.
func WithSerializerIndent(n int) SerializerOption {
	return func(so *SerializerOptions) {
		so.Indent = n
	}
}

// SerializerOption configures serializer behavior through the functional
// options pattern.
type SerializerOption func(*SerializerOptions)

// SerializerOptions contains parameters for customizing serialization.
type SerializerOptions struct {
	Indent int
}
