// Package collection contains the default [domain.Collection] implementation.
package collection

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/pipeline"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/mqlopt/pkg/ctxsync"
	"github.com/vinicius-lino-figueiredo/mqlopt/pkg/uncomparable"
)

// Collection implements domain.Collection.
type Collection struct {
	executor        *ctxsync.Mutex
	docs            []domain.Document
	ids             *uncomparable.Map[struct{}]
	documentFactory domain.DocumentFactory
	idGenerator     domain.IDGenerator
	pipeline        domain.Pipeline
	cursorFactory   domain.CursorFactory
	decoder         domain.Decoder
	serializer      domain.Serializer
	log             *zap.Logger
}

// NewCollection returns a new implementation of domain.Collection.
func NewCollection(options ...domain.CollectionOption) domain.Collection {
	opts := domain.CollectionOptions{
		DocumentFactory: data.NewDocument,
		IDGenerator:     idgenerator.NewIDGenerator(),
		CursorFactory:   cursor.NewCursor,
		Decoder:         decoder.NewDecoder(),
		Serializer:      serializer.NewSerializer(),
		Hasher:          hasher.NewHasher(),
		Comparer:        comparer.NewComparer(),
		Logger:          zap.NewNop(),
	}
	for _, option := range options {
		option(&opts)
	}
	log := opts.Logger.Named("collection")
	if opts.Pipeline == nil {
		opts.Pipeline = pipeline.NewPipeline(
			domain.WithPipelineDocumentFactory(opts.DocumentFactory),
			domain.WithPipelineComparer(opts.Comparer),
			domain.WithPipelineLogger(log),
		)
	}
	return &Collection{
		executor:        ctxsync.NewMutex(),
		ids:             uncomparable.New[struct{}](opts.Hasher, opts.Comparer),
		documentFactory: opts.DocumentFactory,
		idGenerator:     opts.IDGenerator,
		pipeline:        opts.Pipeline,
		cursorFactory:   opts.CursorFactory,
		decoder:         opts.Decoder,
		serializer:      opts.Serializer,
		log:             log,
	}
}

// Insert implements domain.Collection.
func (c *Collection) Insert(ctx context.Context, newDocs ...any) (domain.Cursor, error) {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer c.executor.Unlock()
	res, err := c.insert(newDocs...)
	if err != nil {
		return nil, err
	}
	return c.cursor(ctx, res)
}

func (c *Collection) insert(newDocs ...any) ([]domain.Document, error) {
	if len(newDocs) == 0 {
		return nil, nil
	}
	prepared, err := c.prepareDocumentsForInsertion(newDocs)
	if err != nil {
		return nil, err
	}
	// every id is checked before anything is stored
	batch := uncomparable.New[struct{}](c.ids.Hasher(), c.ids.Comparer())
	for _, doc := range prepared {
		stored, err := c.ids.Has(doc.ID())
		if err != nil {
			return nil, fmt.Errorf("checking _id: %w", err)
		}
		added, err := batch.Add(doc.ID(), struct{}{})
		if err != nil {
			return nil, fmt.Errorf("checking _id: %w", err)
		}
		if stored || !added {
			return nil, domain.ErrDuplicateID{ID: doc.ID()}
		}
	}
	for _, doc := range prepared {
		if err := c.ids.Set(doc.ID(), struct{}{}); err != nil {
			return nil, fmt.Errorf("indexing _id: %w", err)
		}
		c.docs = append(c.docs, doc)
	}
	c.log.Debug("inserted documents", zap.Int("count", len(prepared)), zap.Int("total", len(c.docs)))
	return c.cloneDocs(prepared...)
}

func (c *Collection) prepareDocumentsForInsertion(newDocs []any) ([]domain.Document, error) {
	prepared := make([]domain.Document, len(newDocs))
	for n, newDoc := range newDocs {
		doc, err := c.documentFactory(newDoc)
		if err != nil {
			return nil, err
		}
		if !doc.Has("_id") {
			id, err := c.idGenerator.GenerateID()
			if err != nil {
				return nil, fmt.Errorf("generating _id: %w", err)
			}
			doc.Set("_id", id)
		}
		if err := c.checkDocument(doc); err != nil {
			return nil, err
		}
		prepared[n] = doc
	}
	return prepared, nil
}

func (c *Collection) checkDocument(doc domain.Document) error {
	for k := range doc.Keys() {
		if strings.HasPrefix(k, "$") {
			return domain.ErrFieldName{Field: k}
		}
	}
	return nil
}

// Find implements domain.Collection. A nil query returns every document.
func (c *Collection) Find(ctx context.Context, query any) (domain.Cursor, error) {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer c.executor.Unlock()
	res, err := c.find(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.cursor(ctx, res)
}

// Count implements domain.Collection.
func (c *Collection) Count(ctx context.Context, query any) (int64, error) {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return 0, err
	}
	defer c.executor.Unlock()
	res, err := c.find(ctx, query)
	if err != nil {
		return 0, err
	}
	return int64(len(res)), nil
}

func (c *Collection) find(ctx context.Context, query any) ([]domain.Document, error) {
	if query == nil {
		return c.cloneDocs(c.docs...)
	}
	stage, err := c.documentFactory(nil)
	if err != nil {
		return nil, err
	}
	stage.Set(pipeline.StageMatch, query)
	return c.run(ctx, []domain.Document{stage})
}

// Aggregate implements domain.Collection.
func (c *Collection) Aggregate(ctx context.Context, stages ...any) (domain.Cursor, error) {
	if err := c.executor.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer c.executor.Unlock()
	docs, err := c.stages(stages)
	if err != nil {
		return nil, err
	}
	res, err := c.run(ctx, docs)
	if err != nil {
		return nil, err
	}
	return c.cursor(ctx, res)
}

// Explain implements domain.Collection.
func (c *Collection) Explain(ctx context.Context, stages ...any) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := c.stages(stages)
	if err != nil {
		return nil, err
	}
	return c.pipeline.Explain(docs...)
}

func (c *Collection) run(ctx context.Context, stages []domain.Document) ([]domain.Document, error) {
	c.logPipeline(ctx, stages)
	docs, err := c.cloneDocs(c.docs...)
	if err != nil {
		return nil, err
	}
	return c.pipeline.Run(ctx, docs, stages...)
}

// logPipeline writes the rewritten pipeline when debug logging is enabled.
func (c *Collection) logPipeline(ctx context.Context, stages []domain.Document) {
	if ce := c.log.Check(zap.DebugLevel, "running pipeline"); ce != nil {
		explained, err := c.pipeline.Explain(stages...)
		if err != nil {
			return
		}
		b, err := c.serializer.Serialize(ctx, explained)
		if err != nil {
			c.log.Warn("could not serialize pipeline", zap.Error(err))
			return
		}
		ce.Write(zap.ByteString("pipeline", b), zap.Int("documents", len(c.docs)))
	}
}

func (c *Collection) stages(stages []any) ([]domain.Document, error) {
	res := make([]domain.Document, len(stages))
	for n, stage := range stages {
		if stage == nil {
			return nil, fmt.Errorf("stage %d: %w", n, domain.ErrStageFormat{Reason: "a pipeline stage specification object must contain exactly one field"})
		}
		doc, err := c.documentFactory(stage)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", n, err)
		}
		res[n] = doc
	}
	return res, nil
}

func (c *Collection) cursor(ctx context.Context, docs []domain.Document) (domain.Cursor, error) {
	return c.cursorFactory(ctx, docs, domain.WithCursorDecoder(c.decoder))
}

func (c *Collection) cloneDocs(docs ...domain.Document) ([]domain.Document, error) {
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		newDoc, err := c.documentFactory(doc)
		if err != nil {
			return nil, err
		}
		res[n] = newDoc
	}
	return res, nil
}
