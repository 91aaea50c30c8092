// Package pipeline contains the default [domain.Pipeline] implementation.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/optimizer"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/projector"
)

// Supported stages.
const (
	StageMatch   = "$match"
	StageSkip    = "$skip"
	StageLimit   = "$limit"
	StageSort    = "$sort"
	StageProject = "$project"
)

type sortKey struct {
	addr  []string
	order int
}

// Pipeline implements [domain.Pipeline].
type Pipeline struct {
	mtchr    domain.Matcher
	cmpr     domain.Comparer
	fn       domain.FieldNavigator
	proj     domain.Projector
	opt      domain.Optimizer
	optimize bool
	log      *zap.Logger
}

// NewPipeline returns a new implementation of [domain.Pipeline].
func NewPipeline(opts ...domain.PipelineOption) domain.Pipeline {
	options := domain.PipelineOptions{
		DocumentFactory: data.NewDocument,
		Comparer:        comparer.NewComparer(),
		FieldNavigator:  fieldnavigator.NewFieldNavigator(),
		Logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Projector == nil {
		options.Projector = projector.NewProjector(
			domain.WithProjectorDocumentFactory(options.DocumentFactory),
			domain.WithProjectorFieldNavigator(options.FieldNavigator),
		)
	}
	if options.Matcher == nil {
		options.Matcher = matcher.NewMatcher(
			domain.WithMatcherComparer(options.Comparer),
			domain.WithMatcherDocumentFactory(options.DocumentFactory),
			domain.WithMatcherFieldNavigator(options.FieldNavigator),
		)
	}
	if options.Optimizer == nil {
		options.Optimizer = optimizer.NewOptimizer(
			domain.WithOptimizerDocumentFactory(options.DocumentFactory),
		)
	}
	return &Pipeline{
		mtchr:    options.Matcher,
		cmpr:     options.Comparer,
		fn:       options.FieldNavigator,
		proj:     options.Projector,
		opt:      options.Optimizer,
		optimize: !options.DisableOptimization,
		log:      options.Logger.Named("pipeline"),
	}
}

// Explain implements [domain.Pipeline]. Every $match stage is replaced by the
// stages the optimizer returns for its body; other stages are validated and
// kept as they are.
func (p *Pipeline) Explain(stages ...domain.Document) ([]domain.Document, error) {
	res := make([]domain.Document, 0, len(stages))
	for n, stage := range stages {
		name, arg, err := p.stage(stage)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", n, err)
		}
		if name != StageMatch || !p.optimize {
			res = append(res, stage)
			continue
		}
		if _, ok := asDocument(arg); !ok && arg != nil {
			return nil, fmt.Errorf("stage %d: %w", n, domain.ErrStageFormat{Stage: name, Reason: "the match filter must be an expression in an object"})
		}
		rewritten := p.opt.Optimize(arg)
		if hasExpr(arg) {
			p.log.Debug("optimized $match stage",
				zap.Int("stage", n),
				zap.Int("stages", len(rewritten)),
			)
		}
		res = append(res, rewritten...)
	}
	return res, nil
}

// Run implements [domain.Pipeline].
func (p *Pipeline) Run(ctx context.Context, docs []domain.Document, stages ...domain.Document) ([]domain.Document, error) {
	explained, err := p.Explain(stages...)
	if err != nil {
		return nil, err
	}

	res := docs
	for _, stage := range explained {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, arg, _ := p.stage(stage)
		switch name {
		case StageMatch:
			res, err = p.match(ctx, res, arg)
		case StageSkip:
			res, err = p.skip(res, arg)
		case StageLimit:
			res, err = p.limit(res, arg)
		case StageSort:
			res, err = p.sort(res, arg)
		case StageProject:
			res, err = p.project(res, arg)
		}
		if err != nil {
			return nil, fmt.Errorf("running %s: %w", name, err)
		}
	}
	return res, nil
}

func (p *Pipeline) stage(stage domain.Document) (string, any, error) {
	if stage == nil || stage.Len() != 1 {
		return "", nil, domain.ErrStageFormat{Reason: "a pipeline stage specification object must contain exactly one field"}
	}
	for name, arg := range stage.Iter() {
		switch name {
		case StageMatch, StageSkip, StageLimit, StageSort, StageProject:
			return name, arg, nil
		}
		return "", nil, domain.ErrUnknownStage{Stage: name}
	}
	return "", nil, nil
}

func (p *Pipeline) match(ctx context.Context, docs []domain.Document, query any) ([]domain.Document, error) {
	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := p.mtchr.Match(doc, query)
		if err != nil {
			return nil, fmt.Errorf("matching document: %w", err)
		}
		if matches {
			res = append(res, doc)
		}
	}
	return res, nil
}

func (p *Pipeline) skip(docs []domain.Document, arg any) ([]domain.Document, error) {
	n, ok := asInt(arg)
	if !ok || n < 0 {
		return nil, domain.ErrStageFormat{Stage: StageSkip, Reason: "the argument must be a non-negative integer"}
	}
	return docs[min(n, int64(len(docs))):], nil
}

func (p *Pipeline) limit(docs []domain.Document, arg any) ([]domain.Document, error) {
	n, ok := asInt(arg)
	if !ok || n <= 0 {
		return nil, domain.ErrStageFormat{Stage: StageLimit, Reason: "the limit must be positive"}
	}
	return docs[:min(n, int64(len(docs)))], nil
}

func (p *Pipeline) sort(docs []domain.Document, arg any) ([]domain.Document, error) {
	keys, err := p.sortKeys(arg)
	if err != nil {
		return nil, err
	}

	res := slices.Clone(docs)
	var sortErr error
	slices.SortStableFunc(res, func(a, b domain.Document) int {
		if sortErr != nil {
			return 0
		}
		for _, key := range keys {
			comp, err := p.compareByKey(a, b, key)
			if err != nil {
				sortErr = err
				return 0
			}
			if comp != 0 {
				return comp
			}
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return res, nil
}

// sortKeys reads {field: 1} or, for compound sorts where key order matters,
// [{field: 1}, {other: -1}].
func (p *Pipeline) sortKeys(arg any) ([]sortKey, error) {
	var specs []domain.Document
	switch t := arg.(type) {
	case []any:
		for _, item := range t {
			spec, ok := asDocument(item)
			if !ok || spec.Len() != 1 {
				return nil, domain.ErrStageFormat{Stage: StageSort, Reason: "compound sorts must list single-field objects"}
			}
			specs = append(specs, spec)
		}
	default:
		spec, ok := asDocument(arg)
		if !ok {
			return nil, domain.ErrStageFormat{Stage: StageSort, Reason: "the sort key specification must be an object"}
		}
		if spec.Len() == 0 {
			return nil, domain.ErrStageFormat{Stage: StageSort, Reason: "the sort key specification must not be empty"}
		}
		if spec.Len() > 1 {
			return nil, domain.ErrStageFormat{Stage: StageSort, Reason: "use an array of single-field objects to sort by more than one field"}
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, domain.ErrStageFormat{Stage: StageSort, Reason: "the sort key specification must not be empty"}
	}

	keys := make([]sortKey, 0, len(specs))
	for _, spec := range specs {
		for field, order := range spec.Iter() {
			o, ok := asInt(order)
			if !ok || (o != 1 && o != -1) {
				return nil, domain.ErrStageFormat{Stage: StageSort, Reason: "the sort order of " + field + " must be 1 or -1"}
			}
			addr, err := p.fn.GetAddress(field)
			if err != nil {
				return nil, fmt.Errorf("getting address: %w", err)
			}
			keys = append(keys, sortKey{addr: addr, order: int(o)})
		}
	}
	return keys, nil
}

func (p *Pipeline) compareByKey(a, b domain.Document, key sortKey) (int, error) {
	criterionA, _, err := p.fn.GetField(a, key.addr...)
	if err != nil {
		return 0, fmt.Errorf("getting field: %w", err)
	}
	criterionB, _, err := p.fn.GetField(b, key.addr...)
	if err != nil {
		return 0, fmt.Errorf("getting field: %w", err)
	}

	comp, err := p.cmpr.Compare(p.listFields(criterionA), p.listFields(criterionB))
	if err != nil {
		return 0, fmt.Errorf("comparing: %w", err)
	}
	return comp * key.order, nil
}

func (p *Pipeline) listFields(g []domain.Getter) any {
	if len(g) == 1 {
		return g[0]
	}
	res := make([]any, len(g))
	for n, v := range g {
		res[n] = v
	}
	return res
}

func (p *Pipeline) project(docs []domain.Document, arg any) ([]domain.Document, error) {
	spec, ok := asDocument(arg)
	if !ok || spec.Len() == 0 {
		return nil, domain.ErrStageFormat{Stage: StageProject, Reason: "the specification must be a non-empty object"}
	}
	projection := make(map[string]uint8, spec.Len())
	for field, v := range spec.Iter() {
		switch t := v.(type) {
		case bool:
			projection[field] = b2u(t)
		default:
			n, ok := asInt(v)
			if !ok || strings.HasPrefix(field, "$") {
				return nil, domain.ErrStageFormat{Stage: StageProject, Reason: "only inclusion and exclusion of fields are supported"}
			}
			projection[field] = b2u(n != 0)
		}
	}
	return p.proj.Project(docs, projection)
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

func hasExpr(body any) bool {
	doc, ok := asDocument(body)
	return ok && doc.Has(optimizer.ExprKey)
}

func asDocument(v any) (domain.Document, bool) {
	switch t := v.(type) {
	case domain.Document:
		return t, true
	case map[string]any:
		return data.M(t), true
	}
	return nil, false
}
