// Package optimizer rewrites the body of a $match stage so that $expr
// conditions become plain query predicates wherever that keeps the meaning of
// the filter.
package optimizer

import (
	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/converter"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
)

// Stage and wrapper keys.
const (
	ExprKey  = "$expr"
	MatchKey = "$match"
)

// Optimizer implements [domain.Optimizer].
type Optimizer struct {
	documentFactory domain.DocumentFactory
	converter       domain.Converter
}

// NewOptimizer returns a new implementation of [domain.Optimizer].
func NewOptimizer(options ...domain.OptimizerOption) domain.Optimizer {
	opts := domain.OptimizerOptions{
		DocumentFactory: data.NewDocument,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Converter == nil {
		opts.Converter = converter.NewConverter(
			domain.WithConverterDocumentFactory(opts.DocumentFactory),
		)
	}
	return &Optimizer{
		documentFactory: opts.DocumentFactory,
		converter:       opts.Converter,
	}
}

// Optimize implements [domain.Optimizer]. Filters that do not consist of a
// single non-empty $expr are returned unchanged in a single $match stage.
func (o *Optimizer) Optimize(cond any) []domain.Document {
	if cond == nil {
		return []domain.Document{o.match(o.doc())}
	}
	doc, ok := asDocument(cond)
	if !ok || doc.Len() != 1 || !doc.Has(ExprKey) || isEmpty(doc.Get(ExprKey)) {
		return []domain.Document{o.match(cond)}
	}
	return o.processExpression(doc.Get(ExprKey))
}

func (o *Optimizer) processExpression(expr any) []domain.Document {
	doc, ok := asDocument(expr)
	if !ok || doc.Len() != 1 {
		return []domain.Document{o.residual(expr)}
	}
	for tag, args := range doc.Iter() {
		op, _ := converter.ParseOperator(tag)
		if list, ok := args.([]any); ok && op.IsLogical() {
			return []domain.Document{o.processLogical(op, list, expr)}
		}
	}
	if converted, ok := o.converter.Convert(expr); ok {
		return []domain.Document{o.match(converted)}
	}
	return []domain.Document{o.residual(expr)}
}

// processLogical converts each branch of a top level $and or $or on its own.
// Converted branches come first, followed by a single $expr holding every
// branch that could not be converted, still joined by the same operator.
func (o *Optimizer) processLogical(op converter.Operator, branches []any, expr any) domain.Document {
	var optimized, remaining []any
	for _, branch := range branches {
		if converted, ok := o.converter.Convert(branch); ok {
			optimized = append(optimized, converted)
			continue
		}
		remaining = append(remaining, branch)
	}

	if len(optimized) == 0 {
		return o.residual(expr)
	}

	switch len(remaining) {
	case 0:
	case 1:
		optimized = append(optimized, o.expr(remaining[0]))
	default:
		optimized = append(optimized, o.expr(o.doc(op.String(), remaining)))
	}

	if len(optimized) == 1 {
		return o.match(optimized[0])
	}
	return o.match(o.doc(op.String(), optimized))
}

func (o *Optimizer) residual(expr any) domain.Document {
	return o.match(o.expr(expr))
}

func (o *Optimizer) expr(expr any) domain.Document {
	return o.doc(ExprKey, expr)
}

func (o *Optimizer) match(cond any) domain.Document {
	return o.doc(MatchKey, cond)
}

// doc builds a document from key and value pairs.
func (o *Optimizer) doc(kv ...any) domain.Document {
	d, err := o.documentFactory(nil)
	if err != nil {
		d = data.M{}
	}
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i].(string), kv[i+1])
	}
	return d
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

func isEmpty(v any) bool {
	doc, ok := asDocument(v)
	return ok && doc.Len() == 0
}
