// Package projector contains the default [domain.Projector] implementation.
package projector

import (
	"fmt"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/fieldnavigator"
)

// Projector implements [domain.Projector].
type Projector struct {
	fn     domain.FieldNavigator
	docFac domain.DocumentFactory
}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector(opts ...domain.ProjectorOption) domain.Projector {
	options := domain.ProjectorOptions{
		DocumentFactory: data.NewDocument,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.FieldNavigator == nil {
		options.FieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	return &Projector{
		fn:     options.FieldNavigator,
		docFac: options.DocumentFactory,
	}
}

// Project implements [domain.Projector]. Projections either keep or omit
// fields. _id is kept unless explicitly omitted and is the only field that
// may be omitted in an inclusion projection.
func (q *Projector) Project(docs []domain.Document, p map[string]uint8) ([]domain.Document, error) {
	if len(p) == 0 {
		return docs, nil
	}

	id, idMentioned := p["_id"]
	keepID := !idMentioned || id != 0
	projection := make([][]string, 0, len(p))

	fields := 0
	oneFields := 0
	for field, value := range p {
		if field == "_id" {
			continue
		}
		fields++
		if value > 0 {
			oneFields++
		}
		if oneFields > 0 && oneFields != fields {
			return nil, fmt.Errorf("can't both keep and omit fields except for _id")
		}
		addr, err := q.fn.GetAddress(field)
		if err != nil {
			return nil, err
		}
		projection = append(projection, addr)
	}

	// {_id: 1} alone keeps only the id
	include := oneFields != 0 || (fields == 0 && keepID)

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		projected, err := q.projectDoc(doc, projection, include)
		if err != nil {
			return nil, err
		}

		if keepID && doc.Has("_id") {
			projected.Set("_id", data.Value(doc.Get("_id")))
		} else if !keepID {
			projected.Unset("_id")
		}
		res[n] = projected
	}

	return res, nil
}

func (q *Projector) projectDoc(doc domain.Document, p [][]string, include bool) (domain.Document, error) {
	if include {
		return q.positiveProject(doc, p)
	}
	return q.negativeProject(doc, p)
}

func (q *Projector) positiveProject(doc domain.Document, p [][]string) (domain.Document, error) {
	res, err := q.docFac(nil)
	if err != nil {
		return nil, err
	}

	for _, field := range p {
		values, expanded, err := q.fn.GetField(doc, field...)
		if err != nil {
			return nil, err
		}
		fieldValues, ok := q.readFields(values, expanded)
		if !ok {
			continue
		}
		if err := q.setPath(res, field, data.Value(fieldValues)); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (q *Projector) readFields(f []domain.Getter, expanded bool) (any, bool) {
	if !expanded {
		return f[0].Get()
	}
	res := make([]any, 0, len(f))
	for _, field := range f {
		if value, ok := field.Get(); ok {
			res = append(res, value)
		}
	}
	return res, true
}

// setPath sets value under addr, creating intermediate documents.
func (q *Projector) setPath(doc domain.Document, addr []string, value any) error {
	for _, part := range addr[:len(addr)-1] {
		next, ok := doc.Get(part).(domain.Document)
		if !ok {
			created, err := q.docFac(nil)
			if err != nil {
				return err
			}
			doc.Set(part, created)
			next = created
		}
		doc = next
	}
	doc.Set(addr[len(addr)-1], value)
	return nil
}

func (q *Projector) negativeProject(doc domain.Document, p [][]string) (domain.Document, error) {
	res, err := q.docFac(doc)
	if err != nil {
		return nil, err
	}
	for _, field := range p {
		unsetPath(res, field)
	}
	return res, nil
}

// unsetPath removes the field under addr. Arrays on the way apply the rest of
// the path to each of their documents.
func unsetPath(v any, addr []string) {
	switch t := v.(type) {
	case domain.Document:
		if len(addr) == 1 {
			t.Unset(addr[0])
			return
		}
		unsetPath(t.Get(addr[0]), addr[1:])
	case []any:
		for _, item := range t {
			unsetPath(item, addr)
		}
	}
}
