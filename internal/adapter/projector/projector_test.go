package projector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
)

type M = data.M
type A = []any
type P = map[string]uint8

type fieldNavigatorMock struct{ mock.Mock }

// GetAddress implements [domain.FieldNavigator].
func (f *fieldNavigatorMock) GetAddress(field string) ([]string, error) {
	call := f.Called(field)
	return call.Get(0).([]string), call.Error(1)
}

// GetField implements [domain.FieldNavigator].
func (f *fieldNavigatorMock) GetField(doc any, addr ...string) ([]domain.Getter, bool, error) {
	call := f.Called(doc, addr)
	return call.Get(0).([]domain.Getter), call.Bool(1), call.Error(2)
}

type ProjectorTestSuite struct {
	suite.Suite
	p    *Projector
	docs []domain.Document
}

func (s *ProjectorTestSuite) SetupTest() {
	s.p = NewProjector().(*Projector)
	s.docs = []domain.Document{
		M{"_id": "1", "name": "ann", "age": 5, "address": M{"city": "rio", "zip": "2"}},
		M{"_id": "2", "name": "bob", "planets": A{M{"name": "earth", "n": 3}, M{"name": "mars", "n": 4}}},
		M{"name": "no id"},
	}
}

func (s *ProjectorTestSuite) TestNoProjection() {
	res, err := s.p.Project(s.docs, nil)
	s.NoError(err)
	s.Equal(s.docs, res)

	res, err = s.p.Project(s.docs, P{})
	s.NoError(err)
	s.Equal(s.docs, res)
}

func (s *ProjectorTestSuite) TestInclude() {
	res, err := s.p.Project(s.docs, P{"name": 1, "age": 1})
	s.NoError(err)
	s.Equal([]domain.Document{
		M{"_id": "1", "name": "ann", "age": 5},
		M{"_id": "2", "name": "bob"},
		M{"name": "no id"},
	}, res)
}

func (s *ProjectorTestSuite) TestIncludeWithoutID() {
	res, err := s.p.Project(s.docs, P{"name": 1, "_id": 0})
	s.NoError(err)
	s.Equal([]domain.Document{M{"name": "ann"}, M{"name": "bob"}, M{"name": "no id"}}, res)
}

func (s *ProjectorTestSuite) TestOnlyID() {
	res, err := s.p.Project(s.docs, P{"_id": 1})
	s.NoError(err)
	s.Equal([]domain.Document{M{"_id": "1"}, M{"_id": "2"}, M{}}, res)
}

func (s *ProjectorTestSuite) TestExclude() {
	res, err := s.p.Project(s.docs, P{"name": 0, "address.zip": 0})
	s.NoError(err)
	s.Equal([]domain.Document{
		M{"_id": "1", "age": 5, "address": M{"city": "rio"}},
		M{"_id": "2", "planets": A{M{"name": "earth", "n": 3}, M{"name": "mars", "n": 4}}},
		M{},
	}, res)

	res, err = s.p.Project(s.docs, P{"_id": 0})
	s.NoError(err)
	s.Equal(M{"name": "ann", "age": 5, "address": M{"city": "rio", "zip": "2"}}, res[0])
}

func (s *ProjectorTestSuite) TestExcludeInsideArray() {
	res, err := s.p.Project(s.docs[1:2], P{"planets.n": 0})
	s.NoError(err)
	s.Equal([]domain.Document{
		M{"_id": "2", "name": "bob", "planets": A{M{"name": "earth"}, M{"name": "mars"}}},
	}, res)
}

func (s *ProjectorTestSuite) TestIncludeNested() {
	res, err := s.p.Project(s.docs[:1], P{"address.city": 1})
	s.NoError(err)
	s.Equal([]domain.Document{M{"_id": "1", "address": M{"city": "rio"}}}, res)
}

func (s *ProjectorTestSuite) TestIncludeExpanded() {
	res, err := s.p.Project(s.docs[1:2], P{"planets.name": 1})
	s.NoError(err)
	s.Equal([]domain.Document{M{"_id": "2", "planets": M{"name": A{"earth", "mars"}}}}, res)
}

func (s *ProjectorTestSuite) TestProjectNonExistentFields() {
	res, err := s.p.Project(s.docs[:1], P{"nope": 1, "address.nope": 1})
	s.NoError(err)
	s.Equal([]domain.Document{M{"_id": "1"}}, res)
}

// Projected documents do not share values with their sources.
func (s *ProjectorTestSuite) TestCopies() {
	res, err := s.p.Project(s.docs[:1], P{"address": 1})
	s.Require().NoError(err)
	res[0].D("address").Set("city", "sp")
	s.Equal("rio", s.docs[0].D("address").Get("city"))

	res, err = s.p.Project(s.docs[:1], P{"age": 0})
	s.Require().NoError(err)
	res[0].D("address").Set("city", "sp")
	s.Equal("rio", s.docs[0].D("address").Get("city"))
}

func (s *ProjectorTestSuite) TestProjectIncludeAndExclude() {
	_, err := s.p.Project(s.docs, P{"name": 1, "age": 0})
	s.Error(err)
}

func (s *ProjectorTestSuite) TestProjectionFailedFieldNavigation() {
	fn := new(fieldNavigatorMock)
	fn.On("GetAddress", "a").Return([]string{}, errors.New("address error")).Once()
	p := NewProjector(domain.WithProjectorFieldNavigator(fn))
	_, err := p.Project(s.docs, P{"a": 1})
	s.Error(err)

	fn.On("GetAddress", "a").Return([]string{"a"}, nil)
	fn.On("GetField", mock.Anything, []string{"a"}).
		Return([]domain.Getter{}, false, errors.New("field error"))
	_, err = p.Project(s.docs, P{"a": 1})
	s.Error(err)
	fn.AssertExpectations(s.T())
}

func (s *ProjectorTestSuite) TestFailedDocumentFactory() {
	fail := func(any) (domain.Document, error) { return nil, errors.New("factory error") }
	p := NewProjector(domain.WithProjectorDocumentFactory(fail))
	_, err := p.Project(s.docs, P{"name": 1})
	s.Error(err)
	_, err = p.Project(s.docs, P{"name": 0})
	s.Error(err)
}

func TestProjectorTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectorTestSuite))
}
