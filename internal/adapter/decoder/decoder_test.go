package decoder

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
)

type M = data.M

type DecoderTestSuite struct {
	suite.Suite
	d *Decoder
}

func (s *DecoderTestSuite) SetupTest() {
	s.d = NewDecoder().(*Decoder)
}

func (s *DecoderTestSuite) TestSimpleStruct() {
	type SimpleStruct struct {
		Name  string
		Age   int
		Human bool
	}

	var tgt SimpleStruct
	err := s.d.Decode(M{"name": "Jonathan", "age": 18, "human": true}, &tgt)
	s.NoError(err)
	s.Equal("Jonathan", tgt.Name)
	s.Equal(18, tgt.Age)
	s.Equal(true, tgt.Human)
}

func (s *DecoderTestSuite) TestLists() {
	type ListStruct struct {
		Booleans []bool
		Strings  []string
		Numbers  []int
	}

	data := M{
		"booleans": []any{true, false},
		"strings":  []any{"one", "two"},
		"numbers":  []any{1, uint(2), 3.0},
	}

	var tgt ListStruct
	err := s.d.Decode(data, &tgt)
	s.NoError(err)
	s.Equal([]bool{true, false}, tgt.Booleans)
	s.Equal([]string{"one", "two"}, tgt.Strings)
	s.Equal([]int{1, 2, 3}, tgt.Numbers)
}

func (s *DecoderTestSuite) TestNested() {
	type NestedStruct struct {
		Nested struct {
			Text   string
			Number float64
		}
	}

	data := M{
		"nested": M{
			"text":   "str",
			"number": 1,
		},
	}

	var tgt NestedStruct
	err := s.d.Decode(data, &tgt)
	s.NoError(err)
	s.Equal("str", tgt.Nested.Text)
	s.Equal(1.0, tgt.Nested.Number)
}

func (s *DecoderTestSuite) TestIncompleteData() {
	type IncompleteStruct struct {
		Number  int
		Boolean bool
		Text    string
	}

	tgt := IncompleteStruct{}
	err := s.d.Decode(M{"number": 2}, &tgt)
	s.NoError(err)
	s.Equal(2, tgt.Number)
	s.Zero(tgt.Boolean)
	s.Zero(tgt.Text)

	tgt = IncompleteStruct{}
	err = s.d.Decode(M{"boolean": true}, &tgt)
	s.NoError(err)
	s.Zero(tgt.Number)
	s.Equal(true, tgt.Boolean)
	s.Zero(tgt.Text)

	tgt = IncompleteStruct{}
	err = s.d.Decode(M{"text": "str"}, &tgt)
	s.NoError(err)
	s.Zero(tgt.Number)
	s.Zero(tgt.Boolean)
	s.Equal("str", tgt.Text)
}

func (s *DecoderTestSuite) TestExtraFields() {
	type ExtraFieldsStruct struct {
		Number  int
		Boolean bool
	}

	tgt := ExtraFieldsStruct{}
	err := s.d.Decode(M{"number": 2, "boolean": true, "text": "str"}, &tgt)
	s.NoError(err)
	s.Equal(2, tgt.Number)
	s.Equal(true, tgt.Boolean)
}

func (s *DecoderTestSuite) TestExtraAndMissingFields() {
	type ExtraAndMissingFieldsStruct struct {
		Number  int
		Boolean bool
	}

	tgt := ExtraAndMissingFieldsStruct{}
	err := s.d.Decode(M{"number": 2, "text": "str"}, &tgt)
	s.NoError(err)
	s.Equal(2, tgt.Number)
	s.Zero(tgt.Boolean)
}

func (s *DecoderTestSuite) TestWeaklyTyped() {
	type IncompatibleStruct struct {
		Number  uint
		Boolean bool
		Text    string
	}

	var tgt IncompatibleStruct

	s.ErrorAs(s.d.Decode(M{"number": -1}, &tgt), &domain.ErrDecode{})
	s.ErrorAs(s.d.Decode(M{"boolean": 1}, &tgt), &domain.ErrDecode{})
	s.ErrorAs(s.d.Decode(M{"text": 123}, &tgt), &domain.ErrDecode{})
}

func (s *DecoderTestSuite) TestInvalidPointer() {
	type InvalidPointerStruct struct{}

	var tgt InvalidPointerStruct
	err := s.d.Decode(M{}, tgt)
	s.ErrorIs(err, domain.ErrNonPointer)
	s.ErrorIs(s.d.Decode(M{}, nil), domain.ErrTargetNil)
	s.ErrorIs(s.d.Decode(M{}, (*InvalidPointerStruct)(nil)), domain.ErrNonPointer)
}

func (s *DecoderTestSuite) TestTags() {
	type Tagged struct {
		ID   string `mql:"_id"`
		Name string `mql:"full_name"`
	}

	var tgt Tagged
	s.NoError(s.d.Decode(M{"_id": "x1", "full_name": "Ann Lee"}, &tgt))
	s.Equal(Tagged{ID: "x1", Name: "Ann Lee"}, tgt)
}

func (s *DecoderTestSuite) TestDomainTypes() {
	type Typed struct {
		ID      uuid.UUID
		Created time.Time
		Timeout time.Duration
		Price   float64
		Exact   string
		Raw     *apd.Decimal
	}

	id := uuid.New()
	now := time.Now()
	price, _, err := apd.NewFromString("12.5")
	s.Require().NoError(err)

	var tgt Typed
	s.NoError(s.d.Decode(M{
		"id":      id.String(),
		"created": now,
		"timeout": "5m",
		"price":   price,
		"exact":   price,
		"raw":     price,
	}, &tgt))
	s.Equal(id, tgt.ID)
	s.True(now.Equal(tgt.Created))
	s.Equal(5*time.Minute, tgt.Timeout)
	s.Equal(12.5, tgt.Price)
	s.Equal("12.5", tgt.Exact)
	s.Equal(price, tgt.Raw)

	tgt = Typed{}
	s.NoError(s.d.Decode(M{"id": id}, &tgt))
	s.Equal(id, tgt.ID)
}

// Documents other than M decode the same way.
type pairDoc struct{ data.M }

func (s *DecoderTestSuite) TestDocumentInterface() {
	type Outer struct {
		Inner struct {
			Value int
		}
	}

	var tgt Outer
	s.NoError(s.d.Decode(pairDoc{M{"inner": pairDoc{M{"value": 3}}}}, &tgt))
	s.Equal(3, tgt.Inner.Value)
}

func (s *DecoderTestSuite) TestMap() {
	var tgt map[string]any
	s.NoError(s.d.Decode(M{"a": M{"b": []any{M{"c": 1}}}}, &tgt))
	s.Equal(map[string]any{"a": map[string]any{"b": []any{map[string]any{"c": 1}}}}, tgt)
}

func TestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(DecoderTestSuite))
}
