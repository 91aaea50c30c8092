package converter

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
)

type ReferenceTestSuite struct {
	suite.Suite
}

func (s *ReferenceTestSuite) TestResolvePath() {
	testCases := []struct {
		in   any
		path string
		ok   bool
	}{
		{in: "$status", path: "status", ok: true},
		{in: "$item.price", path: "item.price", ok: true},
		{in: "$ítem", path: "ítem", ok: true},
		{in: getField("$item", "price"), path: "item.price", ok: true},
		{in: map[string]any{"$getField": map[string]any{"input": "$a", "field": "b"}}, path: "a.b", ok: true},
		{in: getField(getField("$a", "b"), "c"), path: "a.b.c", ok: true},
		{in: getField("$a.b", "c"), path: "a.b.c", ok: true},
		{in: "$$ROOT"},
		{in: "$"},
		{in: "status"},
		{in: "$a b"},
		{in: getField("$$x", "b")},
		{in: getField("$a", "$b")},
		{in: 12},
		{in: nil},
	}
	for _, tc := range testCases {
		path, ok := ResolvePath(tc.in)
		s.Equal(tc.ok, ok, "%v", tc.in)
		s.Equal(tc.path, path, "%v", tc.in)
		s.Equal(tc.ok, IsSimpleFieldReference(tc.in), "%v", tc.in)
	}
}

// Resolving the flat and the nested form of one path gives the same string.
func (s *ReferenceTestSuite) TestResolvePathNormalized() {
	flat, ok := ResolvePath("$item.shelf_life.age")
	s.Require().True(ok)
	nested, ok := ResolvePath(getField(getField("$item", "shelf_life"), "age"))
	s.Require().True(ok)
	s.Equal(flat, nested)
}

func (s *ReferenceTestSuite) TestIsSimpleValue() {
	d, _, err := apd.NewFromString("1.5")
	s.Require().NoError(err)
	var nilDecimal *apd.Decimal
	type label string

	simple := []any{
		nil, true, 1, int8(1), uint64(2), 1.5, float32(2), "text", "",
		time.Now(), time.Second, uuid.New(), d, *d, []byte("raw"),
		[]any{1, "a", nil}, []any{[]any{1}}, []string{"a"}, [3]int{1, 2, 3},
		label("x"), []any{},
	}
	for _, v := range simple {
		s.True(IsSimpleValue(v), "%#v", v)
	}

	notSimple := []any{
		"$field", "$$var", label("$x"), data.M{}, map[string]any{"a": 1},
		[]any{data.M{}}, []any{"$a"}, []any{[]any{"$a"}}, []string{"$a"},
		struct{}{}, &struct{}{}, nilDecimal, []data.M{{}}, map[string]int{},
		func() {}, make(chan int),
	}
	for _, v := range notSimple {
		s.False(IsSimpleValue(v), "%#v", v)
	}
}

func (s *ReferenceTestSuite) TestOperator() {
	for _, tag := range []string{"$eq", "$gt", "$gte", "$lt", "$lte", "$in", "$and", "$or"} {
		op, ok := ParseOperator(tag)
		s.True(ok)
		s.Equal(tag, op.String())
	}
	op, ok := ParseOperator("$ne")
	s.False(ok)
	s.Equal(OpUnknown, op)
	s.Equal("", Operator(200).String())

	s.True(OpAnd.IsLogical())
	s.True(OpOr.IsLogical())
	s.False(OpIn.IsLogical())
	s.True(OpGt.IsOrdering())
	s.True(OpLte.IsOrdering())
	s.False(OpEq.IsOrdering())
	s.False(OpIn.IsOrdering())
}

func TestReferenceTestSuite(t *testing.T) {
	suite.Run(t, new(ReferenceTestSuite))
}
