package cursor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
)

type M = data.M

type decoderMock struct{ mock.Mock }

// Decode implements [domain.Decoder].
func (d *decoderMock) Decode(src any, tgt any) error {
	return d.Called(src, tgt).Error(0)
}

type item struct {
	SKU string `mql:"sku"`
	Qty int    `mql:"qty"`
}

type order struct {
	ID      uuid.UUID `mql:"_id"`
	Status  string    `mql:"status"`
	Total   float64   `mql:"total"`
	Exact   string    `mql:"total_text"`
	Placed  time.Time `mql:"placed_at"`
	Items   []item    `mql:"items"`
	Comment *string   `mql:"comment"`
}

type CursorTestSuite struct {
	suite.Suite
	ctx    context.Context
	ids    []uuid.UUID
	placed time.Time
	orders []domain.Document
}

func (s *CursorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.placed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ids = nil
	s.orders = nil
	for n, status := range []string{"open", "paid", "shipped"} {
		total, _, err := apd.NewFromString([]string{"10.5", "99.99", "0.25"}[n])
		s.Require().NoError(err)
		id := uuid.New()
		s.ids = append(s.ids, id)
		s.orders = append(s.orders, M{
			"_id":        id,
			"status":     status,
			"total":      total,
			"total_text": total,
			"placed_at":  s.placed.Add(time.Duration(n) * time.Hour),
			"items":      []any{M{"sku": "p-1", "qty": n + 1}},
		})
	}
}

func (s *CursorTestSuite) scanAll(cur domain.Cursor) []order {
	s.T().Helper()
	var res []order
	for cur.Next() {
		var o order
		s.Require().NoError(cur.Scan(s.ctx, &o))
		res = append(res, o)
	}
	s.Require().NoError(cur.Err())
	return res
}

// Orders come back in insertion order with every tagged field decoded.
func (s *CursorTestSuite) TestDecodesTaggedFields() {
	cur, err := NewCursor(s.ctx, s.orders)
	s.Require().NoError(err)

	res := s.scanAll(cur)
	s.Require().Len(res, 3)
	s.Equal(order{
		ID:     s.ids[1],
		Status: "paid",
		Total:  99.99,
		Exact:  "99.99",
		Placed: s.placed.Add(time.Hour),
		Items:  []item{{SKU: "p-1", Qty: 2}},
	}, res[1])
	for n, o := range res {
		s.Equal(s.ids[n], o.ID)
		s.Nil(o.Comment)
	}
}

func (s *CursorTestSuite) TestEmpty() {
	for _, docs := range [][]domain.Document{nil, {}} {
		cur, err := NewCursor(s.ctx, docs)
		s.Require().NoError(err)
		s.Empty(s.scanAll(cur))
		s.False(cur.Next())
	}
}

// Later changes to the slice the cursor was built from are not seen.
func (s *CursorTestSuite) TestOwnsItsSlice() {
	cur, err := NewCursor(s.ctx, s.orders)
	s.Require().NoError(err)
	s.orders[0] = M{"status": "replaced"}
	s.orders = s.orders[:1]

	res := s.scanAll(cur)
	s.Len(res, 3)
	s.Equal("open", res[0].Status)
}

func (s *CursorTestSuite) TestScanBeforeNext() {
	cur, err := NewCursor(s.ctx, s.orders)
	s.Require().NoError(err)
	s.ErrorIs(cur.Scan(s.ctx, new(order)), domain.ErrScanBeforeNext)
}

func (s *CursorTestSuite) TestScanExhausted() {
	cur, err := NewCursor(s.ctx, s.orders[:1])
	s.Require().NoError(err)
	s.True(cur.Next())
	s.False(cur.Next())
	s.Error(cur.Scan(s.ctx, new(order)))
	s.NoError(cur.Err())
}

// A status that does not fit the target field fails that scan only.
func (s *CursorTestSuite) TestDecodeFailure() {
	docs := []domain.Document{M{"status": A{"not", "a", "string"}}, s.orders[0]}
	cur, err := NewCursor(s.ctx, docs)
	s.Require().NoError(err)

	s.True(cur.Next())
	var o order
	s.ErrorAs(cur.Scan(s.ctx, &o), new(domain.ErrDecode))
	s.True(cur.Next())
	s.NoError(cur.Scan(s.ctx, &o))
	s.Equal("open", o.Status)
}

func (s *CursorTestSuite) TestClose() {
	cur, err := NewCursor(s.ctx, s.orders)
	s.Require().NoError(err)
	s.True(cur.Next())

	s.NoError(cur.Close())
	s.ErrorIs(cur.Close(), domain.ErrCursorClosed)
	s.ErrorIs(cur.Scan(s.ctx, new(order)), domain.ErrCursorClosed)
	s.False(cur.Next())
	s.ErrorIs(cur.Err(), domain.ErrCursorClosed)
}

func (s *CursorTestSuite) TestCanceledBeforeCreation() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	cur, err := NewCursor(ctx, s.orders)
	s.ErrorIs(err, context.Canceled)
	s.Nil(cur)
}

// Canceling the context the cursor was created with stops the iteration and
// is reported by Err.
func (s *CursorTestSuite) TestCreationContextCanceled() {
	ctx, cancel := context.WithCancel(s.ctx)
	cur, err := NewCursor(ctx, s.orders)
	s.Require().NoError(err)

	s.True(cur.Next())
	cancel()
	s.ErrorIs(cur.Scan(s.ctx, new(order)), context.Canceled)
	s.False(cur.Next())
	s.ErrorIs(cur.Err(), context.Canceled)
}

// A canceled Scan context fails each scan but leaves the cursor usable.
func (s *CursorTestSuite) TestScanContextCanceled() {
	cur, err := NewCursor(s.ctx, s.orders)
	s.Require().NoError(err)

	cause := errors.New("request aborted")
	ctx, cancel := context.WithCancelCause(s.ctx)
	cancel(cause)

	var count int
	for cur.Next() {
		s.ErrorIs(cur.Scan(ctx, new(order)), cause)
		count++
	}
	s.Equal(3, count)
	s.NoError(cur.Err())
}

func (s *CursorTestSuite) TestCustomDecoder() {
	dec := new(decoderMock)
	dec.On("Decode", s.orders[0], mock.Anything).
		Run(func(args mock.Arguments) {
			args[1].(*order).Status = "decoded"
		}).
		Return(nil).Once()

	cur, err := NewCursor(s.ctx, s.orders[:1], domain.WithCursorDecoder(dec))
	s.Require().NoError(err)

	res := s.scanAll(cur)
	s.Equal([]order{{Status: "decoded"}}, res)
	dec.AssertExpectations(s.T())
}

type A = []any

func TestCursorTestSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}
