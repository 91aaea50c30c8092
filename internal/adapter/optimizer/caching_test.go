package optimizer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

type countingOptimizer struct {
	mu    sync.Mutex
	calls int
	inner domain.Optimizer
}

func (c *countingOptimizer) Optimize(cond any) []domain.Document {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Optimize(cond)
}

type failingHasher struct{}

func (failingHasher) Hash(any) (uint64, error) {
	return 0, errors.New("no hash")
}

// constantHasher puts every filter under the same key.
type constantHasher struct{}

func (constantHasher) Hash(any) (uint64, error) {
	return 1, nil
}

type CachingOptimizerTestSuite struct {
	suite.Suite
	inner *countingOptimizer
	c     *CachingOptimizer
}

func (s *CachingOptimizerTestSuite) SetupTest() {
	s.inner = &countingOptimizer{inner: NewOptimizer()}
	s.c = NewCachingOptimizer(domain.WithCacheOptimizer(s.inner))
}

func (s *CachingOptimizerTestSuite) TearDownTest() {
	s.c.Stop()
}

func (s *CachingOptimizerTestSuite) TestHitsAndMisses() {
	cond := M{"$expr": M{"$and": A{M{"$eq": A{"$a", 1}}, M{"$gt": A{"$b", "$c"}}}}}
	expected := []domain.Document{M{"$match": M{"$and": A{
		M{"a": 1},
		M{"$expr": M{"$gt": A{"$b", "$c"}}},
	}}}}

	s.Equal(expected, s.c.Optimize(cond))
	s.Equal(expected, s.c.Optimize(cond))
	s.Equal(expected, s.c.Optimize(M{"$expr": M{"$and": A{M{"$eq": A{"$a", 1}}, M{"$gt": A{"$b", "$c"}}}}}))

	s.Equal(1, s.inner.calls)
	s.EqualValues(2, s.c.Hits())
	s.EqualValues(1, s.c.Misses())
	s.Equal(1, s.c.Len())
}

func (s *CachingOptimizerTestSuite) TestDifferentFilters() {
	s.c.Optimize(M{"$expr": M{"$eq": A{"$a", 1}}})
	s.c.Optimize(M{"$expr": M{"$eq": A{"$a", 1.0}}})
	s.c.Optimize(M{"$expr": M{"$eq": A{"$a", "1"}}})
	s.Equal(3, s.inner.calls)
	s.EqualValues(0, s.c.Hits())
}

// Changing a returned stage does not affect later results.
func (s *CachingOptimizerTestSuite) TestReturnsCopies() {
	cond := M{"$expr": M{"$in": A{"$a", A{1, 2}}}}
	first := s.c.Optimize(cond)
	first[0].D("$match").D("a").Set("$in", A{"changed"})

	second := s.c.Optimize(cond)
	s.Equal([]domain.Document{M{"$match": M{"a": M{"$in": A{1, 2}}}}}, second)
}

// Changing the input after it was cached does not affect the cache.
func (s *CachingOptimizerTestSuite) TestInputMutation() {
	values := A{1, 2}
	cond := M{"$expr": M{"$in": A{"$a", values}}}
	s.c.Optimize(cond)
	values[0] = 3

	res := s.c.Optimize(M{"$expr": M{"$in": A{"$a", A{1, 2}}}})
	s.Equal([]domain.Document{M{"$match": M{"a": M{"$in": A{1, 2}}}}}, res)
}

// Filters sharing a hash never get each other's stages.
func (s *CachingOptimizerTestSuite) TestHashCollision() {
	c := NewCachingOptimizer(
		domain.WithCacheOptimizer(s.inner),
		domain.WithCacheHasher(constantHasher{}),
	)
	defer c.Stop()

	first := M{"$expr": M{"$eq": A{"$a", 1}}}
	second := M{"$expr": M{"$eq": A{"$b", 2}}}
	s.Equal([]domain.Document{M{"$match": M{"a": 1}}}, c.Optimize(first))
	s.Equal([]domain.Document{M{"$match": M{"b": 2}}}, c.Optimize(second))
	s.Equal([]domain.Document{M{"$match": M{"b": 2}}}, c.Optimize(second))
	s.Equal([]domain.Document{M{"$match": M{"a": 1}}}, c.Optimize(first))

	s.Equal(3, s.inner.calls)
	s.EqualValues(1, c.Hits())
	s.EqualValues(3, c.Misses())
}

// Typed lists and decimals in returned stages are not shared with the cache.
func (s *CachingOptimizerTestSuite) TestReturnsDeepCopies() {
	price, _, err := apd.NewFromString("9.99")
	s.Require().NoError(err)
	cond := M{"$expr": M{"$and": A{
		M{"$in": A{"$tag", []string{"x", "y"}}},
		M{"$lte": A{"$price", price}},
	}}}

	first := s.c.Optimize(cond)
	conds := first[0].D("$match").Get("$and").([]any)
	conds[0].(domain.Document).D("tag").Get("$in").([]string)[0] = "changed"
	conds[1].(domain.Document).D("price").Get("$lte").(*apd.Decimal).SetInt64(0)

	second := s.c.Optimize(cond)
	s.EqualValues(1, s.c.Hits())
	s.Equal([]domain.Document{M{"$match": M{"$and": A{
		M{"tag": M{"$in": []string{"x", "y"}}},
		M{"price": M{"$lte": price}},
	}}}}, second)
}

func (s *CachingOptimizerTestSuite) TestUnhashable() {
	core, logs := observer.New(zap.DebugLevel)
	c := NewCachingOptimizer(
		domain.WithCacheOptimizer(s.inner),
		domain.WithCacheHasher(failingHasher{}),
		domain.WithCacheLogger(zap.New(core)),
	)
	defer c.Stop()

	c.Optimize(M{"$expr": M{"$eq": A{"$a", 1}}})
	c.Optimize(M{"$expr": M{"$eq": A{"$a", 1}}})
	s.Equal(2, s.inner.calls)
	s.EqualValues(0, c.Hits())
	s.EqualValues(0, c.Misses())
	s.Equal(2, logs.FilterMessage("filter not cacheable").Len())
}

func (s *CachingOptimizerTestSuite) TestExpiration() {
	c := NewCachingOptimizer(
		domain.WithCacheOptimizer(s.inner),
		domain.WithCacheTTL(time.Nanosecond),
		domain.WithCacheSize(10),
	)
	defer c.Stop()

	c.Optimize(M{"$expr": M{"$eq": A{"$a", 1}}})
	time.Sleep(time.Millisecond)
	c.Optimize(M{"$expr": M{"$eq": A{"$a", 1}}})
	s.Equal(2, s.inner.calls)
	s.EqualValues(2, c.Misses())
}

func (s *CachingOptimizerTestSuite) TestConcurrent() {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				res := s.c.Optimize(M{"$expr": M{"$gte": A{"$n", 3}}})
				s.Equal([]domain.Document{M{"$match": M{"n": M{"$gte": 3}}}}, res)
			}
		}()
	}
	wg.Wait()
	s.EqualValues(16*50, s.c.Hits()+s.c.Misses())
}

func TestCachingOptimizerTestSuite(t *testing.T) {
	suite.Run(t, new(CachingOptimizerTestSuite))
}
