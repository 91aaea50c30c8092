package optimizer

import (
	"bytes"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/apd/v3"
	goreflect "github.com/goccy/go-reflect"
	"github.com/karlseguin/ccache/v2"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/mqlopt/internal/adapter/hasher"
)

// Default cache settings.
const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 10 * time.Minute
)

// CachingOptimizer wraps a [domain.Optimizer] and memoizes its results, keyed
// by the structural hash of the filter. A cached entry is only reused when its
// filter has the same canonical encoding as the requested one, so colliding
// hashes cost a miss instead of returning stages of another filter. Filters
// that cannot be hashed are optimized without caching.
type CachingOptimizer struct {
	optimizer domain.Optimizer
	hasher    domain.Hasher
	cache     *ccache.Cache
	ttl       time.Duration
	log       *zap.Logger

	hits   int64
	misses int64
}

// NewCachingOptimizer returns a [CachingOptimizer]. Call Stop to release the
// cache when it is no longer needed.
func NewCachingOptimizer(options ...domain.CacheOption) *CachingOptimizer {
	opts := domain.CacheOptions{
		Size: DefaultCacheSize,
		TTL:  DefaultCacheTTL,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Optimizer == nil {
		opts.Optimizer = NewOptimizer()
	}
	if opts.Hasher == nil {
		opts.Hasher = hasher.NewHasher()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Size <= 0 {
		opts.Size = DefaultCacheSize
	}

	return &CachingOptimizer{
		optimizer: opts.Optimizer,
		hasher:    opts.Hasher,
		cache:     ccache.New(ccache.Configure().MaxSize(opts.Size)),
		ttl:       opts.TTL,
		log:       opts.Logger.Named("optimizer.cache"),
	}
}

type entry struct {
	filter string
	stages []domain.Document
}

// Optimize implements [domain.Optimizer]. Returned stages are deep copies, so
// callers may modify them freely.
func (c *CachingOptimizer) Optimize(cond any) []domain.Document {
	h, err := c.hasher.Hash(cond)
	if err != nil {
		c.log.Debug("filter not cacheable", zap.Error(err))
		return c.optimizer.Optimize(cond)
	}
	filter, err := hasher.Encode(cond)
	if err != nil {
		c.log.Debug("filter not cacheable", zap.Error(err))
		return c.optimizer.Optimize(cond)
	}
	key := strconv.FormatUint(h, 16)

	if item := c.cache.Get(key); item != nil && !item.Expired() {
		if e := item.Value().(entry); e.filter == string(filter) {
			atomic.AddInt64(&c.hits, 1)
			return clone(e.stages)
		}
		c.log.Debug("hash collision", zap.String("key", key))
	}

	stages := clone(c.optimizer.Optimize(cond))
	c.cache.Set(key, entry{filter: string(filter), stages: stages}, c.ttl)
	atomic.AddInt64(&c.misses, 1)
	c.log.Debug("cached optimized filter",
		zap.String("key", key),
		zap.Int("stages", len(stages)),
	)
	return clone(stages)
}

// Hits returns how many calls were answered from the cache.
func (c *CachingOptimizer) Hits() int64 {
	return atomic.LoadInt64(&c.hits)
}

// Misses returns how many calls ran the wrapped optimizer.
func (c *CachingOptimizer) Misses() int64 {
	return atomic.LoadInt64(&c.misses)
}

// Len returns the number of cached filters.
func (c *CachingOptimizer) Len() int {
	return c.cache.ItemCount()
}

// Stop stops the cache background worker.
func (c *CachingOptimizer) Stop() {
	c.cache.Stop()
}

func clone(stages []domain.Document) []domain.Document {
	res := make([]domain.Document, len(stages))
	for n, stage := range stages {
		res[n] = deepCopy(stage).(domain.Document)
	}
	return res
}

// deepCopy copies documents, lists, decimals and binary values. Typed lists
// keep their type.
func deepCopy(v any) any {
	switch t := v.(type) {
	case domain.Document:
		res := make(data.M, t.Len())
		for k, item := range t.Iter() {
			res[k] = deepCopy(item)
		}
		return res
	case map[string]any:
		return deepCopy(data.M(t))
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = deepCopy(item)
		}
		return res
	case []byte:
		return bytes.Clone(t)
	case *apd.Decimal:
		if t == nil {
			return t
		}
		return new(apd.Decimal).Set(t)
	case nil:
		return nil
	}
	r := goreflect.ValueOf(v)
	if r.Kind() != goreflect.Slice || r.IsNil() {
		return v
	}
	res := goreflect.MakeSlice(r.Type(), r.Len(), r.Len())
	for i := range r.Len() {
		item := r.Index(i)
		if !item.CanInterface() {
			return v
		}
		copied := deepCopy(item.Interface())
		if copied == nil {
			continue
		}
		res.Index(i).Set(goreflect.ValueOf(copied))
	}
	return res.Interface()
}
