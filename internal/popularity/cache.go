// Package popularity caches the expensive popular-table ranking.
package popularity

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/graph-metadata-proxy/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSize is the number of ranked keys computed per generation
	DefaultSize = 50
	// DefaultTTL is how long a computed ranking is served
	DefaultTTL = 24 * time.Hour

	rankingKey = "ranking"
)

// ComputeFunc ranks up to size table keys
type ComputeFunc func(ctx context.Context, size int) ([]string, error)

// Cache holds one precomputed ranking of fixed size. Callers read prefixes of
// it; the ranking is recomputed only after it expires or is invalidated.
type Cache struct {
	Store   Store
	Size    int
	TTL     time.Duration
	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	group      singleflight.Group
	mu         sync.Mutex
	generation uint64
}

// NewCache creates a cache over store. Non-positive size and ttl fall back to
// the defaults.
func NewCache(store Store, size int, ttl time.Duration, logger *logrus.Logger) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Cache{
		Store:  store,
		Size:   size,
		TTL:    ttl,
		Logger: logger,
	}
}

// GetOrCompute returns the first n ranked keys, computing the ranking with
// compute when the slot is empty. Concurrent misses share one computation.
func (c *Cache) GetOrCompute(ctx context.Context, n int, compute ComputeFunc) ([]string, error) {
	keys, ok, err := c.Store.Load(ctx)
	if err != nil {
		c.Logger.Warningf("Error loading popular tables from cache: %v", err)
		return nil, err
	}
	c.Metrics.ObserveCache(ok)
	if ok {
		return prefix(keys, n), nil
	}

	value, err, shared := c.group.Do(rankingKey, func() (interface{}, error) {
		// Callers joining this computation must not fail when the first one is cancelled
		ctx := context.WithoutCancel(ctx)

		// Another caller may have filled the slot while we waited
		if keys, ok, err := c.Store.Load(ctx); err == nil && ok {
			return keys, nil
		}

		generation := c.currentGeneration()
		c.Logger.Infof("Computing popular table ranking of %d entries", c.Size)
		keys, err := compute(ctx, c.Size)
		if err != nil {
			return nil, err
		}
		if err := c.save(ctx, generation, keys); err != nil {
			return nil, err
		}
		return keys, nil
	})
	if err != nil {
		c.Logger.Errorf("Error computing popular table ranking: %v", err)
		return nil, err
	}
	if shared {
		c.Logger.Debug("Popular table ranking shared with a concurrent caller")
	}

	return prefix(value.([]string), n), nil
}

// Invalidate drops the stored ranking so the next call recomputes it. A
// computation still in flight is not stored.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.group.Forget(rankingKey)
	return c.Store.Invalidate(ctx)
}

// save stores keys unless the ranking was invalidated after generation began
func (c *Cache) save(ctx context.Context, generation uint64, keys []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.Logger.Debug("Popular table ranking invalidated during computation, not storing it")
		return nil
	}
	return c.Store.Save(ctx, keys, c.TTL)
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func prefix(keys []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if n > len(keys) {
		n = len(keys)
	}
	result := make([]string, n)
	copy(result, keys[:n])
	return result
}
