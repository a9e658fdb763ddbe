package popularity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/graph-metadata-proxy/internal/metrics"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func countingCompute(calls *int32, keys ...string) ComputeFunc {
	return func(ctx context.Context, size int) ([]string, error) {
		atomic.AddInt32(calls, 1)
		if size < len(keys) {
			return keys[:size], nil
		}
		return keys, nil
	}
}

func TestGetOrComputeRunsOnce(t *testing.T) {
	cache := NewCache(NewMemoryStore(), 10, time.Hour, testLogger())
	cache.Metrics = metrics.NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	var calls int32
	compute := countingCompute(&calls, "foo", "bar", "baz")

	for i := 0; i < 3; i++ {
		keys, err := cache.GetOrCompute(ctx, 2, compute)
		require.NoError(t, err)
		assert.Equal(t, []string{"foo", "bar"}, keys)
	}

	keys, err := cache.GetOrCompute(ctx, 1, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, keys)

	keys, err = cache.GetOrCompute(ctx, 20, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "baz"}, keys)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(cache.Metrics.PopularityCacheTotal.WithLabelValues("miss")))
	assert.Equal(t, 4.0, testutil.ToFloat64(cache.Metrics.PopularityCacheTotal.WithLabelValues("hit")))
}

func TestGetOrComputeReturnsCopies(t *testing.T) {
	cache := NewCache(NewMemoryStore(), 10, time.Hour, testLogger())
	var calls int32
	compute := countingCompute(&calls, "foo", "bar")

	keys, err := cache.GetOrCompute(context.Background(), 2, compute)
	require.NoError(t, err)
	keys[0] = "mutated"

	keys, err = cache.GetOrCompute(context.Background(), 2, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, keys)
}

func TestGetOrComputeConcurrentCallersShareComputation(t *testing.T) {
	cache := NewCache(NewMemoryStore(), 10, time.Hour, testLogger())

	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context, size int) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []string{"foo", "bar"}, nil
	}

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys, err := cache.GetOrCompute(context.Background(), 2, compute)
			assert.NoError(t, err)
			results[i] = keys
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, keys := range results {
		assert.Equal(t, []string{"foo", "bar"}, keys)
	}
}

func TestGetOrComputeErrorLeavesSlotEmpty(t *testing.T) {
	store := NewMemoryStore()
	cache := NewCache(store, 10, time.Hour, testLogger())

	_, err := cache.GetOrCompute(context.Background(), 2, func(ctx context.Context, size int) ([]string, error) {
		return nil, errors.New("store down")
	})
	assert.Error(t, err)

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateStartsNewGeneration(t *testing.T) {
	cache := NewCache(NewMemoryStore(), 10, time.Hour, testLogger())
	ctx := context.Background()

	var calls int32
	compute := countingCompute(&calls, "foo")

	_, err := cache.GetOrCompute(ctx, 1, compute)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.GetOrCompute(ctx, 1, compute)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInvalidateDuringComputationDiscardsResult(t *testing.T) {
	store := NewMemoryStore()
	cache := NewCache(store, 10, time.Hour, testLogger())
	ctx := context.Background()

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context, size int) ([]string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return []string{"stale"}, nil
		}
		return []string{"fresh"}, nil
	}

	done := make(chan []string)
	go func() {
		keys, err := cache.GetOrCompute(ctx, 1, compute)
		assert.NoError(t, err)
		done <- keys
	}()

	<-started
	require.NoError(t, cache.Invalidate(ctx))
	close(release)
	assert.Equal(t, []string{"stale"}, <-done)

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "ranking computed before the invalidation must not be stored")

	keys, err := cache.GetOrCompute(ctx, 1, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, keys)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCancelledCallerDoesNotFailSharedComputation(t *testing.T) {
	cache := NewCache(NewMemoryStore(), 10, time.Hour, testLogger())

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context, size int) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		select {
		case <-release:
			return []string{"foo", "bar"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	first, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = cache.GetOrCompute(first, 2, compute)
	}()
	<-started

	var keys []string
	var err error
	go func() {
		defer wg.Done()
		keys, err = cache.GetOrCompute(context.Background(), 2, compute)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, keys)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewCacheDefaults(t *testing.T) {
	cache := NewCache(NewMemoryStore(), 0, 0, nil)
	assert.Equal(t, DefaultSize, cache.Size)
	assert.Equal(t, DefaultTTL, cache.TTL)
	assert.Same(t, logrus.StandardLogger(), cache.Logger)

	var calls int32
	keys, err := cache.GetOrCompute(context.Background(), 1, countingCompute(&calls, "foo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, keys)
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []string{"foo"}, time.Minute))
	keys, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"foo"}, keys)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return NewRedisStore(client, ""), mr
}

func TestRedisStore(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, []string{"foo", "bar"}, time.Minute))
	assert.True(t, mr.Exists(DefaultRedisKey))

	keys, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"foo", "bar"}, keys)

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, nil, 0))
	keys, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, keys)

	require.NoError(t, store.Invalidate(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheSharedThroughRedis(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()
	ctx := context.Background()

	var calls int32
	compute := countingCompute(&calls, "foo", "bar")

	first := NewCache(store, 10, time.Hour, testLogger())
	second := NewCache(NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ""), 10, time.Hour, testLogger())

	_, err := first.GetOrCompute(ctx, 2, compute)
	require.NoError(t, err)
	keys, err := second.GetOrCompute(ctx, 2, compute)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo", "bar"}, keys)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewRedisStoreWithAddrConnectionError(t *testing.T) {
	_, err := NewRedisStoreWithAddr(context.Background(), "localhost:1", "", 0)
	assert.Error(t, err)
}
