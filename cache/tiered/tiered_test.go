package tiered

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstream/workstream/cache/memory"
	"github.com/workstream/workstream/pkg/workstream"
)

// downCache simulates an unavailable tier: every operation fails.
type downCache struct{}

func (downCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("%w: connection refused", workstream.ErrCacheUnavailable)
}

func (downCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return fmt.Errorf("%w: connection refused", workstream.ErrCacheUnavailable)
}

func (downCache) Delete(ctx context.Context, key string) (bool, error) {
	return false, fmt.Errorf("%w: connection refused", workstream.ErrCacheUnavailable)
}

func (downCache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	return 0, fmt.Errorf("%w: connection refused", workstream.ErrCacheUnavailable)
}

// captureMetrics records cache operation outcomes.
type captureMetrics struct {
	workstream.NoopMetrics
	mu  sync.Mutex
	ops map[string][]error
}

func (m *captureMetrics) RecordCacheOperation(op string, d time.Duration, err error) {
	m.mu.Lock()
	if m.ops == nil {
		m.ops = make(map[string][]error)
	}
	m.ops[op] = append(m.ops[op], err)
	m.mu.Unlock()
}

func (m *captureMetrics) errorsFor(op string) []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []error
	for _, err := range m.ops[op] {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func newTestCache(t *testing.T, primary, fallback workstream.Cache) *Cache {
	t.Helper()
	c, err := New(Config{Primary: primary, Fallback: fallback})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBothTiers(t *testing.T) {
	_, err := New(Config{Primary: memory.New(memory.DefaultConfig())})
	assert.Error(t, err)

	_, err = New(Config{Fallback: memory.New(memory.DefaultConfig())})
	assert.Error(t, err)
}

func TestCache_PrimaryHitRepairsFallback(t *testing.T) {
	primary := memory.New(memory.DefaultConfig())
	fallback := memory.New(memory.DefaultConfig())
	c := newTestCache(t, primary, fallback)
	ctx := context.Background()

	// Seed only the primary, as if the fallback entry had expired.
	require.NoError(t, primary.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// The hit repaired the fallback tier.
	repaired, err := fallback.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), repaired)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.PrimaryHits)
	assert.Equal(t, uint64(0), stats.FallbackHits)
}

func TestCache_FallbackServesWhenPrimaryDown(t *testing.T) {
	fallback := memory.New(memory.DefaultConfig())
	c := newTestCache(t, downCache{}, fallback)
	ctx := context.Background()

	require.NoError(t, fallback.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.FallbackHits)
	assert.Equal(t, uint64(1), stats.Errors)
}

func TestCache_MissInBothTiers(t *testing.T) {
	c := newTestCache(t, memory.New(memory.DefaultConfig()), memory.New(memory.DefaultConfig()))

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, workstream.ErrCacheMiss)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestCache_SetWritesThroughBothTiers(t *testing.T) {
	primary := memory.New(memory.DefaultConfig())
	fallback := memory.New(memory.DefaultConfig())
	c := newTestCache(t, primary, fallback)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	for name, tier := range map[string]workstream.Cache{"primary": primary, "fallback": fallback} {
		got, err := tier.Get(ctx, "k")
		require.NoError(t, err, name)
		assert.Equal(t, []byte("v"), got, name)
	}
}

func TestCache_SetSucceedsWithPrimaryDown(t *testing.T) {
	fallback := memory.New(memory.DefaultConfig())
	c := newTestCache(t, downCache{}, fallback)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := fallback.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestCache_SetFailsWhenBothTiersFail(t *testing.T) {
	c := newTestCache(t, downCache{}, downCache{})

	err := c.Set(context.Background(), "k", []byte("v"), time.Minute)
	assert.ErrorIs(t, err, workstream.ErrCacheUnavailable)
}

func TestCache_DeleteSpansTiers(t *testing.T) {
	primary := memory.New(memory.DefaultConfig())
	fallback := memory.New(memory.DefaultConfig())
	c := newTestCache(t, primary, fallback)
	ctx := context.Background()

	// Present only in the fallback tier.
	require.NoError(t, fallback.Set(ctx, "k", []byte("v"), time.Minute))

	deleted, err := c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCache_DeletePatternSumsTiers(t *testing.T) {
	primary := memory.New(memory.DefaultConfig())
	fallback := memory.New(memory.DefaultConfig())
	c := newTestCache(t, primary, fallback)
	ctx := context.Background()

	require.NoError(t, primary.Set(ctx, "workItems:a:1", []byte("v"), time.Minute))
	require.NoError(t, fallback.Set(ctx, "workItems:a:2", []byte("v"), time.Minute))
	require.NoError(t, fallback.Set(ctx, "other:1", []byte("v"), time.Minute))

	n, err := c.DeletePattern(ctx, "workItems:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = fallback.Get(ctx, "other:1")
	assert.NoError(t, err)
}

func TestCache_DeletePatternToleratesOneDownTier(t *testing.T) {
	fallback := memory.New(memory.DefaultConfig())
	c := newTestCache(t, downCache{}, fallback)
	ctx := context.Background()

	require.NoError(t, fallback.Set(ctx, "workItems:a:1", []byte("v"), time.Minute))

	n, err := c.DeletePattern(ctx, "workItems:*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCache_OperationMetricsSeeTierErrors(t *testing.T) {
	metrics := &captureMetrics{}
	fallback := memory.New(memory.DefaultConfig())
	c, err := New(Config{Primary: downCache{}, Fallback: fallback, Metrics: metrics})
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = c.Get(ctx, "k")
	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	_, _ = c.Delete(ctx, "k")
	_, _ = c.DeletePattern(ctx, "workItems:*")

	// Every operation that hit the down primary must surface the failure,
	// even when the fallback made the operation succeed overall.
	for _, op := range []string{"get", "set", "delete", "delete_pattern"} {
		errs := metrics.errorsFor(op)
		require.NotEmpty(t, errs, "operation %s recorded no error", op)
		assert.ErrorIs(t, errs[0], workstream.ErrCacheUnavailable, op)
	}
}

func TestCache_OperationMetricsCleanOnMiss(t *testing.T) {
	metrics := &captureMetrics{}
	c, err := New(Config{
		Primary:  memory.New(memory.DefaultConfig()),
		Fallback: memory.New(memory.DefaultConfig()),
		Metrics:  metrics,
	})
	require.NoError(t, err)

	_, getErr := c.Get(context.Background(), "absent")
	require.ErrorIs(t, getErr, workstream.ErrCacheMiss)
	assert.Empty(t, metrics.errorsFor("get"), "a miss is not an operation error")
}

func TestCache_GetOrSet(t *testing.T) {
	c := newTestCache(t, memory.New(memory.DefaultConfig()), memory.New(memory.DefaultConfig()))
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}

	got, err := c.GetOrSet(ctx, "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, []byte("computed"), got)
	assert.Equal(t, 1, calls)

	// Second call hits the cache.
	got, err = c.GetOrSet(ctx, "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, []byte("computed"), got)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrSetComputeError(t *testing.T) {
	c := newTestCache(t, memory.New(memory.DefaultConfig()), memory.New(memory.DefaultConfig()))

	wantErr := errors.New("upstream query failed")
	_, err := c.GetOrSet(context.Background(), "k", time.Minute, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestCache_GetOrSetNilValueNotCached(t *testing.T) {
	c := newTestCache(t, memory.New(memory.DefaultConfig()), memory.New(memory.DefaultConfig()))
	ctx := context.Background()

	calls := 0
	compute := func(ctx context.Context) ([]byte, error) {
		calls++
		return nil, nil
	}

	got, err := c.GetOrSet(ctx, "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = c.GetOrSet(ctx, "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "nil results must not be cached")
}

func TestCache_BatchGetSet(t *testing.T) {
	c := newTestCache(t, memory.New(memory.DefaultConfig()), memory.New(memory.DefaultConfig()))
	ctx := context.Background()

	entries := make(map[string][]byte)
	for i := 0; i < 20; i++ {
		entries[fmt.Sprintf("k%d", i)] = []byte(fmt.Sprintf("v%d", i))
	}
	require.NoError(t, c.BatchSet(ctx, entries, time.Minute))

	keys := make([]string, 0, len(entries)+1)
	for k := range entries {
		keys = append(keys, k)
	}
	keys = append(keys, "absent")

	got, err := c.BatchGet(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.NotContains(t, got, "absent")
}
