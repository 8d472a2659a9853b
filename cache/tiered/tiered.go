// Package tiered orchestrates the two cache tiers: a primary (remote,
// allowed to be down) and a fallback (in-process, TTL-capped). Reads prefer
// the primary and repair the fallback on hits; writes go through to both.
// An unavailable primary is silently routed around, never surfaced to the
// event pipeline.
package tiered

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/workstream/workstream/pkg/workstream"
)

// latencyWindowSize bounds the operation latency sample window.
const latencyWindowSize = 100

// Config configures the tiered cache behavior.
type Config struct {
	// Primary is the remote tier (e.g. Redis). Required.
	Primary workstream.Cache

	// Fallback is the in-process tier. Required.
	Fallback workstream.Cache

	// RefreshTTL is the fallback TTL used when repairing the fallback from
	// a primary hit (default: 60s). The fallback tier still applies its
	// own ceiling.
	RefreshTTL time.Duration

	// BatchConcurrency bounds concurrent per-key operations in BatchGet
	// and BatchSet (default: 8).
	BatchConcurrency int

	// Logger receives tier failure logs. Default: NoopLogger.
	Logger workstream.Logger

	// Metrics receives hit/miss and latency metrics. Default: NoopMetrics.
	Metrics workstream.Metrics
}

// Cache implements the multi-tier policy over two workstream.Cache tiers.
// It satisfies workstream.Cache itself, so the invalidator and callers see
// one backend.
type Cache struct {
	primary  workstream.Cache
	fallback workstream.Cache
	conf     Config

	mu           sync.Mutex
	primaryHits  uint64
	fallbackHits uint64
	misses       uint64
	sets         uint64
	errorCount   uint64
	latency      *workstream.Window
}

// Stats is a snapshot of the per-tier counters and the latency window.
type Stats struct {
	PrimaryHits  uint64                 `json:"primaryHits"`
	FallbackHits uint64                 `json:"fallbackHits"`
	Misses       uint64                 `json:"misses"`
	Sets         uint64                 `json:"sets"`
	Errors       uint64                 `json:"errors"`
	Latency      workstream.LatencyStats `json:"latency"`
}

// New creates a tiered cache over the given tiers.
func New(config Config) (*Cache, error) {
	if config.Primary == nil || config.Fallback == nil {
		return nil, errors.New("tiered cache: both primary and fallback tiers are required")
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = 60 * time.Second
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = 8
	}
	if config.Logger == nil {
		config.Logger = &workstream.NoopLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &workstream.NoopMetrics{}
	}
	return &Cache{
		primary:  config.Primary,
		fallback: config.Fallback,
		conf:     config,
		latency:  workstream.NewWindow(latencyWindowSize),
	}, nil
}

// Get tries the primary tier first. On a primary hit the fallback is
// repaired with RefreshTTL. On a primary miss or outage the fallback is
// consulted. Both missing yields workstream.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	done := c.observe("get")

	value, err := c.primary.Get(ctx, key)
	if err == nil {
		c.record(func() { c.primaryHits++ })
		c.conf.Metrics.RecordCacheHit("primary")
		// Read-repair the fallback; errors here are non-critical.
		if ferr := c.fallback.Set(ctx, key, value, c.conf.RefreshTTL); ferr != nil {
			c.conf.Logger.Debug("fallback refresh failed", workstream.Field{Key: "key", Value: key})
		}
		done(nil)
		return value, nil
	}

	// A miss is a valid outcome; only tier failures count as operation
	// errors.
	var perr error
	if !errors.Is(err, workstream.ErrCacheMiss) {
		perr = err
		c.record(func() { c.errorCount++ })
		c.conf.Logger.Debug("primary tier unavailable on get",
			workstream.Field{Key: "key", Value: key},
			workstream.Field{Key: "error", Value: err.Error()},
		)
	}

	value, err = c.fallback.Get(ctx, key)
	if err == nil {
		c.record(func() { c.fallbackHits++ })
		c.conf.Metrics.RecordCacheHit("fallback")
		done(perr)
		return value, nil
	}

	c.record(func() { c.misses++ })
	c.conf.Metrics.RecordCacheMiss()
	done(perr)
	return nil, workstream.ErrCacheMiss
}

// Set writes through to the primary when available and always writes the
// fallback (which caps the TTL at its ceiling). The operation succeeds if
// at least one tier accepted the write.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	done := c.observe("set")

	perr := c.primary.Set(ctx, key, value, ttl)
	if perr != nil {
		c.record(func() { c.errorCount++ })
		c.conf.Logger.Debug("primary tier unavailable on set",
			workstream.Field{Key: "key", Value: key},
			workstream.Field{Key: "error", Value: perr.Error()},
		)
	}
	ferr := c.fallback.Set(ctx, key, value, ttl)

	c.record(func() { c.sets++ })

	done(errors.Join(perr, ferr))
	if perr != nil && ferr != nil {
		return errors.Join(perr, ferr)
	}
	return nil
}

// Delete attempts both tiers; it succeeds if either tier succeeded and
// reports whether any tier held the key.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	done := c.observe("delete")

	pdel, perr := c.primary.Delete(ctx, key)
	if perr != nil {
		c.record(func() { c.errorCount++ })
	}
	fdel, ferr := c.fallback.Delete(ctx, key)

	done(errors.Join(perr, ferr))
	if perr != nil && ferr != nil {
		return false, errors.Join(perr, ferr)
	}
	return pdel || fdel, nil
}

// DeletePattern attempts both tiers and returns the total number of keys
// removed. An unavailable tier is skipped; the operation fails only when
// both tiers failed.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	done := c.observe("delete_pattern")

	pn, perr := c.primary.DeletePattern(ctx, pattern)
	if perr != nil {
		c.record(func() { c.errorCount++ })
		c.conf.Logger.Debug("primary tier unavailable on pattern delete",
			workstream.Field{Key: "pattern", Value: pattern},
			workstream.Field{Key: "error", Value: perr.Error()},
		)
	}
	fn, ferr := c.fallback.DeletePattern(ctx, pattern)

	done(errors.Join(perr, ferr))
	if perr != nil && ferr != nil {
		return 0, errors.Join(perr, ferr)
	}
	return pn + fn, nil
}

// GetOrSet returns the cached value for key, invoking compute only on a
// miss. Non-nil computed values are stored with the given TTL; nil values
// are returned without being cached.
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	value, err := c.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, workstream.ErrCacheMiss) {
		return nil, err
	}

	value, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if value != nil {
		if serr := c.Set(ctx, key, value, ttl); serr != nil {
			c.conf.Logger.Warn("cache fill failed",
				workstream.Field{Key: "key", Value: key},
				workstream.Field{Key: "error", Value: serr.Error()},
			)
		}
	}
	return value, nil
}

// BatchGet fetches all keys concurrently. Misses are omitted from the
// result map; the key-to-value association is preserved regardless of
// completion order.
func (c *Cache) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	results := make(map[string][]byte, len(keys))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.conf.BatchConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			value, err := c.Get(ctx, key)
			if err != nil {
				if errors.Is(err, workstream.ErrCacheMiss) {
					return nil
				}
				return err
			}
			mu.Lock()
			results[key] = value
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BatchSet stores all entries concurrently with one TTL.
func (c *Cache) BatchSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.conf.BatchConcurrency)
	for key, value := range entries {
		g.Go(func() error {
			return c.Set(ctx, key, value, ttl)
		})
	}
	return g.Wait()
}

// Stats returns a snapshot of the tier counters and latency window.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	min, avg, max := c.latency.Stats()
	return Stats{
		PrimaryHits:  c.primaryHits,
		FallbackHits: c.fallbackHits,
		Misses:       c.misses,
		Sets:         c.sets,
		Errors:       c.errorCount,
		Latency: workstream.LatencyStats{
			MinMS:   min,
			AvgMS:   avg,
			MaxMS:   max,
			Samples: c.latency.Len(),
		},
	}
}

func (c *Cache) record(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}

// observe times one operation; call the returned func when it completes.
func (c *Cache) observe(op string) func(error) {
	start := time.Now()
	return func(err error) {
		d := time.Since(start)
		c.latency.Add(float64(d) / float64(time.Millisecond))
		c.conf.Metrics.RecordCacheOperation(op, d, err)
	}
}
