// Package memory provides an in-process implementation of the
// workstream.Cache contract. It is the fallback tier: always available,
// with a hard ceiling on entry TTLs so stale derived data cannot outlive
// the primary tier by much.
package memory

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/workstream/workstream/pkg/workstream"
)

// DefaultMaxTTL is the ceiling applied to every entry, even when a longer
// TTL was requested.
const DefaultMaxTTL = 300 * time.Second

// Config holds memory cache configuration.
type Config struct {
	// MaxTTL caps the TTL of every entry (default: DefaultMaxTTL).
	MaxTTL time.Duration

	// DefaultTTL is used when Set is called with a zero TTL
	// (default: MaxTTL).
	DefaultTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTTL:     DefaultMaxTTL,
		DefaultTTL: DefaultMaxTTL,
	}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache implements workstream.Cache using an in-process map. Expired
// entries are dropped lazily on access and swept during pattern deletes.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	config  Config
}

// New creates a new in-process cache.
func New(config Config) *Cache {
	if config.MaxTTL <= 0 {
		config.MaxTTL = DefaultMaxTTL
	}
	if config.DefaultTTL <= 0 || config.DefaultTTL > config.MaxTTL {
		config.DefaultTTL = config.MaxTTL
	}
	return &Cache{
		entries: make(map[string]*entry),
		config:  config,
	}
}

// Get implements workstream.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, workstream.ErrCacheMiss
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		// Re-check under the write lock; another Set may have refreshed it.
		if cur, ok := c.entries[key]; ok && cur.expired(time.Now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, workstream.ErrCacheMiss
	}

	// Return a copy to prevent external mutations.
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

// Set implements workstream.Cache. The effective TTL is
// min(requested, MaxTTL).
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	if ttl > c.config.MaxTTL {
		ttl = c.config.MaxTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = &entry{value: stored, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete implements workstream.Cache.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	delete(c.entries, key)
	return !e.expired(time.Now()), nil
}

// DeletePattern implements workstream.Cache with a linear scan. The glob is
// compiled once per call; expired entries encountered during the scan are
// swept regardless of whether they match.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	match, err := compileGlob(pattern)
	if err != nil {
		return 0, err
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			continue
		}
		if match(key) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	now := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// compileGlob converts a glob pattern ("*" any sequence, "?" any single
// character) into a matcher function.
func compileGlob(pattern string) (func(string) bool, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}
