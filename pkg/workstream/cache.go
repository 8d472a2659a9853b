package workstream

import (
	"context"
	"strconv"
	"time"
)

// Cache is the contract for one cache tier holding derived data. Values are
// opaque bytes; callers serialize. Get returns ErrCacheMiss for absent keys
// and ErrCacheUnavailable (possibly wrapped) when the tier cannot be
// reached.
type Cache interface {
	// Get retrieves the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL. A tier may cap the
	// effective TTL at its own ceiling.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key, reporting whether a value was present.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes all keys matching a glob pattern ("*" matches
	// any sequence, "?" any single character) and returns how many were
	// removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// Cache key layout for derived work-item data. List-family keys carry a
// variable suffix and are removed by pattern.
const (
	keyPrefixWorkItem        = "workItem:"
	keyPrefixWorkItemDetails = "workItemDetails:"
	keyPrefixWorkItemLists   = "workItems:"
)

// WorkItemKey returns the cache key for a single work item.
func WorkItemKey(id int) string {
	return keyPrefixWorkItem + strconv.Itoa(id)
}

// WorkItemDetailsKey returns the cache key for a work item's expanded view.
func WorkItemDetailsKey(id int) string {
	return keyPrefixWorkItemDetails + strconv.Itoa(id)
}

// AssigneeListPattern returns the glob covering list keys for an assignee.
func AssigneeListPattern(assignee string) string {
	return keyPrefixWorkItemLists + "assignee:" + assignee + ":*"
}

// IterationListPattern returns the glob covering list keys for an iteration.
func IterationListPattern(path string) string {
	return keyPrefixWorkItemLists + "iteration:" + path + ":*"
}

// AreaListPattern returns the glob covering list keys for an area path.
func AreaListPattern(path string) string {
	return keyPrefixWorkItemLists + "area:" + path + ":*"
}

// AllListsPattern returns the coarse glob covering every list-family key.
func AllListsPattern() string {
	return keyPrefixWorkItemLists + "*"
}
