package workstream

import (
	"context"
	"errors"
)

// Invalidator removes derived-data cache entries affected by a work-item
// change. Invalidation is best-effort: an unavailable tier is skipped and
// the overall operation still reports what it managed to delete.
type Invalidator struct {
	cache  Cache
	logger Logger
}

// NewInvalidator creates an Invalidator over the given cache. A nil cache
// turns invalidation into a no-op.
func NewInvalidator(cache Cache, logger Logger) *Invalidator {
	if logger == nil {
		logger = &NoopLogger{}
	}
	return &Invalidator{cache: cache, logger: logger}
}

// InvalidateWorkItem deletes the entity-scoped keys for the item, the
// list-family keys for its current assignee, iteration and area, and the
// coarse workItems:* family. The coarse delete is intentionally
// conservative: correctness over hit rate.
func (inv *Invalidator) InvalidateWorkItem(ctx context.Context, item *WorkItem) error {
	if inv.cache == nil || item == nil {
		return nil
	}

	var errs []error

	for _, key := range []string{WorkItemKey(item.ID), WorkItemDetailsKey(item.ID)} {
		if _, err := inv.cache.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	patterns := make([]string, 0, 4)
	if a := item.Assignee(); a != "" {
		patterns = append(patterns, AssigneeListPattern(a))
	}
	if p := item.IterationPath(); p != "" {
		patterns = append(patterns, IterationListPattern(p))
	}
	if p := item.AreaPath(); p != "" {
		patterns = append(patterns, AreaListPattern(p))
	}
	patterns = append(patterns, AllListsPattern())

	deleted := 0
	for _, pattern := range patterns {
		n, err := inv.cache.DeletePattern(ctx, pattern)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		deleted += n
	}

	inv.logger.Debug("invalidated work item cache entries",
		Field{"workItemId", item.ID},
		Field{"patternDeletes", deleted},
	)

	return errors.Join(errs...)
}
