package news

import (
	"github.com/deusflow/telecomnews/internal/logger"
)

// Deduplicate collapses items that share a DedupeKey. Within a duplicate
// group the survivor is the item with the longest non-empty summary, then
// the earliest publish date, then the first one seen in source-list order.
// Output keeps first-seen order, so the result is deterministic regardless
// of map iteration.
func Deduplicate(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}

	order := make([]string, 0, len(items))
	best := make(map[string]Item, len(items))

	for _, it := range items {
		current, seen := best[it.DedupeKey]
		if !seen {
			order = append(order, it.DedupeKey)
			best[it.DedupeKey] = it
			continue
		}
		if prefer(it, current) {
			best[it.DedupeKey] = it
		}
	}

	out := make([]Item, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}

	if removed := len(items) - len(out); removed > 0 {
		logger.Info("duplicates collapsed", "removed", removed, "kept", len(out))
	}
	return out
}

// prefer reports whether candidate should replace current as the surviving
// copy of a story. First-seen wins all remaining ties, so a strict
// improvement is required.
func prefer(candidate, current Item) bool {
	cl, xl := len(candidate.Summary), len(current.Summary)
	if cl != xl {
		return cl > xl
	}
	return candidate.PublishedAt.Before(current.PublishedAt)
}
