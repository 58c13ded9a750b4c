package timeline

import (
	"sort"

	"github.com/seolki/rankarena/internal/rank/domain"
)

// Merge combines timeline event streams into a new deduplicated slice,
// ordered by (turn, timestamp, dedup key). The inputs are never mutated and
// re-merging an already-present event id is a no-op, so the merge tolerates
// duplicate and out-of-order delivery from reconnect backfills.
func Merge(existing []domain.TimelineEvent, incoming ...domain.TimelineEvent) []domain.TimelineEvent {
	merged := make([]domain.TimelineEvent, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	appendUnique := func(events []domain.TimelineEvent) {
		for _, event := range events {
			key := event.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, event)
		}
	}
	appendUnique(existing)
	appendUnique(incoming)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Turn != merged[j].Turn {
			return merged[i].Turn < merged[j].Turn
		}
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].DedupKey() < merged[j].DedupKey()
	})

	return merged
}
