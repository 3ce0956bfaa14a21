package details

import (
	"log/slog"
	"math/rand"
	"strconv"
	"time"
)

// missingIDs computes all − known − invalid. The result's order is
// whatever the map iteration produced; callers must not rely on it.
func missingIDs(all []int, doc *Document) []int {
	invalid := make(map[int]bool, len(doc.Invalid))
	for _, id := range doc.Invalid {
		invalid[id] = true
	}

	var missing []int
	for _, id := range all {
		if invalid[id] {
			continue
		}
		if _, ok := doc.Items[strconv.Itoa(id)]; ok {
			continue
		}
		missing = append(missing, id)
	}
	return missing
}

// staleSample draws a random sample (without replacement) from the items
// whose last update is older than the staleness threshold. Sampling bounds
// the re-validation cost of a single run; staleness repair converges over
// many runs rather than in one pass.
func staleSample(doc *Document, now time.Time, stalenessDays, sampleSize int) []int {
	cutoff := now.Add(-time.Duration(stalenessDays) * 24 * time.Hour)

	var eligible []int
	for _, item := range doc.Items {
		updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt)
		if err != nil {
			// a record with an unreadable timestamp has effectively
			// never been refreshed
			eligible = append(eligible, item.ID)
			continue
		}
		if updatedAt.Before(cutoff) {
			eligible = append(eligible, item.ID)
		}
	}
	slog.Info("found outdated items", "count", len(eligible))

	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if sampleSize < len(eligible) {
		eligible = eligible[:sampleSize]
	}
	return eligible
}

// ComputeWorkSet selects the identifiers to fetch this run: items never
// fetched first, then a random sample of stale ones. An empty result
// means the store is up to date and the fetch loop performs no requests.
func ComputeWorkSet(all []int, doc *Document, now time.Time, stalenessDays, sampleSize int) []int {
	missing := missingIDs(all, doc)
	stale := staleSample(doc, now, stalenessDays, sampleSize)
	return append(missing, stale...)
}
