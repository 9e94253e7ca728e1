// Package rotation implements the usage-rotation policy for content pools:
// deterministic least-used selection and the whole-pool reset trigger.
package rotation

import (
	"sort"
	"time"
)

// DefaultResetThreshold is the use count every item in a pool must exceed
// before the pool's counters are reset to zero. Tunable constant, not derived.
const DefaultResetThreshold = 10

// Tracked is implemented by entities that rotate through a usage ledger.
type Tracked interface {
	TrackID() int64
	UseCount() int
	LastUsed() *time.Time
}

// LeastUsed returns the pool member that should be served next. The ordering
// is deterministic so selection is reproducible for a fixed pool state:
// use count ascending, then last-used ascending with nil sorting first
// (treated as epoch zero), then ID ascending.
//
// The boolean result is false when the pool is empty.
func LeastUsed[T Tracked](pool []T) (T, bool) {
	var zero T
	if len(pool) == 0 {
		return zero, false
	}

	sorted := make([]T, len(pool))
	copy(sorted, pool)

	sort.SliceStable(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})

	return sorted[0], true
}

// Less reports whether a should be served before b under the rotation
// ordering. Exported so store implementations can mirror the same ordering
// in SQL and tests can assert agreement.
func Less(a, b Tracked) bool {
	if a.UseCount() != b.UseCount() {
		return a.UseCount() < b.UseCount()
	}

	at := lastUsedOrEpoch(a)
	bt := lastUsedOrEpoch(b)
	if !at.Equal(bt) {
		return at.Before(bt)
	}

	return a.TrackID() < b.TrackID()
}

// Exhausted reports whether every item in the pool has a use count strictly
// above threshold. An empty pool is never exhausted.
func Exhausted[T Tracked](pool []T, threshold int) bool {
	if len(pool) == 0 {
		return false
	}
	for _, item := range pool {
		if item.UseCount() <= threshold {
			return false
		}
	}
	return true
}

func lastUsedOrEpoch(t Tracked) time.Time {
	if ts := t.LastUsed(); ts != nil {
		return *ts
	}
	return time.Time{}
}
