package playlist

import (
	"math"
	"sort"

	"github.com/playmix/playmix/pkg/model"
)

// Shuffle returns a deterministic permutation of mapping for the given
// seed. The sort rank of an entry depends only on (seed, itemID), so
// entries appearing in two different mappings keep their relative order
// for a fixed seed. That keeps a shuffled sequence steady while new
// uploads get appended to sub-lists.
func Shuffle(mapping []model.MappingEntry, seed int64) []model.MappingEntry {
	type ranked struct {
		entry model.MappingEntry
		rank  float64
	}

	entries := make([]ranked, len(mapping))
	for i, e := range mapping {
		entries[i] = ranked{entry: e, rank: rank(seed, e.ItemID)}
	}

	// Stable: equal ranks keep input order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].rank < entries[j].rank
	})

	out := make([]model.MappingEntry, len(mapping))
	for i, r := range entries {
		out[i] = r.entry
	}

	return out
}

// rank maps (seed, itemID) to [0, 1) through a base-31 rolling hash fed
// into sin(). Not a strong hash, but it only has to be deterministic
// and well spread.
func rank(seed int64, itemID string) float64 {
	var h uint32
	for _, r := range itemID {
		h = h*31 + uint32(r)
	}

	s := math.Sin(float64(seed) + float64(h))
	return s - math.Floor(s)
}
