package playlist

import (
	"github.com/playmix/playmix/pkg/model"
)

// Position is the outcome of one navigation step.
type Position struct {
	ItemID string `json:"itemId"`
	Index  int    `json:"position"`
	Total  int    `json:"total"`
}

// Resolve finds the item step away from currentID in the ordered
// sequence, wrapping around at both ends. When currentID is not part of
// the sequence (nothing playing, or an item from outside the
// collection) the wall clock picks a starting point instead.
func Resolve(mapping []model.MappingEntry, seed int64, shuffled bool, currentID string, step int, nowMillis int64) (Position, error) {
	if len(mapping) == 0 {
		return Position{}, model.ErrEmptyCollection
	}

	ordered := mapping
	if shuffled {
		ordered = Shuffle(mapping, seed)
	}

	index := -1
	for i, entry := range ordered {
		if entry.ItemID == currentID {
			index = i
			break
		}
	}

	var position int
	if index >= 0 {
		position = mod(index+step, len(ordered))
	} else {
		position = int(nowMillis % int64(len(ordered)))
	}

	return Position{
		ItemID: ordered[position].ItemID,
		Index:  position,
		Total:  len(ordered),
	}, nil
}

// mod normalizes negative results the way the wraparound needs.
func mod(a, n int) int {
	return ((a % n) + n) % n
}
