package model

// Kind tells how a sub-list identifier is to be interpreted by the
// content provider.
type Kind string

const (
	// KindPlaylist is a literal playlist.
	KindPlaylist = Kind("playlist")
	// KindChannel is a channel whose uploads list has to be resolved first.
	KindChannel = Kind("channel")
)

// SubList points at one externally maintained ordered list of items.
// Identity is the (ID, Kind) pair; Title and URL are display metadata,
// refreshed on re-validation.
type SubList struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Collection is a user-ordered master playlist built from sub-lists.
// The order of SubLists is significant: it drives per-source ordering
// and dedup priority when the same item appears in several sources.
type Collection struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	SubLists []SubList `json:"subLists"`
	// Aggregate merges all sources into one globally chronological
	// sequence instead of concatenating them per source.
	Aggregate bool `json:"aggregateMode"`
}

// Item is one content item of a sub-list.
type Item struct {
	ID string
	// PublishedAt is milliseconds since Unix epoch.
	PublishedAt int64
}

// MappingEntry is one slot of the deduplicated sequence assembled from
// a collection's sub-lists. Built fresh per navigation request, never
// persisted.
type MappingEntry struct {
	ItemID      string
	PublishedAt int64
	OriginID    string
	OriginIndex int
}
