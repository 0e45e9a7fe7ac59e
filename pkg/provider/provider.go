package provider

import (
	"context"
	"time"
)

// Status is the broadcast state reported by the provider for one item.
type Status string

const (
	StatusNone     = Status("none")
	StatusLive     = Status("live")
	StatusUpcoming = Status("upcoming")
)

// RawItem is one item as returned by the provider, before any filtering
// or ordering is applied.
type RawItem struct {
	ID          string
	PublishedAt time.Time
	Status      Status
}

// Client is the upstream content provider consumed by the fetcher and
// the validation endpoints. Implementations handle pagination internally
// and return complete lists.
type Client interface {
	// ListItems returns every raw item of the given list.
	ListItems(ctx context.Context, listID string) ([]RawItem, error)

	// ResolveChannelListID maps a channel ID to its canonical uploads
	// list ID.
	ResolveChannelListID(ctx context.Context, channelID string) (string, error)

	// ValidateListID returns the display title for a list ID, or
	// model.ErrNotFound.
	ValidateListID(ctx context.Context, listID string) (string, error)

	// ValidateChannelID returns the display title for a channel ID, or
	// model.ErrNotFound.
	ValidateChannelID(ctx context.Context, channelID string) (string, error)

	// ValidateChannelHandle resolves a handle ("@name") to the channel
	// ID and display title, or model.ErrNotFound.
	ValidateChannelHandle(ctx context.Context, handle string) (string, string, error)
}
