// Package playlist assembles navigable sequences out of a collection's
// cached sub-lists and resolves next/previous steps over them.
package playlist

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/playmix/playmix/pkg/model"
)

// itemSource yields the cached items of one sub-list, latest first.
// Satisfied by cache.Coordinator.
type itemSource interface {
	Get(ctx context.Context, subListID string, kind model.Kind) ([]model.Item, error)
}

// buildMapping merges the collection's sub-lists into one deduplicated
// sequence. Each source is walked oldest to newest (the reverse of
// storage order) so that stepping forward moves toward newer content.
// On duplicate item IDs the earliest sub-list wins. With Aggregate set
// the per-source blocks are discarded in favor of one globally
// chronological order.
func buildMapping(ctx context.Context, source itemSource, collection *model.Collection) ([]model.MappingEntry, error) {
	var (
		seen    = map[string]struct{}{}
		mapping []model.MappingEntry
	)

	for _, sub := range collection.SubLists {
		items, err := source.Get(ctx, sub.ID, sub.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load sub-list %q", sub.ID)
		}

		origin := 0
		for i := len(items) - 1; i >= 0; i-- {
			item := items[i]
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}

			mapping = append(mapping, model.MappingEntry{
				ItemID:      item.ID,
				PublishedAt: item.PublishedAt,
				OriginID:    sub.ID,
				OriginIndex: origin,
			})
			origin++
		}
	}

	if collection.Aggregate {
		sort.SliceStable(mapping, func(i, j int) bool {
			return mapping[i].PublishedAt < mapping[j].PublishedAt
		})
	}

	return mapping, nil
}
