package cache

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/playmix/playmix/pkg/model"
	"github.com/playmix/playmix/pkg/provider"
	"github.com/playmix/playmix/pkg/queue"
)

const maxFetchAttempts = 5

// Fetcher pulls the full item list of one sub-list from the provider,
// holding the request serializer for the duration of each attempt so
// that at most one upstream request is outstanding.
type Fetcher struct {
	provider   provider.Client
	serializer *queue.Serializer
}

func NewFetcher(client provider.Client, serializer *queue.Serializer) *Fetcher {
	return &Fetcher{
		provider:   client,
		serializer: serializer,
	}
}

// Fetch retries up to maxFetchAttempts times and fails hard after the
// last attempt. Callers with usable stale data must not propagate the
// error further.
func (f *Fetcher) Fetch(ctx context.Context, subListID string, kind model.Kind) ([]model.Item, error) {
	var lastErr error

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		items, err := f.fetchOnce(ctx, subListID, kind)
		if err == nil {
			return items, nil
		}

		lastErr = err
		log.WithError(err).WithFields(log.Fields{
			"sub_list": subListID,
			"kind":     kind,
		}).Debugf("fetch attempt %d of %d failed", attempt, maxFetchAttempts)
	}

	return nil, errors.Wrapf(lastErr, "failed to fetch %s %q after %d attempts", kind, subListID, maxFetchAttempts)
}

func (f *Fetcher) fetchOnce(ctx context.Context, subListID string, kind model.Kind) ([]model.Item, error) {
	if err := f.serializer.Acquire(ctx); err != nil {
		return nil, err
	}
	defer f.serializer.Release()

	listID := subListID
	if kind == model.KindChannel {
		resolved, err := f.provider.ResolveChannelListID(ctx, subListID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve uploads list for channel %q", subListID)
		}

		listID = resolved
	}

	raw, err := f.provider.ListItems(ctx, listID)
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(raw))
	for _, r := range raw {
		// Live and scheduled broadcasts are not navigable content.
		if r.Status != provider.StatusNone {
			continue
		}

		items = append(items, model.Item{
			ID:          r.ID,
			PublishedAt: r.PublishedAt.UnixNano() / int64(time.Millisecond),
		})
	}

	// Latest first is the canonical on-disk order, the aggregator
	// depends on it.
	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt > items[j].PublishedAt
	})

	return items, nil
}
