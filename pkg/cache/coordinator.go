package cache

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/playmix/playmix/pkg/model"
)

// Coordinator is the single entry point for reading sub-list items. A
// missing entry is fetched synchronously; a stale entry is returned
// immediately while one background refresh per key brings it up to
// date. The in-flight bookkeeping is process local, the store is
// assumed to have a single writer.
type Coordinator struct {
	store   *Store
	fetcher *Fetcher

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

func NewCoordinator(store *Store, fetcher *Fetcher) *Coordinator {
	return &Coordinator{
		store:    store,
		fetcher:  fetcher,
		inflight: map[string]struct{}{},
	}
}

// Get returns the items of one sub-list, freshest available.
func (c *Coordinator) Get(ctx context.Context, subListID string, kind model.Kind) ([]model.Item, error) {
	key := Key(subListID, kind)

	entry, err := c.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		// Full miss, there is nothing to fall back to: fetch failures
		// are fatal here.
		items, err := c.fetcher.Fetch(ctx, subListID, kind)
		if err != nil {
			return nil, err
		}

		if err := c.store.Write(ctx, key, items); err != nil {
			return nil, errors.Wrapf(err, "failed to persist items for %q", key)
		}

		return items, nil
	}

	if c.store.Stale(entry) {
		c.refresh(key, subListID, kind)
	}

	return entry.Items, nil
}

// refresh starts a background refresh unless one is already running for
// the key. Failures are logged only, the caller holds usable stale data.
func (c *Coordinator) refresh(key string, subListID string, kind model.Kind) {
	c.mu.Lock()
	if _, running := c.inflight[key]; running {
		c.mu.Unlock()
		return
	}
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	log.Debugf("refreshing %q in background", key)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, key)
			c.mu.Unlock()
		}()

		// A started refresh always runs to completion.
		ctx := context.Background()

		items, err := c.fetcher.Fetch(ctx, subListID, kind)
		if err != nil {
			log.WithError(err).Warnf("background refresh of %q failed", key)
			return
		}

		if err := c.store.Write(ctx, key, items); err != nil {
			log.WithError(err).Errorf("failed to persist refreshed items for %q", key)
		}
	}()
}

// Remove drops the cached entry of a sub-list nothing references anymore.
func (c *Coordinator) Remove(ctx context.Context, subListID string, kind model.Kind) error {
	return c.store.Remove(ctx, Key(subListID, kind))
}

// Wait blocks until all background refreshes finish. Called on shutdown.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
