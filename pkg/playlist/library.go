package playlist

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ventu-io/go-shortid"

	"github.com/playmix/playmix/pkg/model"
	"github.com/playmix/playmix/pkg/store"
)

const collectionPrefix = "collection/"

// itemCache drops cached sub-list data nothing references anymore.
// Satisfied by cache.Coordinator.
type itemCache interface {
	Remove(ctx context.Context, subListID string, kind model.Kind) error
}

// Library persists collections and garbage collects cached sub-list
// data when the last reference to a sub-list goes away. Every mutation
// is written through immediately.
type Library struct {
	storage store.Storage
	cache   itemCache
}

func NewLibrary(storage store.Storage, cache itemCache) *Library {
	return &Library{
		storage: storage,
		cache:   cache,
	}
}

// Create stores a new collection under a generated short ID and returns
// the ID.
func (l *Library) Create(ctx context.Context, collection *model.Collection) (string, error) {
	if collection.Name == "" {
		return "", errors.New("collection name is required")
	}

	id, err := shortid.Generate()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate collection id")
	}

	collection.ID = id
	if err := l.save(ctx, collection); err != nil {
		return "", err
	}

	return id, nil
}

func (l *Library) Get(ctx context.Context, id string) (*model.Collection, error) {
	value, err := l.storage.Get(ctx, collectionPrefix+id)
	if err != nil {
		return nil, err
	}

	var collection model.Collection
	if err := json.Unmarshal(value, &collection); err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize collection %q", id)
	}

	return &collection, nil
}

func (l *Library) List(ctx context.Context) ([]*model.Collection, error) {
	var collections []*model.Collection

	err := l.storage.WalkKeys(ctx, collectionPrefix, func(key string) error {
		collection, err := l.Get(ctx, key[len(collectionPrefix):])
		if err != nil {
			return err
		}

		collections = append(collections, collection)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return collections, nil
}

// Update overwrites an existing collection and garbage collects caches
// of sub-lists that were removed by the edit.
func (l *Library) Update(ctx context.Context, collection *model.Collection) error {
	previous, err := l.Get(ctx, collection.ID)
	if err != nil {
		return err
	}

	if err := l.save(ctx, collection); err != nil {
		return err
	}

	kept := map[string]struct{}{}
	for _, sub := range collection.SubLists {
		kept[cacheIdentity(sub)] = struct{}{}
	}

	var removed []model.SubList
	for _, sub := range previous.SubLists {
		if _, ok := kept[cacheIdentity(sub)]; !ok {
			removed = append(removed, sub)
		}
	}

	return l.collectGarbage(ctx, removed)
}

// Delete removes the collection and garbage collects its sub-lists.
func (l *Library) Delete(ctx context.Context, id string) error {
	collection, err := l.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := l.storage.Remove(ctx, collectionPrefix+id); err != nil {
		return errors.Wrapf(err, "failed to delete collection %q", id)
	}

	return l.collectGarbage(ctx, collection.SubLists)
}

func (l *Library) save(ctx context.Context, collection *model.Collection) error {
	value, err := json.Marshal(collection)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize collection %q", collection.ID)
	}

	return l.storage.Set(ctx, collectionPrefix+collection.ID, value)
}

// collectGarbage drops cached items of candidates no remaining
// collection references.
func (l *Library) collectGarbage(ctx context.Context, candidates []model.SubList) error {
	if len(candidates) == 0 {
		return nil
	}

	collections, err := l.List(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list collections for cache gc")
	}

	referenced := map[string]struct{}{}
	for _, collection := range collections {
		for _, sub := range collection.SubLists {
			referenced[cacheIdentity(sub)] = struct{}{}
		}
	}

	for _, sub := range candidates {
		if _, ok := referenced[cacheIdentity(sub)]; ok {
			continue
		}

		log.Debugf("garbage collecting cache for %s %q", sub.Kind, sub.ID)
		if err := l.cache.Remove(ctx, sub.ID, sub.Kind); err != nil {
			return errors.Wrapf(err, "failed to drop cache for sub-list %q", sub.ID)
		}
	}

	return nil
}

func cacheIdentity(sub model.SubList) string {
	return string(sub.Kind) + "/" + sub.ID
}
