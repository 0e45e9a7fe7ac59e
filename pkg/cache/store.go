// Package cache keeps per-sub-list item lists in the persistent store
// and decides when they need to be refreshed. Entries are served stale
// while a single-flight background refresh runs.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/playmix/playmix/pkg/codec"
	"github.com/playmix/playmix/pkg/model"
	"github.com/playmix/playmix/pkg/store"
)

const (
	// Lists above this size are refreshed daily instead of every 6 hours.
	largeListThreshold = 1000

	largeListTTL = 24 * time.Hour
	defaultTTL   = 6 * time.Hour

	// maxJitter spreads write timestamps by up to ±10 minutes so that
	// entries written together do not all expire together.
	maxJitter = 10 * time.Minute
)

// Key derives the storage key for one sub-list.
func Key(subListID string, kind model.Kind) string {
	return fmt.Sprintf("items/%s/%s", kind, subListID)
}

// Entry is one decoded cache record.
type Entry struct {
	Items     []model.Item
	WrittenAt time.Time
}

// envelope is the persisted shape: the codec blob plus the jittered
// write timestamp in epoch milliseconds.
type envelope struct {
	EncodedItems string `json:"encodedItems"`
	WrittenAt    int64  `json:"writtenAt"`
}

// Store wraps the persistent store with the codec and staleness rules.
type Store struct {
	storage store.Storage
	now     func() time.Time
	jitter  func() time.Duration
}

func NewStore(storage store.Storage) *Store {
	return &Store{
		storage: storage,
		now:     time.Now,
		jitter:  randomJitter,
	}
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(2*maxJitter))) - maxJitter
}

// Read returns the decoded entry for key, or nil when the key is absent
// or its payload fails validation. Decode failures are logged and
// reported as a miss, never as an error.
func (s *Store) Read(ctx context.Context, key string) (*Entry, error) {
	value, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read cache entry %q", key)
	}

	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.WithError(err).Warnf("dropping unreadable cache entry %q", key)
		return nil, nil
	}

	items, err := codec.Decode(env.EncodedItems)
	if err != nil {
		log.WithError(err).Warnf("dropping undecodable cache entry %q", key)
		return nil, nil
	}

	return &Entry{
		Items:     items,
		WrittenAt: time.Unix(0, env.WrittenAt*int64(time.Millisecond)),
	}, nil
}

// Write persists items under key with a freshly jittered timestamp.
func (s *Store) Write(ctx context.Context, key string, items []model.Item) error {
	env := envelope{
		EncodedItems: codec.Encode(items),
		WrittenAt:    s.now().Add(s.jitter()).UnixNano() / int64(time.Millisecond),
	}

	value, err := json.Marshal(&env)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize cache entry %q", key)
	}

	return s.storage.Set(ctx, key, value)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.storage.Remove(ctx, key)
}

// Stale reports whether the entry has outlived its TTL. Large lists
// change rarely and get the longer TTL.
func (s *Store) Stale(entry *Entry) bool {
	ttl := defaultTTL
	if len(entry.Items) > largeListThreshold {
		ttl = largeListTTL
	}

	return s.now().Sub(entry.WrittenAt) > ttl
}
