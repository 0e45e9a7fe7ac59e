package playlist

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/playmix/playmix/pkg/cache"
	"github.com/playmix/playmix/pkg/model"
)

// refreshWindowSeconds is how close to the end of the current item the
// player integration starts checking caches, so the next navigation
// finds fresh data.
const refreshWindowSeconds = 60

// Session holds the per-process navigation state: the item source and
// the clock. Constructed once at startup; tests build independent
// instances with their own stubs.
type Session struct {
	source itemSource
	now    func() time.Time
}

func NewSession(coordinator *cache.Coordinator) *Session {
	return &Session{
		source: coordinator,
		now:    time.Now,
	}
}

// NavRequest describes one navigation step over a collection.
type NavRequest struct {
	Current string
	Step    int
	Shuffle bool
	Seed    int64
}

// BuildMapping assembles the deduplicated sequence for a collection. An
// empty result is valid and simply not navigable.
func (s *Session) BuildMapping(ctx context.Context, collection *model.Collection) ([]model.MappingEntry, error) {
	return buildMapping(ctx, s.source, collection)
}

// Next resolves one navigation step over the collection.
func (s *Session) Next(ctx context.Context, collection *model.Collection, req NavRequest) (Position, error) {
	mapping, err := s.BuildMapping(ctx, collection)
	if err != nil {
		return Position{}, err
	}

	nowMillis := s.now().UnixNano() / int64(time.Millisecond)
	return Resolve(mapping, req.Seed, req.Shuffle, req.Current, req.Step, nowMillis)
}

// MaybeRefresh is called by the player integration with the remaining
// playback time. Near the end of an item it touches every sub-list
// cache, which kicks off background refreshes for stale entries.
// Failures are logged only.
func (s *Session) MaybeRefresh(ctx context.Context, collection *model.Collection, remainingSeconds float64) {
	if remainingSeconds > refreshWindowSeconds {
		return
	}

	for _, sub := range collection.SubLists {
		if _, err := s.source.Get(ctx, sub.ID, sub.Kind); err != nil {
			log.WithError(err).Warnf("pre-end refresh of sub-list %q failed", sub.ID)
		}
	}
}
